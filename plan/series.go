package plan

import (
	"strings"

	"github.com/dianpeng/metricql/cg"
	"github.com/dianpeng/metricql/sql"
)

// SERIES name FROM select
//
// The name is either a string literal or an expression evaluated against the
// rows of the nested select, in which case it is pushed down into a copy of
// the nested select list. The output is the name followed by the first axes
// columns of the nested select, axes being the number of entries the user
// wrote in the nested select list (* means all of the nested columns).
func (self *Planner) buildSeries(node *sql.Node) (Executable, error) {
	if len(node.Children) != 2 || node.Children[1].Tag != sql.NodeSelect {
		return nil, self.err(sql.ErrMalformedStatement, "series requires a name and a select statement")
	}

	nested := node.Children[1].Clone()
	if len(nested.Children) == 0 || nested.Children[0].Tag != sql.NodeSelectList {
		return nil, self.err(sql.ErrMalformedStatement, "series source without select list")
	}
	selectList := nested.Children[0]

	if node.Children[0].Tag != sql.NodeSeriesName && selectList.FindChild(sql.NodeAll) >= 0 {
		if err := self.expandAll(nested); err != nil {
			return nil, err
		}
	}

	axes := len(selectList.Children)
	hasAll := selectList.FindChild(sql.NodeAll) >= 0

	var name *sql.Node
	if n := node.Children[0]; n.Tag == sql.NodeSeriesName {
		tk := n.Token.Clone()
		if tk == nil {
			tk = &sql.Token{}
		}
		tk.Type = sql.TkStr
		name = sql.NewTokenNode(sql.NodeLiteral, tk)
	} else {
		name = n.Clone()
		if err := pushDown(name, selectList); err != nil {
			return nil, err
		}
	}

	child, err := self.Build(nested)
	if err != nil {
		return nil, err
	}

	nameExpr, err := (&cg.Compiler{
		Symbols:   self.Symbols,
		Aggregate: true,
	}).Compile(name, "series")
	if err != nil {
		return nil, err
	}
	if nameExpr.Slots != 0 {
		return nil, self.err(sql.ErrMalformedStatement, "aggregate is not allowed inside of series name")
	}

	nestedColumns := child.Columns()
	if hasAll || axes > len(nestedColumns) {
		axes = len(nestedColumns)
	}

	columns := make([]string, 0, axes+1)
	columns = append(columns, "series")
	columns = append(columns, nestedColumns[:axes]...)

	return &SeriesStatement{
		OutputColumns: columns,
		Name:          nameExpr,
		Axes:          axes,
		Child:         child,
	}, nil
}

// expandAll replaces every * of a plain table scan's select list with the
// columns of the table, so a series name can be pushed down into it. Grouped
// or aggregating selects are left alone.
func (self *Planner) expandAll(node *sql.Node) error {
	if hasGroupBy(node) {
		return nil
	}
	if agg, err := self.hasAggregateInSelectList(node); err != nil || agg {
		return err
	}
	from := node.Child(sql.NodeFrom)
	if from == nil || len(from.Children) == 0 || from.Children[0].Tag != sql.NodeTableName {
		return nil
	}
	table := from.Children[0].Text()

	var source ScanSource
	ok := false
	if self.Tables != nil {
		source, ok = self.Tables.Resolve(table)
	}
	if !ok {
		return self.err(sql.ErrUnknownTable, "table %s is not found", table)
	}

	list := node.Children[0]
	entries := make([]*sql.Node, 0, len(list.Children))
	for _, entry := range list.Children {
		if entry.Tag != sql.NodeAll {
			entries = append(entries, entry)
			continue
		}
		for _, c := range source.Columns() {
			col := sql.NewTokenNode(sql.NodeColumnName, &sql.Token{Type: sql.TkId, Text: c})
			entries = append(entries, sql.NewNode(sql.NodeDerivedColumn, col))
		}
	}
	list.Children = entries
	return nil
}

// DRAW chart-type
func (self *Planner) buildDraw(node *sql.Node) (Executable, error) {
	if node.Token == nil {
		return nil, self.err(sql.ErrMalformedStatement, "draw without chart type")
	}

	var chart int
	switch strings.ToLower(node.Text()) {
	case "bar":
		chart = ChartBar
	case "line":
		chart = ChartLine
	case "area":
		chart = ChartArea
	default:
		return nil, self.err(sql.ErrUnsupportedChartType, "chart type %s is not supported", node.Text())
	}

	return &DrawStatement{
		ChartType: chart,
	}, nil
}
