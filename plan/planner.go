package plan

import (
	"github.com/dianpeng/metricql/cg"
	"github.com/dianpeng/metricql/sql"
)

// Planner turns statement trees into plan trees. It only reads its symbol
// table and table repository, so one planner can be shared by concurrent
// compilations as long as those two are not mutated.
type Planner struct {
	Symbols cg.SymbolTable
	Tables  TableRepository
}

func New(symbols cg.SymbolTable, tables TableRepository) *Planner {
	if symbols == nil {
		symbols = cg.Builtins()
	}
	return &Planner{
		Symbols: symbols,
		Tables:  tables,
	}
}

// BuildPlan builds the plan of a single statement with the builtin symbols.
func BuildPlan(node *sql.Node, tables TableRepository) (Executable, error) {
	return New(cg.Builtins(), tables).Build(node)
}

func (self *Planner) err(kind error, format string, args ...interface{}) error {
	return sql.NewError(kind, "plan", format, args...)
}

// BuildQuery builds every statement of a query, stopping at the first error.
func (self *Planner) BuildQuery(nodes []*sql.Node) ([]Executable, error) {
	out := make([]Executable, 0, len(nodes))
	for _, n := range nodes {
		e, err := self.Build(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Build classifies the statement and dispatches to the builder of its shape,
// first match wins:
//
//  1. SERIES
//  2. DRAW
//  3. SELECT with LIMIT
//  4. SELECT with GROUP BY or an aggregate inside of its select list
//  5. SELECT with FROM, ie table scan
//  6. SELECT without FROM, ie tableless select
//
// Anything else means the parser produced a shape we do not know.
func (self *Planner) Build(node *sql.Node) (Executable, error) {
	if node == nil {
		return nil, self.err(sql.ErrInternal, "nil statement")
	}

	switch node.Tag {
	case sql.NodeSeries:
		return self.buildSeries(node)

	case sql.NodeDraw:
		return self.buildDraw(node)

	case sql.NodeSelect:
		if len(node.Children) == 0 || node.Children[0].Tag != sql.NodeSelectList {
			return nil, self.err(sql.ErrMalformedStatement, "select without select list")
		}

		if node.FindChild(sql.NodeLimit) >= 0 {
			return self.buildLimit(node)
		}

		agg, err := self.hasAggregateInSelectList(node)
		if err != nil {
			return nil, err
		}
		if hasGroupBy(node) || agg {
			return self.buildGroupBy(node)
		}

		if node.FindChild(sql.NodeFrom) >= 0 {
			return self.buildTableScan(node)
		}
		return self.buildTablelessSelect(node)
	}

	return nil, self.err(
		sql.ErrInternal,
		"no plan builder for statement %s",
		sql.NodeName(node.Tag),
	)
}

// columnNames returns the output name of each select list entry, the alias
// when declared otherwise the text of the expression. * expands to all the
// columns given.
func columnNames(list *sql.Node, all []string) []string {
	out := make([]string, 0, len(list.Children))
	for _, col := range list.Children {
		switch col.Tag {
		case sql.NodeAll:
			out = append(out, all...)
		case sql.NodeDerivedColumn:
			if alias := col.Child(sql.NodeColumnAlias); alias != nil {
				out = append(out, alias.Text())
			} else if len(col.Children) > 0 {
				out = append(out, sql.FormatExpr(col.Children[0]))
			}
		}
	}
	return out
}
