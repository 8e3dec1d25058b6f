package plan

import (
	"github.com/dianpeng/metricql/cg"
	"github.com/dianpeng/metricql/sql"
)

func (self *Planner) buildTableScan(node *sql.Node) (Executable, error) {
	from := node.Child(sql.NodeFrom)
	if len(from.Children) == 0 || from.Children[0].Tag != sql.NodeTableName {
		return nil, self.err(sql.ErrMalformedStatement, "from without table name")
	}
	table := from.Children[0].Text()

	var source ScanSource
	ok := false
	if self.Tables != nil {
		source, ok = self.Tables.Resolve(table)
	}
	if !ok {
		return nil, self.err(sql.ErrUnknownTable, "table %s is not found", table)
	}

	compiler := &cg.Compiler{
		Symbols: self.Symbols,
		Columns: source.Columns(),
	}

	sel, err := compiler.Compile(node.Children[0], "select")
	if err != nil {
		return nil, err
	}

	scan := &TableScan{
		OutputColumns: columnNames(node.Children[0], source.Columns()),
		Table:         table,
		Source:        source,
		Select:        sel,
		From:          MinTime,
		To:            MaxTime,
	}

	if where := node.Child(sql.NodeWhere); where != nil {
		if len(where.Children) != 1 {
			return nil, self.err(sql.ErrMalformedStatement, "where requires exactly one condition")
		}
		cond := where.Children[0]
		if scan.Where, err = compiler.Compile(cond, "where"); err != nil {
			return nil, err
		}
		if hasColumn(source.Columns(), timeColumn) {
			scan.From, scan.To = timeRange(cond)
		}
	}

	return scan, nil
}

func (self *Planner) buildTablelessSelect(node *sql.Node) (Executable, error) {
	if len(node.Children) > 1 {
		return nil, self.err(
			sql.ErrMalformedStatement,
			"%s requires a table to select from",
			sql.NodeName(node.Children[1].Tag),
		)
	}

	sel, err := (&cg.Compiler{
		Symbols: self.Symbols,
	}).Compile(node.Children[0], "select")
	if err != nil {
		return nil, err
	}

	return &TablelessSelect{
		OutputColumns: columnNames(node.Children[0], nil),
		Select:        sel,
	}, nil
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
