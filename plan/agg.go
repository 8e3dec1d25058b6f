package plan

import (
	"github.com/dianpeng/metricql/sql"
)

// Aggregate detection. A select is planned as a group by when it carries a
// GROUP BY clause or when any aggregate call shows up inside of its select
// list, ie "select count(*) from m" is a group by with a single empty key.

func hasGroupBy(node *sql.Node) bool {
	if node.Tag != sql.NodeSelect || len(node.Children) < 2 {
		return false
	}
	return node.FindChild(sql.NodeGroupBy) >= 0
}

func (self *Planner) hasAggregateInSelectList(node *sql.Node) (bool, error) {
	if node.Tag != sql.NodeSelect || len(node.Children) < 2 {
		return false, nil
	}
	return self.hasAggregateExpression(node.Children[0])
}

// hasAggregateExpression reports whether any method call inside of the tree
// resolves to an aggregate symbol, stopping at the first one found.
func (self *Planner) hasAggregateExpression(node *sql.Node) (bool, error) {
	if node.Tag == sql.NodeMethodCall {
		sym, ok := self.Symbols.Lookup(node.Text())
		if !ok {
			return false, self.err(sql.ErrUnknownFunction, "function %s is not defined", node.Text())
		}
		if sym.Aggregate {
			return true, nil
		}
	}

	for _, c := range node.Children {
		if yes, err := self.hasAggregateExpression(c); err != nil || yes {
			return yes, err
		}
	}
	return false, nil
}
