package plan

import (
	"github.com/dianpeng/metricql/cg"
	"github.com/dianpeng/metricql/sql"
)

// GroupBy planning
// ----------------------------------------------------------------------------
// The statement is split into 2 parts:
//
//  1. a child select which produces exactly the columns needed by the
//     grouping keys and the outer select list, with the grouping removed
//  2. the outer select list and the grouping keys, both rewritten to
//     reference the child's output columns
//
// The child list reads [grouping columns..., other columns...]. Nothing of the
// input statement is mutated, every rewrite happens on clones.

func (self *Planner) buildGroupBy(node *sql.Node) (Executable, error) {
	selectList := node.Children[0]
	if selectList.FindChild(sql.NodeAll) >= 0 {
		return nil, self.err(sql.ErrMalformedStatement, "* cannot be used together with aggregation")
	}

	outer := selectList.Clone()
	childList := sql.NewNode(sql.NodeSelectList)
	group := sql.NewNode(sql.NodeGroupBy)

	// grouping keys
	for _, clause := range node.Children {
		if clause.Tag != sql.NodeGroupBy {
			continue
		}
		for _, expr := range clause.Children {
			key, err := self.groupKey(expr, selectList)
			if err != nil {
				return nil, err
			}
			if err := pushDown(key, childList); err != nil {
				return nil, err
			}
			group.AppendChild(key)
		}
	}

	// outer select list
	if err := pushDown(outer, childList); err != nil {
		return nil, err
	}

	child := node.Clone()
	child.RemoveChild(0)
	child.InsertChild(0, childList)
	for idx := child.FindChild(sql.NodeGroupBy); idx >= 0; idx = child.FindChild(sql.NodeGroupBy) {
		child.RemoveChild(idx)
	}

	selectExpr, err := (&cg.Compiler{
		Symbols:   self.Symbols,
		Aggregate: true,
	}).Compile(outer, "select")
	if err != nil {
		return nil, err
	}

	groupExpr, err := (&cg.Compiler{
		Symbols:   self.Symbols,
		Aggregate: true,
	}).Compile(group, "group")
	if err != nil {
		return nil, err
	}
	if groupExpr.Slots != 0 {
		return nil, self.err(sql.ErrMalformedStatement, "aggregate is not allowed inside of group by")
	}

	childPlan, err := self.Build(child)
	if err != nil {
		return nil, err
	}

	return &GroupBy{
		OutputColumns: columnNames(selectList, nil),
		Select:        selectExpr,
		Group:         groupExpr,
		SelectSlots:   selectExpr.Slots,
		Child:         childPlan,
	}, nil
}

// groupKey returns a private copy of a grouping expression. A bare name that
// matches an alias of the select list stands for the aliased expression.
func (self *Planner) groupKey(expr *sql.Node, selectList *sql.Node) (*sql.Node, error) {
	if expr.Tag != sql.NodeColumnName {
		return expr.Clone(), nil
	}

	for _, col := range selectList.Children {
		if col.Tag != sql.NodeDerivedColumn || len(col.Children) == 0 {
			continue
		}
		alias := col.Child(sql.NodeColumnAlias)
		if alias == nil || alias.Text() != expr.Text() {
			continue
		}
		agg, err := self.hasAggregateExpression(col.Children[0])
		if err != nil {
			return nil, err
		}
		if agg {
			return nil, self.err(
				sql.ErrMalformedStatement,
				"group by %s refers to an aggregate",
				expr.Text(),
			)
		}
		return col.Children[0].Clone(), nil
	}

	return expr.Clone(), nil
}
