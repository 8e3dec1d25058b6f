package plan

import (
	"github.com/dianpeng/metricql/sql"
)

// Select list push down
// ----------------------------------------------------------------------------
// An outer expression (the select list of a group by, the name of a series)
// is evaluated against the rows produced by a child plan. pushDown makes it
// reference the child's output columns instead of raw column names: each
// COLUMN_NAME is looked up inside of the child's select list, appended as a
// new DERIVED_COLUMN when missing, and then rewritten in place into a
// RESOLVED_COLUMN carrying the index of that entry.
//
// An entry of the target list matches a column name when its expression is
// the very same column name or when its alias equals the name. The first
// matching entry in list order wins, so resolving the same expression twice
// into two fresh lists always yields equal lists.

func pushDown(node *sql.Node, target *sql.Node) error {
	if node.Tag == sql.NodeColumnName {
		idx, err := findColumn(node.Text(), target)
		if err != nil {
			return err
		}
		if idx < 0 {
			idx = target.AppendChild(sql.NewNode(sql.NodeDerivedColumn, node.Clone()))
		}
		node.Tag = sql.NodeResolvedColumn
		node.ID = idx
		return nil
	}

	for _, c := range node.Children {
		if err := pushDown(c, target); err != nil {
			return err
		}
	}
	return nil
}

func findColumn(name string, target *sql.Node) (int, error) {
	for idx, entry := range target.Children {
		switch entry.Tag {
		case sql.NodeAll:
			return -1, sql.NewError(
				sql.ErrRewriteFailure,
				"plan",
				"cannot resolve column %s against a select list with *",
				name,
			)

		case sql.NodeDerivedColumn:
			if len(entry.Children) == 0 {
				continue
			}
			if expr := entry.Children[0]; expr.Tag == sql.NodeColumnName && expr.Text() == name {
				return idx, nil
			}
			if alias := entry.Child(sql.NodeColumnAlias); alias != nil && alias.Text() == name {
				return idx, nil
			}
		}
	}
	return -1, nil
}
