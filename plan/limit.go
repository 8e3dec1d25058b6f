package plan

import (
	"github.com/dianpeng/metricql/sql"
)

// LIMIT n [OFFSET m] wraps the plan of the statement without its limit.
func (self *Planner) buildLimit(node *sql.Node) (Executable, error) {
	idx := node.FindChild(sql.NodeLimit)
	clause := node.Children[idx]

	limit, err := self.limitValue(clause, "limit")
	if err != nil {
		return nil, err
	}

	offset := int64(0)
	if o := clause.Child(sql.NodeOffset); o != nil {
		if offset, err = self.limitValue(o, "offset"); err != nil {
			return nil, err
		}
	}

	inner := node.Clone()
	inner.RemoveChild(idx)

	child, err := self.Build(inner)
	if err != nil {
		return nil, err
	}

	return &LimitClause{
		Limit:  limit,
		Offset: offset,
		Child:  child,
	}, nil
}

func (self *Planner) limitValue(n *sql.Node, what string) (int64, error) {
	if n.Token == nil || n.Token.Type != sql.TkInt {
		return 0, self.err(sql.ErrMalformedStatement, "%s requires an integer", what)
	}
	if n.Token.Int < 0 {
		return 0, self.err(sql.ErrMalformedStatement, "%s cannot be negative", what)
	}
	return n.Token.Int, nil
}
