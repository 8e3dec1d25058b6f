package plan

import (
	"errors"
	"testing"

	"github.com/dianpeng/metricql/sql"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func expr(t *testing.T, q string) *sql.Node {
	return parse(t, "select "+q).Children[0].Children[0].Children[0]
}

func TestPushDownOrderPreserving(t *testing.T) {
	assert := assert.New(t)

	src := expr(t, "avg(b) + a * b - concat(c, a)")

	e1, l1 := src.Clone(), sql.NewNode(sql.NodeSelectList)
	e2, l2 := src.Clone(), sql.NewNode(sql.NodeSelectList)

	assert.NoError(pushDown(e1, l1))
	assert.NoError(pushDown(e2, l2))

	assert.Len(l1.Children, len(l2.Children))
	assert.Empty(cmp.Diff(l1, l2))
	assert.Empty(cmp.Diff(e1, e2))

	assert.Equal(
		"(SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME b)) (DERIVED_COLUMN (COLUMN_NAME a)) (DERIVED_COLUMN (COLUMN_NAME c)))",
		sql.PrintNode(l1),
	)
}

func TestPushDownRewrite(t *testing.T) {
	assert := assert.New(t)

	e := expr(t, "a + a + b")
	l := sql.NewNode(sql.NodeSelectList)
	assert.NoError(pushDown(e, l))

	assert.Equal(
		"(ADD_EXPR (ADD_EXPR (RESOLVED_COLUMN #0 a) (RESOLVED_COLUMN #0 a)) (RESOLVED_COLUMN #1 b))",
		sql.PrintNode(e),
	)
	assert.Len(l.Children, 2)

	// derived columns are independent from the rewritten expression
	assert.Equal(sql.NodeColumnName, l.Children[0].Children[0].Tag)
}

func TestPushDownAlias(t *testing.T) {
	assert := assert.New(t)

	target := parse(t, "select time, value * 2 as v").Children[0]
	e := expr(t, "v + time")
	assert.NoError(pushDown(e, target))

	assert.Len(target.Children, 2)
	assert.Equal(
		"(ADD_EXPR (RESOLVED_COLUMN #1 v) (RESOLVED_COLUMN #0 time))",
		sql.PrintNode(e),
	)
}

func TestPushDownFailurePropagates(t *testing.T) {
	assert := assert.New(t)

	target := parse(t, "select *").Children[0]
	e := expr(t, "abs(abs(1 + a))")
	err := pushDown(e, target)
	assert.True(errors.Is(err, sql.ErrRewriteFailure))
	assert.Len(target.Children, 1)

	// nothing to resolve, nothing to fail
	assert.NoError(pushDown(expr(t, "1 + 2"), target))
}

func TestAggregateDetection(t *testing.T) {
	assert := assert.New(t)
	p := New(nil, testTables())

	assert.True(hasGroupBy(parse(t, "select k from m group by k")))
	assert.False(hasGroupBy(parse(t, "select k from m")))
	assert.False(hasGroupBy(sql.NewNode(sql.NodeGroupBy)))

	for _, tc := range []struct {
		q   string
		agg bool
	}{
		{"select avg(value) from m", true},
		{"select abs(value) + 1 from m", false},
		{"select 1 + abs(max(value)) from m", true},
		{"select value from m where sum(value) > 1", false},
		// a single child select is never considered
		{"select count(1)", false},
	} {
		yes, err := p.hasAggregateInSelectList(parse(t, tc.q))
		assert.NoError(err, tc.q)
		assert.Equal(tc.agg, yes, tc.q)
	}

	_, err := p.hasAggregateInSelectList(parse(t, "select nope(value) from m"))
	assert.True(errors.Is(err, sql.ErrUnknownFunction))

	yes, err := p.hasAggregateExpression(expr(t, "1 + count(*)"))
	assert.NoError(err)
	assert.True(yes)
}
