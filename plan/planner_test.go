package plan

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/dianpeng/metricql/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTable struct {
	columns []string
	rows    []Row
}

func (self *memTable) Columns() []string { return self.columns }

func (self *memTable) Scan(ctx context.Context, from, to int64, visit func(Row) bool) error {
	for _, r := range self.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, _ := strconv.ParseInt(r[0], 10, 64)
		if t < from || t >= to {
			continue
		}
		if !visit(r) {
			break
		}
	}
	return nil
}

func testTables() TableMap {
	return TableMap{
		"m": &memTable{columns: []string{"time", "value", "k"}},
	}
}

func parse(t *testing.T, q string) *sql.Node {
	stmts, err := sql.Parse(q)
	require.NoError(t, err, q)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func build(t *testing.T, q string) (Executable, error) {
	return BuildPlan(parse(t, q), testTables())
}

func mustBuild(t *testing.T, q string) Executable {
	e, err := build(t, q)
	require.NoError(t, err, q)
	return e
}

func TestExampleGroupBy(t *testing.T) {
	assert := assert.New(t)

	node := parse(t, "select avg(value) from m group by k")
	before := sql.PrintNode(node)

	e, err := BuildPlan(node, testTables())
	require.NoError(t, err)

	// the input statement is never touched
	assert.Equal(before, sql.PrintNode(node))

	g, ok := e.(*GroupBy)
	require.True(t, ok)
	assert.Equal([]string{"avg(value)"}, g.Columns())

	child, ok := g.Child.(*TableScan)
	require.True(t, ok)
	assert.Equal([]string{"k", "value"}, child.Columns())

	assert.Equal(0, g.Group.Slots)
	assert.Equal(1, g.Group.Width)
	assert.Contains(g.Group.Source, "out[0] = $1")

	assert.True(g.SelectSlots > 0)
	assert.Equal(g.Select.Slots, g.SelectSlots)
	assert.Contains(g.Select.Source, "($2) + 0")
}

func TestExampleSeries(t *testing.T) {
	assert := assert.New(t)

	{
		e := mustBuild(t, "series 'cpu' from select time, value from m")
		s, ok := e.(*SeriesStatement)
		require.True(t, ok)
		assert.Equal([]string{"series", "time", "value"}, s.Columns())
		assert.Equal(2, s.Axes)
		assert.Equal(0, s.Name.Slots)
	}

	{
		node := parse(t, "series k from select time from m")
		before := sql.PrintNode(node)

		e, err := BuildPlan(node, testTables())
		require.NoError(t, err)
		assert.Equal(before, sql.PrintNode(node))

		s := e.(*SeriesStatement)
		assert.Equal([]string{"series", "time"}, s.Columns())
		assert.Equal(1, s.Axes)
		assert.Equal([]string{"time", "k"}, s.Child.Columns())
		assert.Contains(s.Name.Source, "out[0] = $2")
	}

	{
		// the name reuses a column already selected
		e := mustBuild(t, "series k from select time, k from m")
		s := e.(*SeriesStatement)
		assert.Equal([]string{"series", "time", "k"}, s.Columns())
		assert.Equal([]string{"time", "k"}, s.Child.Columns())
	}

	{
		e := mustBuild(t, "series 'x' from select * from m")
		assert.Equal([]string{"series", "time", "value", "k"}, e.Columns())
	}

	{
		// * is expanded before the name is resolved
		e := mustBuild(t, "series k from select * from m")
		s := e.(*SeriesStatement)
		assert.Equal([]string{"series", "time", "value", "k"}, s.Columns())
		assert.Equal(3, s.Axes)
		assert.Equal([]string{"time", "value", "k"}, s.Child.Columns())
		assert.Contains(s.Name.Source, "out[0] = $3")
	}

	{
		e := mustBuild(t, "series k from select time, avg(value) as v from m group by k")
		s := e.(*SeriesStatement)
		assert.Equal([]string{"series", "time", "v"}, s.Columns())
		g := s.Child.(*GroupBy)
		assert.Equal([]string{"time", "v", "k"}, g.Columns())
	}
}

func TestExampleDraw(t *testing.T) {
	assert := assert.New(t)

	e := mustBuild(t, "draw bar chart")
	assert.Equal(&DrawStatement{ChartType: ChartBar}, e)
	assert.Nil(e.Columns())

	assert.Equal(&DrawStatement{ChartType: ChartLine}, mustBuild(t, "draw line"))
	assert.Equal(&DrawStatement{ChartType: ChartArea}, mustBuild(t, "draw AREA"))

	_, err := build(t, "draw pie chart")
	assert.True(errors.Is(err, sql.ErrUnsupportedChartType))
}

func TestNeverGroupByWithoutAggregate(t *testing.T) {
	assert := assert.New(t)

	for _, q := range []string{
		"select * from m",
		"select time, value * 2 from m where value > 1",
		"select abs(value), upper(k) from m",
		"select time from m limit 3",
		"select 1 + 2",
		"series 'a' from select time, value from m",
	} {
		e := mustBuild(t, q)
		for e != nil {
			_, isGroup := e.(*GroupBy)
			assert.False(isGroup, q)
			switch x := e.(type) {
			case *LimitClause:
				e = x.Child
			case *SeriesStatement:
				e = x.Child
			default:
				e = nil
			}
		}
	}
}

func TestGroupKeyNeverAggregates(t *testing.T) {
	assert := assert.New(t)

	for _, q := range []string{
		"select avg(value) from m group by k",
		"select k, count(*) from m group by k, time",
		"select k as key, sum(value) from m group by key",
		"select count(*) from m",
		"select max(value) - min(value) from m group by k limit 2",
	} {
		e := mustBuild(t, q)
		if l, ok := e.(*LimitClause); ok {
			e = l.Child
		}
		g, ok := e.(*GroupBy)
		if assert.True(ok, q) {
			assert.Equal(0, g.Group.Slots, q)
		}
	}

	_, err := build(t, "select k from m group by sum(value)")
	assert.True(errors.Is(err, sql.ErrMalformedStatement), "%v", err)
}

func TestGroupByAlias(t *testing.T) {
	assert := assert.New(t)

	{
		e := mustBuild(t, "select k as key, count(*) as n from m group by key")
		g := e.(*GroupBy)
		assert.Equal([]string{"key", "n"}, g.Columns())
		assert.Equal([]string{"k"}, g.Child.Columns())
	}

	{
		_, err := build(t, "select sum(value) as s from m group by s")
		assert.True(errors.Is(err, sql.ErrMalformedStatement))
	}

	{
		e := mustBuild(t, "select count(*) from m")
		g := e.(*GroupBy)
		assert.Equal(0, g.Group.Width)
		assert.Empty(g.Child.Columns())
	}

	{
		_, err := build(t, "select * from m group by k")
		assert.True(errors.Is(err, sql.ErrMalformedStatement))
	}
}

func TestLimit(t *testing.T) {
	assert := assert.New(t)

	e := mustBuild(t, "select time from m limit 10 offset 2")
	l, ok := e.(*LimitClause)
	require.True(t, ok)
	assert.Equal(int64(10), l.Limit)
	assert.Equal(int64(2), l.Offset)
	assert.Equal([]string{"time"}, l.Columns())
	_, ok = l.Child.(*TableScan)
	assert.True(ok)

	e = mustBuild(t, "select count(*) as n from m limit 1")
	l = e.(*LimitClause)
	assert.Equal(int64(0), l.Offset)
	_, ok = l.Child.(*GroupBy)
	assert.True(ok)
}

func TestTableScanAndTableless(t *testing.T) {
	assert := assert.New(t)

	{
		e := mustBuild(t, "select * from m")
		s := e.(*TableScan)
		assert.Equal([]string{"time", "value", "k"}, s.Columns())
		assert.Nil(s.Where)
		assert.Equal(MinTime, s.From)
		assert.Equal(MaxTime, s.To)
	}

	{
		e := mustBuild(t, "select value as v, k from m where time >= 10 and time < 20 and value > 1")
		s := e.(*TableScan)
		assert.Equal([]string{"v", "k"}, s.Columns())
		assert.NotNil(s.Where)
		assert.Equal(int64(10), s.From)
		assert.Equal(int64(20), s.To)
	}

	{
		e := mustBuild(t, "select 1 + 1 as two, 'x'")
		s, ok := e.(*TablelessSelect)
		require.True(t, ok)
		assert.Equal([]string{"two", "'x'"}, s.Columns())
	}
}

func TestBuildError(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		q    string
		kind error
	}{
		{"select value from nope", sql.ErrUnknownTable},
		{"select foo(value) from m", sql.ErrUnknownFunction},
		{"select foo(1)", sql.ErrUnknownFunction},
		{"select nope from m", sql.ErrUnknownColumn},
		{"select count(1)", sql.ErrMalformedStatement},
		{"series sum(value) from select time from m", sql.ErrMalformedStatement},
		{"series k from select * from m group by k", sql.ErrMalformedStatement},
		{"series k from select * from nope", sql.ErrUnknownTable},
		{"series k from select time from nope", sql.ErrUnknownTable},
	} {
		_, err := build(t, tc.q)
		assert.Error(err, tc.q)
		assert.True(errors.Is(err, tc.kind), "%s: %v", tc.q, err)
	}

	p := New(nil, testTables())
	_, err := p.Build(sql.NewNode(sql.NodeLiteral))
	assert.True(errors.Is(err, sql.ErrInternal))

	_, err = p.Build(nil)
	assert.True(errors.Is(err, sql.ErrInternal))

	_, err = p.Build(sql.NewNode(sql.NodeSelect))
	assert.True(errors.Is(err, sql.ErrMalformedStatement))

	_, err = p.Build(sql.NewNode(sql.NodeSeries, sql.NewNode(sql.NodeSeriesName)))
	assert.True(errors.Is(err, sql.ErrMalformedStatement))

	_, err = BuildPlan(parse(t, "select time from m"), nil)
	assert.True(errors.Is(err, sql.ErrUnknownTable))
}

func TestBuildQuery(t *testing.T) {
	assert := assert.New(t)

	stmts, err := sql.Parse("draw line; series 'a' from select time, value from m")
	require.NoError(t, err)

	p := New(nil, testTables())
	plans, err := p.BuildQuery(stmts)
	assert.NoError(err)
	assert.Len(plans, 2)

	stmts, err = sql.Parse("draw line; draw pie")
	require.NoError(t, err)
	_, err = p.BuildQuery(stmts)
	assert.True(errors.Is(err, sql.ErrUnsupportedChartType))
}

func TestPrint(t *testing.T) {
	assert := assert.New(t)

	e := mustBuild(t, "select avg(value) as v from m where time > 5 group by k limit 3")
	assert.Equal(
		`##> Limit
Limit: 3
Offset: 0
  ##> GroupBy
  Columns: v
  Keys: 1
  Slots: 2
    ##> TableScan
    Table: m
    Columns: k, value
    Range: [6, +inf)
    Filter: true
`,
		Print(e),
	)
}
