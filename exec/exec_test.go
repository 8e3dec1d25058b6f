package exec

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/dianpeng/metricql/plan"
	"github.com/dianpeng/metricql/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTable struct {
	columns []string
	rows    []plan.Row
	scanned int
}

func (self *memTable) Columns() []string { return self.columns }

func (self *memTable) Scan(ctx context.Context, from, to int64, visit func(plan.Row) bool) error {
	for _, r := range self.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, _ := strconv.ParseInt(r[0], 10, 64)
		if t < from || t >= to {
			continue
		}
		self.scanned++
		if !visit(r) {
			break
		}
	}
	return nil
}

func testTable() *memTable {
	return &memTable{
		columns: []string{"time", "value", "k"},
		rows: []plan.Row{
			{"1", "10", "a"},
			{"2", "20", "b"},
			{"3", "30", "a"},
			{"4", "40", "b"},
			{"5", "50", "c"},
		},
	}
}

func query(t *testing.T, q string, tables plan.TableMap) (*Result, error) {
	stmts, err := sql.Parse(q)
	require.NoError(t, err, q)
	require.Len(t, stmts, 1)

	e, err := plan.BuildPlan(stmts[0], tables)
	require.NoError(t, err, q)
	return Run(context.Background(), e)
}

func rows(t *testing.T, q string) [][]string {
	res, err := query(t, q, plan.TableMap{"m": testTable()})
	require.NoError(t, err, q)
	return res.Rows
}

func TestTableScan(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(
		[][]string{{"2", "40"}, {"3", "60"}},
		rows(t, "select time, value * 2 from m where time >= 2 and time < 4"),
	)
	assert.Equal(
		[][]string{{"a"}, {"a"}},
		rows(t, "select k from m where k like 'a%'"),
	)
	assert.Equal(
		[][]string{{"4", "40", "b"}, {"5", "50", "c"}},
		rows(t, "select * from m where value > 30"),
	)
	assert.Equal(
		[][]string{{""}},
		rows(t, "select value / 0 from m where time = 1"),
	)
	assert.Empty(rows(t, "select time from m where time > 100"))
}

func TestTableScanRange(t *testing.T) {
	assert := assert.New(t)

	tbl := testTable()
	res, err := query(t, "select value from m where time > 3", plan.TableMap{"m": tbl})
	assert.NoError(err)
	assert.Equal([][]string{{"40"}, {"50"}}, res.Rows)

	// rows outside of the narrowed range never reach the program
	assert.Equal(2, tbl.scanned)
}

func TestTableless(t *testing.T) {
	assert := assert.New(t)

	res, err := query(t, "select 1 + 2 as three, concat('a', 1)", nil)
	assert.NoError(err)
	assert.Equal([]string{"three", "concat('a', 1)"}, res.Columns)
	assert.Equal([][]string{{"3", "a1"}}, res.Rows)
}

func TestGroupBy(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(
		[][]string{{"a", "20"}, {"b", "30"}, {"c", "50"}},
		rows(t, "select k, avg(value) as v from m group by k"),
	)
	assert.Equal(
		[][]string{{"5", "150"}},
		rows(t, "select count(*), sum(value) from m"),
	)
	assert.Equal(
		[][]string{{"a", "2", "5"}},
		rows(t, "select k, count(*), last(time) + 2 from m where k = 'a' group by k"),
	)

	// no input rows, no groups
	assert.Empty(rows(t, "select count(*) from m where value > 100"))
}

func TestLimit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([][]string{{"2"}, {"3"}}, rows(t, "select time from m limit 2 offset 1"))
	assert.Equal([][]string{{"5"}}, rows(t, "select time from m limit 10 offset 4"))
	assert.Empty(rows(t, "select time from m limit 0"))
	assert.Empty(rows(t, "select time from m limit 2 offset 5"))
	assert.Equal(
		[][]string{{"b", "60"}},
		rows(t, "select k, sum(value) from m group by k limit 1 offset 1"),
	)
}

func TestSeries(t *testing.T) {
	assert := assert.New(t)

	{
		res, err := query(t, "series k from select time, value from m where time <= 2", plan.TableMap{"m": testTable()})
		assert.NoError(err)
		assert.Equal([]string{"series", "time", "value"}, res.Columns)
		assert.Equal([][]string{{"a", "1", "10"}, {"b", "2", "20"}}, res.Rows)
	}

	assert.Equal(
		[][]string{{"a", "3", "40"}, {"b", "4", "60"}, {"c", "5", "50"}},
		rows(t, "series k from select max(time) as t, sum(value) as s from m group by k"),
	)
	assert.Equal(
		[][]string{{"cpu", "1"}},
		rows(t, "series 'cpu' from select time from m limit 1"),
	)
	assert.Equal(
		[][]string{{"a", "1", "10", "a"}, {"b", "2", "20", "b"}},
		rows(t, "series k from select * from m where time <= 2"),
	)
}

func TestDraw(t *testing.T) {
	assert := assert.New(t)

	res, err := query(t, "draw area chart", nil)
	assert.NoError(err)
	assert.Equal("area", res.Chart)
	assert.Empty(res.Rows)
	assert.Nil(res.Columns)
}

func TestSanitize(t *testing.T) {
	assert := assert.New(t)

	tbl := &memTable{
		columns: []string{"time", "value"},
		rows:    []plan.Row{{"1", "a\037b\036c"}},
	}
	res, err := query(t, "select value from m", plan.TableMap{"m": tbl})
	assert.NoError(err)
	assert.Equal([][]string{{"a b c"}}, res.Rows)
}

func TestCancel(t *testing.T) {
	assert := assert.New(t)

	stmts, err := sql.Parse("select value from m")
	require.NoError(t, err)
	e, err := plan.BuildPlan(stmts[0], plan.TableMap{"m": testTable()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, e)
	assert.True(errors.Is(err, context.Canceled))
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(decode("", 2))
	assert.Equal([][]string{{}, {}}, decode("\036\036", 0))
	assert.Equal([][]string{{"a", ""}}, decode("a\036", 2))
	assert.Equal([][]string{{"a", "b"}}, decode("a\037b\037c\036", 2))
	assert.Equal([][]string{{"a", "b"}, {"c", ""}}, decode("a\037b\036c\037\036", 2))
}

func TestFormat(t *testing.T) {
	assert := assert.New(t)

	f := DefaultFormat()
	f.NoColor = true
	f.Padding = 4

	buf := &bytes.Buffer{}
	err := f.Write(buf, &Result{
		Columns: []string{"k", "value"},
		Rows:    [][]string{{"a", "20"}, {"bbbbbb", "3"}},
	})
	assert.NoError(err)
	assert.Equal(
		`--------------
k      | value
--------------
a      | 20
bbbbbb | 3
--------------
`,
		buf.String(),
	)

	buf.Reset()
	assert.NoError(f.Write(buf, &Result{Chart: "bar"}))
	assert.Equal("chart: bar\n", buf.String())
}
