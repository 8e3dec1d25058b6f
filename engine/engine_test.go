package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dianpeng/metricql/metricdb"
	"github.com/dianpeng/metricql/sql"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *Metrics, *bytes.Buffer) {
	repo, err := metricdb.Open(metricdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	m, err := repo.FindOrCreateMetric("cpu.load")
	require.NoError(t, err)
	for i, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, m.AddSample(metricdb.Sample{
			Time:  time.UnixMicro(int64(i + 1)),
			Value: v,
		}))
	}

	logs := &bytes.Buffer{}
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(metricdb.Tables(repo), log.NewLogfmtLogger(logs), metrics), metrics, logs
}

func TestRun(t *testing.T) {
	assert := assert.New(t)
	e, metrics, logs := newEngine(t)

	res, err := e.Run(
		context.Background(),
		`draw line chart;
		 series 'load' from select time, value from "cpu.load" where time >= 2;
		 select sum(value), count(*) from "cpu.load"`,
	)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal("line", res[0].Chart)
	assert.Equal([]string{"series", "time", "value"}, res[1].Columns)
	assert.Equal([][]string{{"load", "2", "2"}, {"load", "3", "3"}, {"load", "4", "4"}}, res[1].Rows)
	assert.Equal([][]string{{"10", "4"}}, res[2].Rows)

	assert.Equal(float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("draw")))
	assert.Equal(float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("series")))
	assert.Equal(float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("group_by")))
	assert.Equal(1, testutil.CollectAndCount(metrics.Duration))
	assert.Contains(logs.String(), "msg=\"query done\"")
}

func TestCompileError(t *testing.T) {
	assert := assert.New(t)
	e, metrics, _ := newEngine(t)

	_, err := e.Run(context.Background(), "select value from nope")
	assert.True(errors.Is(err, sql.ErrUnknownTable))

	_, err = e.Run(context.Background(), "select from")
	assert.True(errors.Is(err, sql.ErrSyntax))

	_, err = e.Compile("draw pie")
	assert.True(errors.Is(err, sql.ErrUnsupportedChartType))

	assert.Equal(float64(1), testutil.ToFloat64(metrics.CompileErrors.WithLabelValues("unknown_table")))
	assert.Equal(float64(1), testutil.ToFloat64(metrics.CompileErrors.WithLabelValues("syntax_error")))
	assert.Equal(float64(1), testutil.ToFloat64(metrics.CompileErrors.WithLabelValues("unsupported_chart_type")))
}

func TestExplain(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)

	out, err := e.Explain(`select avg(value) from "cpu.load" limit 1`)
	assert.NoError(err)
	assert.Contains(out, "##> Limit")
	assert.Contains(out, "##> GroupBy")
	assert.Contains(out, "Table: cpu.load")

	q, err := e.Compile("draw bar; draw area")
	assert.NoError(err)
	assert.Len(q.Plans, 2)
	assert.NotEmpty(q.ID)
}

func TestNilMetrics(t *testing.T) {
	assert := assert.New(t)

	e := New(nil, nil, nil)
	res, err := e.Run(context.Background(), "select 1 + 1")
	assert.NoError(err)
	assert.Equal([][]string{{"2"}}, res[0].Rows)
}
