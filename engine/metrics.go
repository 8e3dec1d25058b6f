package engine

import (
	"strings"

	"github.com/dianpeng/metricql/plan"
	"github.com/dianpeng/metricql/sql"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus metrics of the query engine.
type Metrics struct {
	Statements    *prometheus.CounterVec
	CompileErrors *prometheus.CounterVec
	Duration      prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	statements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricql_statements_compiled_total",
		Help: "Statements compiled into a plan, by kind of plan root",
	}, []string{"kind"})

	compileErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricql_compile_errors_total",
		Help: "Queries rejected while compiling, by error kind",
	}, []string{"kind"})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "metricql_query_duration_seconds",
		Help:    "Time spent to compile and execute a query",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(statements, compileErrors, duration)

	return &Metrics{
		Statements:    statements,
		CompileErrors: compileErrors,
		Duration:      duration,
	}
}

func planKind(e plan.Executable) string {
	switch e.(type) {
	case *plan.TableScan:
		return "table_scan"
	case *plan.TablelessSelect:
		return "tableless_select"
	case *plan.GroupBy:
		return "group_by"
	case *plan.LimitClause:
		return "limit"
	case *plan.SeriesStatement:
		return "series"
	case *plan.DrawStatement:
		return "draw"
	default:
		return "unknown"
	}
}

// label of an error kind, "unknown function" becomes unknown_function
func errorKind(err error) string {
	kind := sql.KindOf(err)
	if kind == nil {
		return "other"
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}
