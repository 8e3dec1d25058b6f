package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus metrics of the HTTP API.
type Metrics struct {
	Requests        *prometheus.CounterVec
	SamplesInserted prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricql_http_requests_total",
		Help: "HTTP requests served, by route and status code",
	}, []string{"route", "code"})

	samplesInserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricql_samples_inserted_total",
		Help: "Samples inserted through the HTTP API",
	})

	reg.MustRegister(requests, samplesInserted)

	return &Metrics{
		Requests:        requests,
		SamplesInserted: samplesInserted,
	}
}

// instrument counts every request by its matched route pattern.
func (self *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		self.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	})
}
