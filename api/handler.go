package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dianpeng/metricql/engine"
	"github.com/dianpeng/metricql/exec"
	"github.com/dianpeng/metricql/metricdb"
	"github.com/dianpeng/metricql/sql"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxQuerySize = 1 << 20

type Handler struct {
	repo    *metricdb.Repository
	engine  *engine.Engine
	logger  log.Logger
	metrics *Metrics
}

func NewHandler(
	repo *metricdb.Repository,
	eng *engine.Engine,
	logger log.Logger,
	metrics *Metrics,
) *Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handler{
		repo:    repo,
		engine:  eng,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/metrics", h.ListMetrics)
	r.Get("/metrics/*", h.ScanSamples)
	r.Post("/metrics/*", h.InsertSample)
	r.Get("/query", h.Query)
	r.Post("/query", h.Query)
}

// NewRouter wires h and the prometheus endpoint behind the common middlewares.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.instrument)
	}
	r.Use(h.logRequest)

	h.RegisterRoutes(r)
	if gatherer != nil {
		r.Handle("/debug/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		level.Debug(h.logger).Log(
			"msg", "request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

type MetricInfo struct {
	Key string `json:"key"`
}

type MetricListResponse struct {
	Metrics []MetricInfo `json:"metrics"`
}

type SampleInfo struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

type SampleListResponse struct {
	Samples []SampleInfo `json:"samples"`
}

type ResultInfo struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Chart   string     `json:"chart,omitempty"`
}

type QueryResponse struct {
	Results []ResultInfo `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListMetrics()
	if err != nil {
		h.internalError(w, err)
		return
	}

	resp := MetricListResponse{Metrics: []MetricInfo{}}
	for _, m := range list {
		resp.Metrics = append(resp.Metrics, MetricInfo{Key: m.Key()})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func metricKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	if !metricdb.ValidKey(key) {
		return "", fmt.Errorf("invalid metric key: %s", key)
	}
	return key, nil
}

func (h *Handler) ScanSamples(w http.ResponseWriter, r *http.Request) {
	key, err := metricKeyParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.repo.FindMetric(key)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if m == nil {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("metric not found: %s", key))
		return
	}

	resp := SampleListResponse{Samples: []SampleInfo{}}
	err = m.ScanAll(func(c *metricdb.Cursor) bool {
		resp.Samples = append(resp.Samples, SampleInfo{
			Time:  c.Time(),
			Value: c.Value(),
		})
		return true
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) InsertSample(w http.ResponseWriter, r *http.Request) {
	key, err := metricKeyParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	params := r.URL.Query()
	if !params.Has("value") {
		h.writeError(w, http.StatusBadRequest, errors.New("missing ?value=... parameter"))
		return
	}
	raw := params.Get("value")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid value: %s", raw))
		return
	}

	m, err := h.repo.FindOrCreateMetric(key)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if err := m.AddSample(metricdb.Sample{Value: value}); err != nil {
		h.internalError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SamplesInserted.Inc()
	}
	w.WriteHeader(http.StatusCreated)
}

// the query is read from ?q=..., a POST may also carry it as its body
func queryText(r *http.Request) (string, error) {
	if q := r.URL.Query().Get("q"); q != "" {
		return q, nil
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuerySize))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	text, err := queryText(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := QueryResponse{Results: []ResultInfo{}}
	if text == "" {
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	results, err := h.engine.Run(r.Context(), text)
	if err != nil {
		if kind := sql.KindOf(err); kind != nil && kind != sql.ErrInternal {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.internalError(w, err)
		}
		return
	}

	for _, res := range results {
		resp.Results = append(resp.Results, resultInfo(res))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func resultInfo(res *exec.Result) ResultInfo {
	info := ResultInfo{
		Columns: res.Columns,
		Rows:    res.Rows,
		Chart:   res.Chart,
	}
	if info.Columns == nil {
		info.Columns = []string{}
	}
	if info.Rows == nil {
		info.Rows = [][]string{}
	}
	return info
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	level.Error(h.logger).Log("msg", "request failed", "err", err)
	h.writeError(w, http.StatusInternalServerError, err)
}

// writeJSON encodes before writing the header, a value json cannot represent
// turns into a 500 instead of a truncated 200.
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		level.Error(h.logger).Log("msg", "encode response", "err", err)
		buf.Reset()
		statusCode = http.StatusInternalServerError
		json.NewEncoder(buf).Encode(ErrorResponse{Error: "error: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		level.Debug(h.logger).Log("msg", "write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, err error) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: "error: " + err.Error()})
}
