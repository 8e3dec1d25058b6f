package engine

import (
	"context"
	"strings"
	"time"

	"github.com/dianpeng/metricql/exec"
	"github.com/dianpeng/metricql/plan"
	"github.com/dianpeng/metricql/sql"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// Engine turns query text into results: the text is parsed into statements,
// every statement is built into a plan tree, and the trees are executed in
// order.
type Engine struct {
	logger  log.Logger
	metrics *Metrics
	planner *plan.Planner
}

func New(tables plan.TableRepository, logger log.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		logger:  logger,
		metrics: metrics,
		planner: plan.New(nil, tables),
	}
}

// Query is a compiled query, one plan per statement.
type Query struct {
	ID    string
	Text  string
	Plans []plan.Executable
}

// Compile parses and plans text without executing anything.
func (self *Engine) Compile(text string) (*Query, error) {
	q := &Query{
		ID:   uuid.NewString(),
		Text: text,
	}
	logger := log.With(self.logger, "query", q.ID)

	stmts, err := sql.Parse(text)
	if err == nil {
		q.Plans, err = self.planner.BuildQuery(stmts)
	}
	if err != nil {
		level.Debug(logger).Log("msg", "compile failed", "err", err)
		if self.metrics != nil {
			self.metrics.CompileErrors.WithLabelValues(errorKind(err)).Inc()
		}
		return nil, err
	}

	if self.metrics != nil {
		for _, p := range q.Plans {
			self.metrics.Statements.WithLabelValues(planKind(p)).Inc()
		}
	}
	level.Debug(logger).Log("msg", "compiled", "statements", len(q.Plans))
	return q, nil
}

// Execute runs every plan of q in order.
func (self *Engine) Execute(ctx context.Context, q *Query) ([]*exec.Result, error) {
	out := []*exec.Result{}
	for i, p := range q.Plans {
		res, err := exec.Run(ctx, p)
		if err != nil {
			level.Error(self.logger).Log(
				"msg", "execution failed",
				"query", q.ID,
				"statement", i,
				"err", err,
			)
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Run compiles and executes text.
func (self *Engine) Run(ctx context.Context, text string) ([]*exec.Result, error) {
	start := time.Now()
	if self.metrics != nil {
		defer func() {
			self.metrics.Duration.Observe(time.Since(start).Seconds())
		}()
	}

	q, err := self.Compile(text)
	if err != nil {
		return nil, err
	}

	res, err := self.Execute(ctx, q)
	if err != nil {
		return nil, err
	}

	level.Info(self.logger).Log(
		"msg", "query done",
		"query", q.ID,
		"statements", len(q.Plans),
		"duration", time.Since(start),
	)
	return res, nil
}

// Explain compiles text and dumps its plans.
func (self *Engine) Explain(text string) (string, error) {
	q, err := self.Compile(text)
	if err != nil {
		return "", err
	}
	buf := []string{}
	for _, p := range q.Plans {
		buf = append(buf, plan.Print(p))
	}
	return strings.Join(buf, "\n"), nil
}
