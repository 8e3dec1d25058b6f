package metricdb

import (
	"context"
	"strconv"

	"github.com/dianpeng/metricql/plan"
)

// Every metric is queryable as a table named by its key. The time column is
// the sample timestamp in microseconds since epoch.

var tableColumns = []string{"time", "value"}

type tables struct {
	repo *Repository
}

// Tables exposes repo to the planner.
func Tables(repo *Repository) plan.TableRepository {
	return &tables{repo: repo}
}

func (self *tables) Resolve(name string) (plan.ScanSource, bool) {
	m, err := self.repo.FindMetric(name)
	if err != nil || m == nil {
		return nil, false
	}
	return &metricTable{metric: m}, true
}

type metricTable struct {
	metric *Metric
}

func (self *metricTable) Columns() []string {
	return tableColumns
}

func (self *metricTable) Scan(
	ctx context.Context,
	from int64,
	to int64,
	visit func(plan.Row) bool,
) error {
	var ctxErr error
	err := self.metric.scan(from, to, func(c *Cursor) bool {
		if ctxErr = ctx.Err(); ctxErr != nil {
			return false
		}
		return visit(plan.Row{
			strconv.FormatInt(c.Time(), 10),
			strconv.FormatFloat(c.Value(), 'f', -1, 64),
		})
	})
	if err != nil {
		return err
	}
	return ctxErr
}
