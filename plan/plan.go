package plan

import (
	"context"
	"math"

	"github.com/dianpeng/metricql/cg"
)

// Row is one record flowing between plan nodes, each field is the textual
// value of the corresponding output column.
type Row []string

// ScanSource is a table that can be scanned by time range. Scan invokes visit
// once per record in ascending time order within [from, to), returning false
// from visit stops the scan early.
type ScanSource interface {
	Columns() []string
	Scan(ctx context.Context, from, to int64, visit func(Row) bool) error
}

// TableRepository resolves a table name into a scannable source.
type TableRepository interface {
	Resolve(name string) (ScanSource, bool)
}

// TableMap is the simplest TableRepository, mostly useful for tests.
type TableMap map[string]ScanSource

func (self TableMap) Resolve(name string) (ScanSource, bool) {
	s, ok := self[name]
	return s, ok
}

const (
	ChartBar = iota
	ChartLine
	ChartArea
)

func ChartName(c int) string {
	switch c {
	case ChartBar:
		return "bar"
	case ChartLine:
		return "line"
	case ChartArea:
		return "area"
	default:
		return "unknown"
	}
}

const (
	MinTime = int64(math.MinInt64)
	MaxTime = int64(math.MaxInt64)
)

// Executable is the root of a plan tree. The set of implementations is
// closed, see the node types below.
type Executable interface {
	// ordered output column names
	Columns() []string

	executable()
}

// TableScan scans a table within [From, To), filters each row with Where and
// emits Select evaluated against it.
type TableScan struct {
	OutputColumns []string
	Table         string
	Source        ScanSource
	Select        *cg.Compiled
	Where         *cg.Compiled // nil when there is no where clause
	From          int64
	To            int64
}

// TablelessSelect evaluates Select exactly once without any row source.
type TablelessSelect struct {
	OutputColumns []string
	Select        *cg.Compiled
}

// GroupBy groups the rows of Child by Group and evaluates Select once per
// group. Select may contain aggregates which need SelectSlots scratch slots
// per group.
type GroupBy struct {
	OutputColumns []string
	Select        *cg.Compiled
	Group         *cg.Compiled
	SelectSlots   int
	Child         Executable
}

// LimitClause keeps the rows of Child in [Offset, Offset+Limit).
type LimitClause struct {
	Limit  int64
	Offset int64
	Child  Executable
}

// SeriesStatement names every row of Child with the value of Name and keeps
// the first Axes columns of it.
type SeriesStatement struct {
	OutputColumns []string
	Name          *cg.Compiled
	Axes          int
	Child         Executable
}

// DrawStatement selects the chart used to render the series of a query.
type DrawStatement struct {
	ChartType int
}

func (self *TableScan) Columns() []string       { return self.OutputColumns }
func (self *TablelessSelect) Columns() []string { return self.OutputColumns }
func (self *GroupBy) Columns() []string         { return self.OutputColumns }
func (self *LimitClause) Columns() []string     { return self.Child.Columns() }
func (self *SeriesStatement) Columns() []string { return self.OutputColumns }
func (self *DrawStatement) Columns() []string   { return nil }

func (self *TableScan) executable()       {}
func (self *TablelessSelect) executable() {}
func (self *GroupBy) executable()         {}
func (self *LimitClause) executable()     {}
func (self *SeriesStatement) executable() {}
func (self *DrawStatement) executable()   {}
