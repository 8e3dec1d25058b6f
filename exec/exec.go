package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
	"github.com/dianpeng/metricql/cg"
	"github.com/dianpeng/metricql/plan"
	"github.com/dianpeng/metricql/sql"
)

// Result is the materialized output of a plan tree.
type Result struct {
	Columns []string
	Rows    [][]string

	// name of the chart selected by a draw statement, empty otherwise
	Chart string
}

// Run executes the plan tree e. Every node which evaluates expressions runs
// as one awk program fed with the rows of its child.
func Run(ctx context.Context, e plan.Executable) (*Result, error) {
	r := &runner{ctx: ctx}
	rows, err := r.run(e)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Columns: e.Columns(),
		Rows:    rows,
	}
	if d, ok := e.(*plan.DrawStatement); ok {
		res.Chart = plan.ChartName(d.ChartType)
	}
	return res, nil
}

type runner struct {
	ctx context.Context
}

func (self *runner) err(format string, args ...interface{}) error {
	return sql.NewError(sql.ErrInternal, "exec", format, args...)
}

func (self *runner) run(e plan.Executable) ([][]string, error) {
	switch x := e.(type) {
	case *plan.TableScan:
		return self.runTableScan(x)

	case *plan.TablelessSelect:
		return self.awk(
			cg.TablelessProgram(x.Select),
			nil,
			len(x.OutputColumns),
		)

	case *plan.GroupBy:
		input, err := self.run(x.Child)
		if err != nil {
			return nil, err
		}
		return self.awk(
			cg.GroupByProgram(x.Group, x.Select),
			encode(input),
			len(x.OutputColumns),
		)

	case *plan.LimitClause:
		input, err := self.run(x.Child)
		if err != nil {
			return nil, err
		}
		return limit(input, x.Offset, x.Limit), nil

	case *plan.SeriesStatement:
		input, err := self.run(x.Child)
		if err != nil {
			return nil, err
		}
		return self.awk(
			cg.SeriesProgram(x.Name, x.Axes),
			encode(input),
			len(x.OutputColumns),
		)

	case *plan.DrawStatement:
		return [][]string{}, nil

	default:
		return nil, self.err("unknown plan node %T", e)
	}
}

func (self *runner) runTableScan(x *plan.TableScan) ([][]string, error) {
	if x.Source == nil {
		return nil, sql.NewError(sql.ErrUnknownTable, "exec", "table %s has no source", x.Table)
	}

	input := &bytes.Buffer{}
	err := x.Source.Scan(
		self.ctx,
		x.From,
		x.To,
		func(r plan.Row) bool {
			writeRow(input, r)
			return true
		},
	)
	if err != nil {
		return nil, err
	}

	return self.awk(
		cg.TableScanProgram(x.Select, x.Where),
		input,
		len(x.OutputColumns),
	)
}

// awk runs one program over input and decodes its output into rows of width
// fields.
func (self *runner) awk(code string, input io.Reader, width int) ([][]string, error) {
	prog, err := gawkp.ParseProgram([]byte(code), nil)
	if err != nil {
		return nil, self.err("cannot parse generated program: %s", err)
	}

	interp, err := gawki.New(prog)
	if err != nil {
		return nil, self.err("cannot load generated program: %s", err)
	}

	if input == nil {
		input = strings.NewReader("")
	}

	output := &bytes.Buffer{}
	_, err = interp.ExecuteContext(
		self.ctx,
		&gawki.Config{
			Stdin:        input,
			Output:       output,
			Error:        io.Discard,
			Environ:      []string{},
			NoExec:       true,
			NoFileWrites: true,
			NoFileReads:  true,
		},
	)
	if err != nil {
		if ctxErr := self.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, self.err("program failed: %s", err)
	}

	return decode(output.String(), width), nil
}

var sanitizer = strings.NewReplacer(
	cg.RecordSeparator, " ",
	cg.FieldSeparator, " ",
)

func writeRow(buf *bytes.Buffer, r []string) {
	for i, f := range r {
		if i > 0 {
			buf.WriteString(cg.FieldSeparator)
		}
		buf.WriteString(sanitizer.Replace(f))
	}
	buf.WriteString(cg.RecordSeparator)
}

func encode(rows [][]string) io.Reader {
	buf := &bytes.Buffer{}
	for _, r := range rows {
		writeRow(buf, r)
	}
	return buf
}

// every record is terminated by the record separator, including the last one,
// so an empty record is still a row when width is 0
func decode(data string, width int) [][]string {
	out := [][]string{}
	records := strings.Split(data, cg.RecordSeparator)
	for _, r := range records[:len(records)-1] {
		if width == 0 {
			out = append(out, []string{})
			continue
		}
		fields := strings.Split(r, cg.FieldSeparator)
		if len(fields) != width {
			fields = fit(fields, width)
		}
		out = append(out, fields)
	}
	return out
}

func fit(fields []string, width int) []string {
	if len(fields) > width {
		return fields[:width]
	}
	out := make([]string, width)
	copy(out, fields)
	return out
}

func limit(rows [][]string, offset, count int64) [][]string {
	n := int64(len(rows))
	if offset >= n {
		return [][]string{}
	}
	end := n
	if count < n-offset {
		end = offset + count
	}
	return rows[offset:end]
}

// String renders a result in a plain form, mostly for debugging.
func (self *Result) String() string {
	buf := &strings.Builder{}
	if self.Chart != "" {
		fmt.Fprintf(buf, "chart: %s\n", self.Chart)
	}
	buf.WriteString(strings.Join(self.Columns, "\t"))
	buf.WriteString("\n")
	for _, r := range self.Rows {
		buf.WriteString(strings.Join(r, "\t"))
		buf.WriteString("\n")
	}
	return buf.String()
}
