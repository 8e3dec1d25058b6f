package plan

import (
	"fmt"
	"strings"
)

// Printing the plan out, for testing, debugging, visualization purpose etc ...

func Print(e Executable) string {
	buf := &strings.Builder{}
	printNode(buf, e, 0)
	return buf.String()
}

func printLine(buf *strings.Builder, depth int, format string, args ...interface{}) {
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteString(fmt.Sprintf(format, args...))
	buf.WriteString("\n")
}

func printRange(from, to int64) string {
	lo, hi := "-inf", "+inf"
	if from != MinTime {
		lo = fmt.Sprintf("%d", from)
	}
	if to != MaxTime {
		hi = fmt.Sprintf("%d", to)
	}
	return fmt.Sprintf("[%s, %s)", lo, hi)
}

func printNode(buf *strings.Builder, e Executable, depth int) {
	switch x := e.(type) {
	case *TableScan:
		printLine(buf, depth, "##> TableScan")
		printLine(buf, depth, "Table: %s", x.Table)
		printLine(buf, depth, "Columns: %s", strings.Join(x.OutputColumns, ", "))
		printLine(buf, depth, "Range: %s", printRange(x.From, x.To))
		printLine(buf, depth, "Filter: %v", x.Where != nil)

	case *TablelessSelect:
		printLine(buf, depth, "##> TablelessSelect")
		printLine(buf, depth, "Columns: %s", strings.Join(x.OutputColumns, ", "))

	case *GroupBy:
		printLine(buf, depth, "##> GroupBy")
		printLine(buf, depth, "Columns: %s", strings.Join(x.OutputColumns, ", "))
		printLine(buf, depth, "Keys: %d", x.Group.Width)
		printLine(buf, depth, "Slots: %d", x.SelectSlots)
		printNode(buf, x.Child, depth+1)

	case *LimitClause:
		printLine(buf, depth, "##> Limit")
		printLine(buf, depth, "Limit: %d", x.Limit)
		printLine(buf, depth, "Offset: %d", x.Offset)
		printNode(buf, x.Child, depth+1)

	case *SeriesStatement:
		printLine(buf, depth, "##> Series")
		printLine(buf, depth, "Columns: %s", strings.Join(x.OutputColumns, ", "))
		printLine(buf, depth, "Axes: %d", x.Axes)
		printNode(buf, x.Child, depth+1)

	case *DrawStatement:
		printLine(buf, depth, "##> Draw")
		printLine(buf, depth, "Chart: %s", ChartName(x.ChartType))

	default:
		printLine(buf, depth, "##> Unknown")
	}
}
