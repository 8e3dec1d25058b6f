package plan

import (
	"math"

	"github.com/dianpeng/metricql/sql"
)

// ----------------------------------------------------------------------------
//
// Early filter is a simple optimization that we try to perform. The storage
// scans samples by time range, so we try to narrow the range [from, to) of a
// table scan from the where clause before any row is produced.
//
// Only the conjuncts at the top level of the condition are inspected, ie the
// operands of a chain of AND. A conjunct contributes when it compares the
// time column with a numeric literal, on either side. Everything else is
// simply ignored, the full condition is still evaluated against every row,
// so the narrowed range only needs to be a superset of the matching rows.
//
// ----------------------------------------------------------------------------

const timeColumn = "time"

func timeRange(cond *sql.Node) (int64, int64) {
	from, to := MinTime, MaxTime
	for _, c := range conjuncts(cond, nil) {
		if lo, hi, ok := timeBound(c); ok {
			if lo > from {
				from = lo
			}
			if hi < to {
				to = hi
			}
		}
	}
	return from, to
}

func conjuncts(n *sql.Node, out []*sql.Node) []*sql.Node {
	if n.Tag == sql.NodeAndExpr && len(n.Children) == 2 {
		out = conjuncts(n.Children[0], out)
		return conjuncts(n.Children[1], out)
	}
	return append(out, n)
}

// mirror of a comparison when its operands are swapped
func flip(tag int) int {
	switch tag {
	case sql.NodeLtExpr:
		return sql.NodeGtExpr
	case sql.NodeLteExpr:
		return sql.NodeGteExpr
	case sql.NodeGtExpr:
		return sql.NodeLtExpr
	case sql.NodeGteExpr:
		return sql.NodeLteExpr
	default:
		return tag
	}
}

func isTime(n *sql.Node) bool {
	return n.Tag == sql.NodeColumnName && n.Text() == timeColumn
}

func numeric(n *sql.Node) (float64, bool) {
	if n.Tag != sql.NodeLiteral || n.Token == nil {
		return 0, false
	}
	switch n.Token.Type {
	case sql.TkInt:
		return float64(n.Token.Int), true
	case sql.TkReal:
		return n.Token.Real, true
	default:
		return 0, false
	}
}

// clamps a float into int64
func clamp(v float64) int64 {
	if v <= float64(math.MinInt64) {
		return math.MinInt64
	}
	if v >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(v)
}

// the int64 right after v, saturated
func next(v float64) int64 {
	x := clamp(math.Floor(v))
	if x == math.MaxInt64 {
		return x
	}
	return x + 1
}

// timeBound returns the half open range allowed by a single comparison
func timeBound(n *sql.Node) (int64, int64, bool) {
	if len(n.Children) != 2 {
		return 0, 0, false
	}

	tag := n.Tag
	lhs, rhs := n.Children[0], n.Children[1]
	if !isTime(lhs) {
		lhs, rhs = rhs, lhs
		tag = flip(tag)
	}
	if !isTime(lhs) {
		return 0, 0, false
	}
	v, ok := numeric(rhs)
	if !ok {
		return 0, 0, false
	}

	switch tag {
	case sql.NodeGteExpr:
		return clamp(math.Ceil(v)), MaxTime, true
	case sql.NodeGtExpr:
		return next(v), MaxTime, true
	case sql.NodeLtExpr:
		return MinTime, clamp(math.Ceil(v)), true
	case sql.NodeLteExpr:
		return MinTime, next(v), true
	case sql.NodeEqExpr:
		if v != math.Floor(v) {
			// never matches an integer timestamp
			return 0, 0, true
		}
		return clamp(v), next(v), true
	default:
		return 0, 0, false
	}
}
