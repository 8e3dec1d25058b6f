package sql

import (
	"fmt"
	"strconv"
	"strings"
)

func printToken(tk *Token) string {
	switch tk.Type {
	case TkInt:
		return strconv.FormatInt(tk.Int, 10)
	case TkReal:
		return strconv.FormatFloat(tk.Real, 'g', -1, 64)
	case TkStr:
		return quote(tk.Text)
	case TkTrue:
		return "true"
	case TkFalse:
		return "false"
	case TkNull:
		return "null"
	default:
		return tk.Text
	}
}

func quote(s string) string {
	b := strings.Builder{}
	b.WriteByte('\'')
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// PrintNode renders the tree as a single line s-expression, used by the
// explain output and tests.
func PrintNode(n *Node) string {
	b := &strings.Builder{}
	printNode(b, n)
	return b.String()
}

func printNode(b *strings.Builder, n *Node) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	b.WriteByte('(')
	b.WriteString(NodeName(n.Tag))
	if n.Tag == NodeResolvedColumn {
		fmt.Fprintf(b, " #%d", n.ID)
	}
	if n.Token != nil {
		b.WriteByte(' ')
		b.WriteString(printToken(n.Token))
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		printNode(b, c)
	}
	b.WriteByte(')')
}

func precedence(tag int) int {
	switch tag {
	case NodeOrExpr:
		return 1
	case NodeAndExpr:
		return 2
	case NodeNotExpr:
		return 3
	case NodeEqExpr, NodeNeqExpr, NodeLtExpr, NodeLteExpr, NodeGtExpr, NodeGteExpr, NodeLikeExpr:
		return 4
	case NodeAddExpr, NodeSubExpr:
		return 5
	case NodeMulExpr, NodeDivExpr, NodeModExpr:
		return 6
	case NodeNegateExpr:
		return 7
	case NodePowExpr:
		return 8
	default:
		return 9
	}
}

func binaryOp(tag int) string {
	switch tag {
	case NodeOrExpr:
		return "or"
	case NodeAndExpr:
		return "and"
	case NodeEqExpr:
		return "="
	case NodeNeqExpr:
		return "!="
	case NodeLtExpr:
		return "<"
	case NodeLteExpr:
		return "<="
	case NodeGtExpr:
		return ">"
	case NodeGteExpr:
		return ">="
	case NodeLikeExpr:
		return "like"
	case NodeAddExpr:
		return "+"
	case NodeSubExpr:
		return "-"
	case NodeMulExpr:
		return "*"
	case NodeDivExpr:
		return "/"
	case NodeModExpr:
		return "%"
	case NodePowExpr:
		return "^"
	default:
		return ""
	}
}

// FormatExpr renders an expression back to query text, used as the default
// output column name when no alias is given.
func FormatExpr(n *Node) string {
	b := &strings.Builder{}
	formatExpr(b, n)
	return b.String()
}

func formatOperand(b *strings.Builder, n *Node, prec int, right bool) {
	p := precedence(n.Tag)
	if p < prec || (right && p == prec && p != 8) || (!right && p == prec && p == 8) {
		b.WriteByte('(')
		formatExpr(b, n)
		b.WriteByte(')')
	} else {
		formatExpr(b, n)
	}
}

func formatExpr(b *strings.Builder, n *Node) {
	switch n.Tag {
	case NodeLiteral:
		b.WriteString(printToken(n.Token))
	case NodeColumnName:
		b.WriteString(n.Text())
	case NodeResolvedColumn:
		fmt.Fprintf(b, "#%d", n.ID)
	case NodeAll:
		b.WriteByte('*')
	case NodeSeriesName:
		b.WriteString(printToken(n.Token))
	case NodeDerivedColumn:
		formatExpr(b, n.Children[0])
		if len(n.Children) > 1 {
			b.WriteString(" as ")
			b.WriteString(n.Children[1].Text())
		}
	case NodeMethodCall:
		b.WriteString(n.Text())
		b.WriteByte('(')
		for idx, c := range n.Children {
			if idx > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, c)
		}
		b.WriteByte(')')
	case NodeNegateExpr:
		b.WriteByte('-')
		formatOperand(b, n.Children[0], precedence(n.Tag), false)
	case NodeNotExpr:
		b.WriteString("not ")
		formatOperand(b, n.Children[0], precedence(n.Tag), false)
	default:
		op := binaryOp(n.Tag)
		if op == "" || len(n.Children) != 2 {
			b.WriteString(PrintNode(n))
			return
		}
		prec := precedence(n.Tag)
		formatOperand(b, n.Children[0], prec, false)
		b.WriteByte(' ')
		b.WriteString(op)
		b.WriteByte(' ')
		formatOperand(b, n.Children[1], prec, true)
	}
}
