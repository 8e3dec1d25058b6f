package cg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benhoyt/goawk/parser"
	"github.com/dianpeng/metricql/sql"
)

// Compiler lowers expression trees into awk functions.
//
// For a compiled expression named N the source defines
//
//   function N_acc(k)  accumulates every aggregate call for group key k
//   function N_eval(k) writes each output into out[0], out[1], ...
//
// Aggregate calls keep their state in the global array N_sc[k, slot]. Each
// call allocates Symbol.Slots consecutive slots, the total is reported by
// Compiled.Slots so a non-aggregating expression always has zero slots.
type Compiler struct {
	Symbols SymbolTable

	// name of each input field, used to resolve COLUMN_NAME and to expand *
	Columns []string

	// whether aggregate calls are allowed
	Aggregate bool
}

type Compiled struct {
	Name   string
	Width  int // number of outputs written by _eval
	Slots  int // scratch slots per group
	Source string
}

// compilation state of a single Compile call
type exprCodeGen struct {
	c     *Compiler
	name  string
	slots int
	acc   *awkWriter
	inAgg bool
}

func (self *exprCodeGen) err(kind error, format string, args ...interface{}) error {
	return sql.NewError(kind, fmt.Sprintf("compile(%s)", self.name), format, args...)
}

func (self *Compiler) symbols() SymbolTable {
	if self.Symbols == nil {
		return Builtins()
	}
	return self.Symbols
}

// Compile an expression tree. The node can be a SELECT_LIST (one output per
// entry, * expands to all the columns), a GROUP_BY (one output per
// expression) or a single expression.
func (self *Compiler) Compile(node *sql.Node, name string) (*Compiled, error) {
	g := &exprCodeGen{
		c:    self,
		name: name,
		acc:  newAwkWriter(name+"_acc", "k"),
	}
	eval := newAwkWriter(name+"_eval", "k")

	var exprs []string

	switch node.Tag {
	case sql.NodeSelectList:
		for _, col := range node.Children {
			switch col.Tag {
			case sql.NodeAll:
				if len(self.Columns) == 0 {
					return nil, g.err(sql.ErrMalformedStatement, "* requires a table to select from")
				}
				for idx := range self.Columns {
					exprs = append(exprs, field(idx))
				}
			case sql.NodeDerivedColumn:
				if len(col.Children) == 0 {
					return nil, g.err(sql.ErrMalformedStatement, "derived column without expression")
				}
				str, err := g.genExpr(col.Children[0])
				if err != nil {
					return nil, err
				}
				exprs = append(exprs, str)
			default:
				return nil, g.err(sql.ErrMalformedStatement, "unexpected %s in select list", sql.NodeName(col.Tag))
			}
		}

	case sql.NodeGroupBy:
		for _, e := range node.Children {
			str, err := g.genExpr(e)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, str)
		}

	default:
		str, err := g.genExpr(node)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, str)
	}

	for idx, e := range exprs {
		eval.Assign(fmt.Sprintf("out[%d]", idx), e, nil)
	}

	src := g.acc.Flush() + eval.Flush()

	// make sure the generated code is accepted by awk, any failure here is
	// a bug of the code generator
	if _, err := parser.ParseProgram([]byte(builtinAWK+src+"BEGIN {}\n"), nil); err != nil {
		return nil, g.err(sql.ErrInternal, "generated invalid awk code: %s", err)
	}

	return &Compiled{
		Name:   name,
		Width:  len(exprs),
		Slots:  g.slots,
		Source: src,
	}, nil
}

func field(idx int) string {
	return fmt.Sprintf("$%d", idx+1)
}

// quote a string as awk string literal
func quote(s string) string {
	b := strings.Builder{}
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
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
	b.WriteByte('"')
	return b.String()
}

func (self *exprCodeGen) genLiteral(tk *sql.Token) (string, error) {
	switch tk.Type {
	case sql.TkInt:
		return strconv.FormatInt(tk.Int, 10), nil
	case sql.TkReal:
		return strconv.FormatFloat(tk.Real, 'f', -1, 64), nil
	case sql.TkStr:
		return quote(tk.Text), nil
	case sql.TkTrue:
		return "1", nil
	case sql.TkFalse:
		return "0", nil
	case sql.TkNull:
		return "\"\"", nil
	default:
		return "", self.err(sql.ErrMalformedStatement, "unknown literal %s", sql.TokenName(tk.Type))
	}
}

func (self *exprCodeGen) genColumn(n *sql.Node) (string, error) {
	name := n.Text()
	for idx, c := range self.c.Columns {
		if c == name {
			return field(idx), nil
		}
	}
	return "", self.err(sql.ErrUnknownColumn, "column %s is not found", name)
}

func binaryOp(tag int) string {
	switch tag {
	case sql.NodeEqExpr:
		return "=="
	case sql.NodeNeqExpr:
		return "!="
	case sql.NodeLtExpr:
		return "<"
	case sql.NodeLteExpr:
		return "<="
	case sql.NodeGtExpr:
		return ">"
	case sql.NodeGteExpr:
		return ">="
	case sql.NodeAndExpr:
		return "&&"
	case sql.NodeOrExpr:
		return "||"
	case sql.NodeAddExpr:
		return "+"
	case sql.NodeSubExpr:
		return "-"
	case sql.NodeMulExpr:
		return "*"
	case sql.NodePowExpr:
		return "^"
	default:
		return ""
	}
}

func (self *exprCodeGen) genOperands(n *sql.Node, want int) ([]string, error) {
	if len(n.Children) != want {
		return nil, self.err(
			sql.ErrMalformedStatement,
			"%s expects %d operands, got %d",
			sql.NodeName(n.Tag),
			want,
			len(n.Children),
		)
	}
	out := make([]string, 0, want)
	for _, c := range n.Children {
		str, err := self.genExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
	return out, nil
}

func (self *exprCodeGen) genExpr(n *sql.Node) (string, error) {
	switch n.Tag {
	case sql.NodeLiteral:
		return self.genLiteral(n.Token)

	case sql.NodeSeriesName:
		return quote(n.Text()), nil

	case sql.NodeResolvedColumn:
		if n.ID < 0 {
			return "", self.err(sql.ErrInternal, "negative resolved column %d", n.ID)
		}
		return field(n.ID), nil

	case sql.NodeColumnName:
		return self.genColumn(n)

	case sql.NodeMethodCall:
		return self.genCall(n)

	case sql.NodeNegateExpr:
		v, err := self.genOperands(n, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(-(%s))", v[0]), nil

	case sql.NodeNotExpr:
		v, err := self.genOperands(n, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(!(%s))", v[0]), nil

	case sql.NodeDivExpr, sql.NodeModExpr:
		v, err := self.genOperands(n, 2)
		if err != nil {
			return "", err
		}
		fn := "mq_div"
		if n.Tag == sql.NodeModExpr {
			fn = "mq_mod"
		}
		return fmt.Sprintf("%s(%s, %s)", fn, v[0], v[1]), nil

	case sql.NodeLikeExpr:
		if len(n.Children) != 2 {
			return "", self.err(sql.ErrMalformedStatement, "like expects 2 operands")
		}
		pattern := n.Children[1]
		if pattern.Tag != sql.NodeLiteral || pattern.Token.Type != sql.TkStr {
			return "", self.err(sql.ErrMalformedStatement, "like pattern must be a string literal")
		}
		lhs, err := self.genExpr(n.Children[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((%s) ~ %s)", lhs, quote(sql.LikeToRegex(pattern.Text()))), nil

	case sql.NodeAll:
		return "", self.err(sql.ErrMalformedStatement, "* is not allowed inside of expression")

	default:
		op := binaryOp(n.Tag)
		if op == "" {
			return "", self.err(sql.ErrMalformedStatement, "unexpected %s in expression", sql.NodeName(n.Tag))
		}
		v, err := self.genOperands(n, 2)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((%s) %s (%s))", v[0], op, v[1]), nil
	}
}

func (self *exprCodeGen) genCall(n *sql.Node) (string, error) {
	name := n.Text()
	sym, ok := self.c.symbols().Lookup(name)
	if !ok {
		return "", self.err(sql.ErrUnknownFunction, "function %s is not defined", name)
	}

	all := len(n.Children) == 1 && n.Children[0].Tag == sql.NodeAll
	if all && !sym.AllowAll {
		return "", self.err(sql.ErrMalformedStatement, "function %s does not accept *", name)
	}
	if !all && !sym.checkArgs(len(n.Children)) {
		return "", self.err(
			sql.ErrMalformedStatement,
			"function %s called with wrong number of arguments %d",
			name,
			len(n.Children),
		)
	}

	if !sym.Aggregate {
		arg := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			str, err := self.genExpr(c)
			if err != nil {
				return "", err
			}
			arg = append(arg, str)
		}
		return sym.scalar(arg), nil
	}

	if !self.c.Aggregate {
		return "", self.err(sql.ErrMalformedStatement, "aggregate %s is not allowed here", name)
	}
	if self.inAgg {
		return "", self.err(sql.ErrMalformedStatement, "aggregate %s is nested inside of another aggregate", name)
	}

	arg := ""
	if !all {
		self.inAgg = true
		str, err := self.genExpr(n.Children[0])
		self.inAgg = false
		if err != nil {
			return "", err
		}
		arg = str
	}

	sc := scratch{
		arr:  self.name + "_sc",
		key:  "k",
		base: self.slots,
	}
	self.slots += sym.Slots

	self.acc.Line(sym.accumulate(arg, sc), nil)
	return sym.value(sc), nil
}
