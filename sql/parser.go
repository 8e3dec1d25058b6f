package sql

// parser of the query language. It is a plain recursive descent parser which
// emits the tagged Node tree directly. Briefly, the grammar is as following
//
// ### statement -------------------------------------------------------------
//
// query := statement (';' statement)* ';'?
// statement := select | series | draw
//
// select :=
//     SELECT select-list
//     from?
//     where?
//     group-by?
//     limit?
//
// select-list := '*' | derived (',' derived)*
// derived := expr [AS ID]
//
// from := FROM ID
// where := WHERE expr
// group-by := GROUPBY expr (',' expr)*
// limit := LIMIT INT [OFFSET INT]
//
// series := SERIES (STR | expr) FROM select
// draw := DRAW ID [CHART]
//
// ### expression -------------------------------------------------------------
//
// expr := or
// or := and (OR and)*
// and := not (AND not)*
// not := NOT not | compare
// compare := add [cmp-op add | NOT? LIKE add]
// add := mul (('+'|'-') mul)*
// mul := unary (('*'|'/'|'%') unary)*
// unary := ('-'|'+') unary | pow
// pow := primary ['^' unary]
//
// primary :=
//   INT | REAL | STR | TRUE | FALSE | NULL |
//   '(' expr ')' |
//   ID |
//   ID '(' call-arg-list? ')'
//
// call-arg-list := '*' | expr (',' expr)*
//
// ----------------------------------------------------------------------------

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is a shortcut of NewParser(xx).Parse()
func Parse(xx string) ([]*Node, error) {
	return newParser(xx).Parse()
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return NewError(ErrSyntax, "parse", "%s", self.L.Lexeme.Text)
	}
	return NewError(
		ErrSyntax,
		"parse",
		"%s: %s, got %s",
		self.L.dinfo(),
		msg,
		TokenName(self.L.Token),
	)
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	}
	return self.err("unexpected token, expect " + TokenName(tk))
}

func (self *Parser) token() *Token {
	return &Token{
		Type: self.L.Token,
		Text: self.L.Lexeme.Text,
		Int:  self.L.Lexeme.Int,
		Real: self.L.Lexeme.Real,
	}
}

// Parse the whole input as a sequence of statements separated by ';'
func (self *Parser) Parse() ([]*Node, error) {
	var out []*Node

	self.L.Next()
	for {
		for self.L.Token == TkSemicolon {
			self.L.Next()
		}
		if self.L.Token == TkEof {
			break
		}

		n, err := self.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, n)

		switch self.L.Token {
		case TkSemicolon, TkEof:
			break
		default:
			return nil, self.err("dangling code after parser thinks the statement is finished")
		}
	}

	if len(out) == 0 {
		return nil, self.err("empty query")
	}
	return out, nil
}

func (self *Parser) parseStatement() (*Node, error) {
	switch self.L.Token {
	case TkSelect:
		return self.parseSelect()
	case TkSeries:
		return self.parseSeries()
	case TkDraw:
		return self.parseDraw()
	default:
		return nil, self.err("unknown statement, expect *select*, *series* or *draw*")
	}
}

func (self *Parser) parseSelect() (*Node, error) {
	self.L.Next() // skip the *select* keyword

	sel := NewNode(NodeSelect)

	if n, err := self.parseSelectList(); err != nil {
		return nil, err
	} else {
		sel.AppendChild(n)
	}

	if self.L.Token == TkFrom {
		self.L.Next()
		// a quoted table name keeps its case and may contain any character
		if self.L.Token != TkId && self.L.Token != TkStr {
			return nil, self.err("expect table name after *from*")
		}
		sel.AppendChild(NewNode(NodeFrom, NewTokenNode(NodeTableName, self.token())))
		self.L.Next()
	}

	if self.L.Token == TkWhere {
		self.L.Next()
		if n, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			sel.AppendChild(NewNode(NodeWhere, n))
		}
	}

	if self.L.Token == TkGroupBy {
		self.L.Next()
		g := NewNode(NodeGroupBy)
		for {
			n, err := self.parseExpr()
			if err != nil {
				return nil, err
			}
			g.AppendChild(n)
			if self.L.Token != TkComma {
				break
			}
			self.L.Next()
		}
		sel.AppendChild(g)
	}

	if self.L.Token == TkLimit {
		if n, err := self.parseLimit(); err != nil {
			return nil, err
		} else {
			sel.AppendChild(n)
		}
	}

	return sel, nil
}

func (self *Parser) parseSelectList() (*Node, error) {
	list := NewNode(NodeSelectList)

	if self.L.Token == TkMul {
		self.L.Next()
		list.AppendChild(NewNode(NodeAll))
		return list, nil
	}

	for {
		expr, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		col := NewNode(NodeDerivedColumn, expr)

		if self.L.Token == TkAs {
			self.L.Next()
			if self.L.Token != TkId {
				return nil, self.err("expect identifier after *as*")
			}
			col.AppendChild(NewTokenNode(NodeColumnAlias, self.token()))
			self.L.Next()
		}

		list.AppendChild(col)
		if self.L.Token != TkComma {
			break
		}
		self.L.Next()
	}

	return list, nil
}

func (self *Parser) parseLimit() (*Node, error) {
	self.L.Next() // skip *limit*
	if self.L.Token != TkInt {
		return nil, self.err("expect integer after *limit*")
	}
	limit := NewTokenNode(NodeLimit, self.token())
	self.L.Next()

	if self.L.Token == TkOffset {
		self.L.Next()
		if self.L.Token != TkInt {
			return nil, self.err("expect integer after *offset*")
		}
		limit.AppendChild(NewTokenNode(NodeOffset, self.token()))
		self.L.Next()
	}
	return limit, nil
}

func (self *Parser) parseSeries() (*Node, error) {
	self.L.Next() // skip *series*

	var name *Node
	if self.L.Token == TkStr {
		name = NewTokenNode(NodeSeriesName, self.token())
		self.L.Next()
	} else {
		n, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		name = n
	}

	if err := self.expect(TkFrom); err != nil {
		return nil, err
	}
	if self.L.Token != TkSelect {
		return nil, self.err("expect *select* statement as series source")
	}

	sel, err := self.parseSelect()
	if err != nil {
		return nil, err
	}
	return NewNode(NodeSeries, name, sel), nil
}

func (self *Parser) parseDraw() (*Node, error) {
	self.L.Next() // skip *draw*
	if self.L.Token != TkId {
		return nil, self.err("expect chart type after *draw*")
	}
	n := NewTokenNode(NodeDraw, self.token())
	self.L.Next()
	if self.L.Token == TkChart {
		self.L.Next()
	}
	return n, nil
}

// expression -----------------------------------------------------------------
func (self *Parser) parseExpr() (*Node, error) {
	return self.parseOr()
}

func (self *Parser) parseOr() (*Node, error) {
	lhs, err := self.parseAnd()
	if err != nil {
		return nil, err
	}
	for self.L.Token == TkOr {
		self.L.Next()
		rhs, err := self.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = NewNode(NodeOrExpr, lhs, rhs)
	}
	return lhs, nil
}

func (self *Parser) parseAnd() (*Node, error) {
	lhs, err := self.parseNot()
	if err != nil {
		return nil, err
	}
	for self.L.Token == TkAnd {
		self.L.Next()
		rhs, err := self.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = NewNode(NodeAndExpr, lhs, rhs)
	}
	return lhs, nil
}

func (self *Parser) parseNot() (*Node, error) {
	if self.L.Token == TkNot {
		self.L.Next()
		n, err := self.parseNot()
		if err != nil {
			return nil, err
		}
		return NewNode(NodeNotExpr, n), nil
	}
	return self.parseCompare()
}

func compareTag(tk int) int {
	switch tk {
	case TkEq:
		return NodeEqExpr
	case TkNe:
		return NodeNeqExpr
	case TkLt:
		return NodeLtExpr
	case TkLe:
		return NodeLteExpr
	case TkGt:
		return NodeGtExpr
	case TkGe:
		return NodeGteExpr
	default:
		return -1
	}
}

func (self *Parser) parseCompare() (*Node, error) {
	lhs, err := self.parseAdd()
	if err != nil {
		return nil, err
	}

	if tag := compareTag(self.L.Token); tag >= 0 {
		self.L.Next()
		rhs, err := self.parseAdd()
		if err != nil {
			return nil, err
		}
		return NewNode(tag, lhs, rhs), nil
	}

	negate := false
	if self.L.Token == TkNot {
		self.L.Next()
		if self.L.Token != TkLike {
			return nil, self.err("expect *like* after *not*")
		}
		negate = true
	}

	if self.L.Token == TkLike {
		self.L.Next()
		rhs, err := self.parseAdd()
		if err != nil {
			return nil, err
		}
		n := NewNode(NodeLikeExpr, lhs, rhs)
		if negate {
			n = NewNode(NodeNotExpr, n)
		}
		return n, nil
	}

	return lhs, nil
}

func (self *Parser) parseAdd() (*Node, error) {
	lhs, err := self.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		var tag int
		switch self.L.Token {
		case TkAdd:
			tag = NodeAddExpr
		case TkSub:
			tag = NodeSubExpr
		default:
			return lhs, nil
		}
		self.L.Next()
		rhs, err := self.parseMul()
		if err != nil {
			return nil, err
		}
		lhs = NewNode(tag, lhs, rhs)
	}
}

func (self *Parser) parseMul() (*Node, error) {
	lhs, err := self.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var tag int
		switch self.L.Token {
		case TkMul:
			tag = NodeMulExpr
		case TkDiv:
			tag = NodeDivExpr
		case TkMod:
			tag = NodeModExpr
		default:
			return lhs, nil
		}
		self.L.Next()
		rhs, err := self.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = NewNode(tag, lhs, rhs)
	}
}

func (self *Parser) parseUnary() (*Node, error) {
	switch self.L.Token {
	case TkSub:
		self.L.Next()
		n, err := self.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewNode(NodeNegateExpr, n), nil
	case TkAdd:
		self.L.Next()
		return self.parseUnary()
	default:
		return self.parsePow()
	}
}

func (self *Parser) parsePow() (*Node, error) {
	lhs, err := self.parsePrimary()
	if err != nil {
		return nil, err
	}
	if self.L.Token == TkPow {
		self.L.Next()
		rhs, err := self.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewNode(NodePowExpr, lhs, rhs), nil
	}
	return lhs, nil
}

func (self *Parser) parsePrimary() (*Node, error) {
	switch self.L.Token {
	case TkInt, TkReal, TkStr, TkTrue, TkFalse, TkNull:
		n := NewTokenNode(NodeLiteral, self.token())
		self.L.Next()
		return n, nil

	case TkLPar:
		self.L.Next()
		n, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return n, nil

	case TkId:
		tk := self.token()
		self.L.Next()
		if self.L.Token != TkLPar {
			return NewTokenNode(NodeColumnName, tk), nil
		}
		return self.parseCall(tk)

	default:
		return nil, self.err("unexpected token in expression")
	}
}

func (self *Parser) parseCall(name *Token) (*Node, error) {
	self.L.Next() // skip '('
	call := NewTokenNode(NodeMethodCall, name)

	if self.L.Token == TkRPar {
		self.L.Next()
		return call, nil
	}

	if self.L.Token == TkMul {
		self.L.Next()
		call.AppendChild(NewNode(NodeAll))
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return call, nil
	}

	for {
		n, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		call.AppendChild(n)
		if self.L.Token != TkComma {
			break
		}
		self.L.Next()
	}

	if err := self.expect(TkRPar); err != nil {
		return nil, err
	}
	return call, nil
}
