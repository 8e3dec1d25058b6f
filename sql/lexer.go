package sql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Literal
	TkTrue = iota
	TkFalse
	TkInt
	TkReal
	TkNull
	TkStr
	TkId

	// Keywords
	TkSelect
	TkFrom
	TkAs
	TkWhere
	TkGroupBy
	TkLimit
	TkOffset
	TkSeries
	TkDraw
	TkChart
	TkLike

	// Punctuation
	TkComma
	TkSemicolon
	TkLPar
	TkRPar

	TkAdd
	TkSub
	TkMul
	TkDiv
	TkMod
	TkPow

	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNe

	TkAnd
	TkOr
	TkNot

	TkError
	TkEof
)

func TokenName(tk int) string {
	switch tk {
	case TkTrue:
		return "true"
	case TkFalse:
		return "false"
	case TkInt:
		return "<int>"
	case TkReal:
		return "<real>"
	case TkNull:
		return "null"
	case TkStr:
		return "<string>"
	case TkId:
		return "<identifier>"
	case TkSelect:
		return "select"
	case TkFrom:
		return "from"
	case TkAs:
		return "as"
	case TkWhere:
		return "where"
	case TkGroupBy:
		return "group by"
	case TkLimit:
		return "limit"
	case TkOffset:
		return "offset"
	case TkSeries:
		return "series"
	case TkDraw:
		return "draw"
	case TkChart:
		return "chart"
	case TkLike:
		return "like"
	case TkComma:
		return ","
	case TkSemicolon:
		return ";"
	case TkLPar:
		return "("
	case TkRPar:
		return ")"
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkPow:
		return "^"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "="
	case TkNe:
		return "!="
	case TkAnd:
		return "and"
	case TkOr:
		return "or"
	case TkNot:
		return "not"
	case TkEof:
		return "<eof>"
	default:
		return "<error>"
	}
}

type Lexeme struct {
	Text string
	Int  int64
	Real float64
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
	failed bool
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor >= len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	if self.Cursor+1 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Token = tk
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Token = TkEof
	return TkEof
}

// generate a debug position for diagnostic information output
func (self *Lexer) pos(where int) (int, int) {
	line := 1
	col := 1

	for idx := 0; idx < where && idx < len(self.Source); {
		r, sz := utf8.DecodeRuneInString(self.Source[idx:])
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		idx += sz
	}

	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Cursor)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	self.failed = true
	return TkError
}

func (self *Lexer) errE(err error) int {
	return self.err(err.Error())
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) lexLineComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				return true // reaching end of the source
			}
			self.errUtf8()
			return false
		}

		self.Cursor += sz

		if r == '\n' {
			return true
		}
	}
}

func (self *Lexer) lexBlockComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				self.err("block comment is not closed properly")
			} else {
				self.errUtf8()
			}
			return false
		}

		if r == '*' && self.nextRune2() == '/' {
			self.Cursor += 2
			return true
		}

		self.Cursor += sz
	}
}

// 1) an exponential sign or a dot indicates a real number
// 2) otherwise treated as 64 bits integer
func (self *Lexer) lexNum() int {
	hasDot := false
	hasE := false

	buf := &bytes.Buffer{}

loop:
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				break
			}
			return self.errUtf8()
		}

		switch r {
		case '.':
			if hasDot || hasE {
				break loop
			}
			hasDot = true

		case 'e', 'E':
			if hasE {
				break loop
			}
			hasE = true
			buf.WriteRune(r)
			self.Cursor += sz

			// optional sign of the exponent
			if n, nsz := self.nextRune(); n == '+' || n == '-' {
				buf.WriteRune(n)
				self.Cursor += nsz
			}
			continue

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			break

		default:
			break loop
		}

		buf.WriteRune(r)
		self.Cursor += sz
	}

	if hasDot || hasE {
		f, err := strconv.ParseFloat(buf.String(), 64)
		if err != nil {
			return self.errE(err)
		}
		self.Lexeme.Real = f
		self.Token = TkReal
		return TkReal
	}

	i, err := strconv.ParseInt(buf.String(), 10, 64)
	if err != nil {
		return self.errE(err)
	}
	self.Lexeme.Int = i
	self.Token = TkInt
	return TkInt
}

func (self *Lexer) lexStr(quote rune) int {
	buf := &bytes.Buffer{}

	self.Cursor++
	self.Lexeme.Text = ""

	for {
		c, sz := self.nextRune()

		if c == utf8.RuneError {
			if sz == 0 {
				return self.err("string literal is not closed by quote properly")
			}
			return self.errUtf8()
		}

		if c == quote {
			self.Cursor += sz
			break
		}

		if c == '\\' {
			switch self.nextRune2() {
			case 't':
				buf.WriteRune('\t')
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case '\'':
				buf.WriteRune('\'')
			case '"':
				buf.WriteRune('"')
			case '\\':
				buf.WriteRune('\\')
			default:
				return self.err("unknown escape sequences inside of string literal")
			}
			self.Cursor += 2
			continue
		}

		buf.WriteRune(c)
		self.Cursor += sz
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkStr
	return TkStr
}

func (self *Lexer) isWS(r rune) bool {
	switch r {
	case ' ', '\r', '\t', '\n', '\b', '\v':
		return true
	default:
		return false
	}
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// keyword table, the multi words keyword like group by is handled separately
var keywords = map[string]int{
	"select": TkSelect,
	"from":   TkFrom,
	"as":     TkAs,
	"where":  TkWhere,
	"limit":  TkLimit,
	"offset": TkOffset,
	"series": TkSeries,
	"draw":   TkDraw,
	"chart":  TkChart,
	"like":   TkLike,
	"and":    TkAnd,
	"or":     TkOr,
	"not":    TkNot,
	"true":   TkTrue,
	"false":  TkFalse,
	"null":   TkNull,
}

// skip all the whitespace starting at offset and returns the new offset
func (self *Lexer) skipWS(off int) int {
	for off < len(self.Source) {
		r, sz := utf8.DecodeRuneInString(self.Source[off:])
		if !self.isWS(r) {
			break
		}
		off += sz
	}
	return off
}

// tries to match the word *by* after *group*, returns the cursor after it
func (self *Lexer) matchBy(off int) (int, bool) {
	off = self.skipWS(off)
	if off+2 > len(self.Source) || strings.ToLower(self.Source[off:off+2]) != "by" {
		return 0, false
	}
	if off+2 < len(self.Source) {
		r, _ := utf8.DecodeRuneInString(self.Source[off+2:])
		if self.isIdChar(r) {
			return 0, false
		}
	}
	return off + 2, true
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err("invalid leading character of identifier")
	}

	start := self.Cursor
	buf := &bytes.Buffer{}

	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError || !self.isIdChar(c) {
			break
		}
		self.Cursor += sz
		buf.WriteRune(unicode.ToLower(c))
	}

	word := buf.String()

	if word == "group" {
		if end, ok := self.matchBy(self.Cursor); ok {
			self.Cursor = end
			self.Lexeme.Text = self.Source[start:end]
			self.Token = TkGroupBy
			return TkGroupBy
		}
	}

	self.Lexeme.Text = word
	if tk, ok := keywords[word]; ok {
		self.Token = tk
		return tk
	}

	self.Token = TkId
	return TkId
}

func (self *Lexer) Next() int {
	if self.Token == TkEof || self.failed {
		return self.Token
	}
	return self.next()
}

func (self *Lexer) next() int {
	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.eof()
			}
			return self.errUtf8()
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)
		case ';':
			return self.yield(TkSemicolon, 1)
		case '(':
			return self.yield(TkLPar, 1)
		case ')':
			return self.yield(TkRPar, 1)
		case '+':
			return self.yield(TkAdd, 1)
		case '*':
			return self.yield(TkMul, 1)
		case '%':
			return self.yield(TkMod, 1)
		case '^':
			return self.yield(TkPow, 1)

		case '-':
			if self.nextRune2() == '-' {
				self.Cursor += 2
				if !self.lexLineComment() {
					return self.Token
				}
				continue
			}
			return self.yield(TkSub, 1)

		case '/':
			switch self.nextRune2() {
			case '/':
				self.Cursor += 2
				if !self.lexLineComment() {
					return self.Token
				}
				continue
			case '*':
				self.Cursor += 2
				if !self.lexBlockComment() {
					return self.Token
				}
				continue
			default:
				return self.yield(TkDiv, 1)
			}

		case '&':
			if self.nextRune2() == '&' {
				return self.yield(TkAnd, 2)
			}
			return self.err("are you missing '&' for and operator?")

		case '|':
			if self.nextRune2() == '|' {
				return self.yield(TkOr, 2)
			}
			return self.err("are you missing '|' for or operator?")

		case '=':
			if self.nextRune2() == '=' {
				return self.yield(TkEq, 2)
			}
			return self.yield(TkEq, 1)

		case '>':
			if self.nextRune2() == '=' {
				return self.yield(TkGe, 2)
			}
			return self.yield(TkGt, 1)

		case '<':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkLe, 2)
			case '>':
				return self.yield(TkNe, 2)
			default:
				return self.yield(TkLt, 1)
			}

		case '!':
			if self.nextRune2() == '=' {
				return self.yield(TkNe, 2)
			}
			return self.yield(TkNot, 1)

		case ' ', '\r', '\t', '\n', '\b', '\v':
			self.Cursor += sz

		case '\'', '"':
			return self.lexStr(c)

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return self.lexNum()

		case '#':
			if !self.lexLineComment() {
				return self.Token
			}

		default:
			return self.lexKeywordOrId(c)
		}
	}
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
	}
}
