package cg

import (
	"fmt"
	"strings"
)

// A special template engine used for *AWK* source code dump. We call it awk
// writer, but in fact it can do anything, TBH.
//
// Substitution is done with %[name] placeholders which are looked up inside
// of the context passed along with each line. A placeholder which is not in
// the context is left untouched.
//
// A writer can either be bound to a function, in which case Flush wraps the
// body into a function definition and appends all the locals as extra
// parameters (the usual awk idiom for locals), or be a top level writer.

type awkWriterCtx map[string]interface{}

type awkWriter struct {
	buf        *strings.Builder
	indent     int             // current indent level for formatting
	local      []string        // locals
	localIndex map[string]bool // used to dedup
	param      []string        // parameters of the function
	funcName   string          // if this field is "", we are in global scope
}

func newAwkWriter(
	funcName string,
	param ...string,
) *awkWriter {
	w := &awkWriter{
		buf:        &strings.Builder{},
		localIndex: make(map[string]bool),
		param:      param,
		funcName:   funcName,
	}
	if funcName != "" {
		w.indent = 1
	}
	return w
}

func (self *awkWriter) HasLocal(l string) bool {
	_, ok := self.localIndex[l]
	return ok
}

func (self *awkWriter) Local(
	n string,
) string {
	if !self.HasLocal(n) {
		self.localIndex[n] = true
		self.local = append(self.local, n)
	}
	return n
}

func (self *awkWriter) LocalN(
	prefix string,
	idx int,
) string {
	return self.Local(fmt.Sprintf("%s_%d", prefix, idx))
}

// Fmt performs the %[name] substitution and returns the result
func (self *awkWriter) Fmt(
	tmpl string,
	ctx awkWriterCtx,
) string {
	if ctx == nil || !strings.Contains(tmpl, "%[") {
		return tmpl
	}

	out := strings.Builder{}
	for {
		start := strings.Index(tmpl, "%[")
		if start < 0 {
			out.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[start:], ']')
		if end < 0 {
			out.WriteString(tmpl)
			break
		}
		end += start

		key := strings.TrimSpace(tmpl[start+2 : end])
		out.WriteString(tmpl[:start])
		if v, ok := ctx[key]; ok {
			out.WriteString(fmt.Sprint(v))
		} else {
			out.WriteString(tmpl[start : end+1])
		}
		tmpl = tmpl[end+1:]
	}
	return out.String()
}

func (self *awkWriter) writeIndent() {
	for i := 0; i < self.indent; i++ {
		self.buf.WriteString("  ")
	}
}

func (self *awkWriter) Line(
	tmpl string,
	ctx awkWriterCtx,
) {
	self.writeIndent()
	self.buf.WriteString(self.Fmt(tmpl, ctx))
	self.buf.WriteString("\n")
}

// Chunk writes a multiple lines template, the leading and trailing empty
// lines are dropped and each line is indented with the current level.
func (self *awkWriter) Chunk(
	tmpl string,
	ctx awkWriterCtx,
) {
	lines := strings.Split(strings.Trim(self.Fmt(tmpl, ctx), "\n"), "\n")
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			self.buf.WriteString("\n")
			continue
		}
		self.writeIndent()
		self.buf.WriteString(l)
		self.buf.WriteString("\n")
	}
}

func (self *awkWriter) Assign(
	lhs string,
	rhs string,
	ctx awkWriterCtx,
) {
	self.Line(lhs+" = "+rhs, ctx)
}

func (self *awkWriter) Call(
	name string,
	arg []string,
) {
	self.Line(fmt.Sprintf("%s(%s)", name, strings.Join(arg, ", ")), nil)
}

func (self *awkWriter) Open(
	tmpl string,
	ctx awkWriterCtx,
) {
	self.Line(strings.TrimSpace(tmpl+" {"), ctx)
	self.indent++
}

func (self *awkWriter) Close() {
	self.indent--
	self.Line("}", nil)
}

func (self *awkWriter) Raw(code string) {
	self.buf.WriteString(code)
}

func (self *awkWriter) Flush() string {
	if self.funcName == "" {
		return self.buf.String()
	}

	out := strings.Builder{}
	out.WriteString("function ")
	out.WriteString(self.funcName)
	out.WriteString("(")
	out.WriteString(strings.Join(self.param, ", "))
	if len(self.local) > 0 {
		if len(self.param) > 0 {
			out.WriteString(",    ")
		}
		out.WriteString(strings.Join(self.local, ", "))
	}
	out.WriteString(") {\n")
	out.WriteString(self.buf.String())
	out.WriteString("}\n")
	return out.String()
}
