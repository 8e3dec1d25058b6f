package cg

import (
	"fmt"
)

// Symbol describes a function callable from the query. Aggregates
// accumulate over rows of a group and need Slots scratch cells per group,
// scalars are pure per row functions.
type Symbol struct {
	Name      string
	MinArgs   int
	MaxArgs   int // -1 means variadic
	Aggregate bool
	Slots     int
	AllowAll  bool // accepts * as its only argument, ie count(*)

	// scalar lowering, receives the compiled arguments
	scalar func(arg []string) string

	// aggregate lowering. accumulate is emitted into the _acc function once
	// per row, value is the expression yielding the final result of a group.
	// arg is "" when the call was written with *
	accumulate func(arg string, sc scratch) string
	value      func(sc scratch) string
}

func (self *Symbol) checkArgs(n int) bool {
	if n < self.MinArgs {
		return false
	}
	return self.MaxArgs < 0 || n <= self.MaxArgs
}

type SymbolTable interface {
	Lookup(name string) (*Symbol, bool)
}

type symbolMap map[string]*Symbol

func (self symbolMap) Lookup(name string) (*Symbol, bool) {
	s, ok := self[name]
	return s, ok
}

// NewSymbolTable builds a read only table from the given symbols, later one
// wins on duplicated name.
func NewSymbolTable(syms ...*Symbol) SymbolTable {
	m := make(symbolMap, len(syms))
	for _, s := range syms {
		m[s.Name] = s
	}
	return m
}

// scratch addresses the slots of a single aggregate call inside of the
// scratch array of a compiled expression, keyed by the group key.
type scratch struct {
	arr  string
	key  string
	base int
}

func (self scratch) at(i int) string {
	return fmt.Sprintf("%s[%s, %d]", self.arr, self.key, self.base+i)
}

func (self scratch) has(i int) string {
	return fmt.Sprintf("((%s, %d) in %s)", self.key, self.base+i, self.arr)
}
