package cg

import (
	"fmt"
	"strings"
)

// awk helpers shared by every generated program. The out array is the
// output row written by the _eval functions.
const builtinAWK = `
function mq_abs(x) {
  x = x + 0
  return x < 0 ? -x : x
}

function mq_floor(x) {
  x = x + 0
  return (x == int(x) || x > 0) ? int(x) : int(x) - 1
}

function mq_ceil(x) {
  x = x + 0
  return (x == int(x) || x < 0) ? int(x) : int(x) + 1
}

function mq_round(x) {
  x = x + 0
  return x < 0 ? int(x - 0.5) : int(x + 0.5)
}

function mq_sqrt(x) {
  x = x + 0
  return x < 0 ? "" : sqrt(x)
}

function mq_log(x) {
  x = x + 0
  return x <= 0 ? "" : log(x)
}

# division by zero yields null instead of aborting the program
function mq_div(a, b) {
  b = b + 0
  return b == 0 ? "" : (a + 0) / b
}

function mq_mod(a, b) {
  b = b + 0
  return b == 0 ? "" : (a + 0) % b
}

function mq_emit(n,    i, line) {
  line = ""
  for (i = 0; i < n; i++) {
    line = line (i ? OFS : "") out[i]
  }
  print line
}
`

func scalar(name string, min, max int, fn func([]string) string) *Symbol {
	return &Symbol{
		Name:    name,
		MinArgs: min,
		MaxArgs: max,
		scalar:  fn,
	}
}

func call1(fn string) func([]string) string {
	return func(arg []string) string {
		return fmt.Sprintf("%s(%s)", fn, arg[0])
	}
}

func aggregate(
	name string,
	slots int,
	accumulate func(string, scratch) string,
	value func(scratch) string,
) *Symbol {
	return &Symbol{
		Name:       name,
		MinArgs:    1,
		MaxArgs:    1,
		Aggregate:  true,
		Slots:      slots,
		accumulate: accumulate,
		value:      value,
	}
}

var builtins = func() SymbolTable {
	count := aggregate(
		"count",
		1,
		func(arg string, sc scratch) string {
			if arg == "" {
				return fmt.Sprintf("%s++", sc.at(0))
			}
			return fmt.Sprintf("if (length(%s) > 0) %s++", arg, sc.at(0))
		},
		func(sc scratch) string {
			return fmt.Sprintf("(%s + 0)", sc.at(0))
		},
	)
	count.AllowAll = true

	return NewSymbolTable(
		// aggregates
		aggregate(
			"sum",
			1,
			func(arg string, sc scratch) string {
				return fmt.Sprintf("%s += (%s) + 0", sc.at(0), arg)
			},
			func(sc scratch) string {
				return fmt.Sprintf("(%s + 0)", sc.at(0))
			},
		),
		count,
		aggregate(
			"avg",
			2,
			func(arg string, sc scratch) string {
				return fmt.Sprintf("%s += (%s) + 0; %s++", sc.at(0), arg, sc.at(1))
			},
			func(sc scratch) string {
				return fmt.Sprintf("(%s ? %s / %s : 0)", sc.at(1), sc.at(0), sc.at(1))
			},
		),
		aggregate(
			"min",
			1,
			func(arg string, sc scratch) string {
				return fmt.Sprintf(
					"if (!%s || (%s) + 0 < %s) %s = (%s) + 0",
					sc.has(0), arg, sc.at(0), sc.at(0), arg,
				)
			},
			func(sc scratch) string {
				return sc.at(0)
			},
		),
		aggregate(
			"max",
			1,
			func(arg string, sc scratch) string {
				return fmt.Sprintf(
					"if (!%s || (%s) + 0 > %s) %s = (%s) + 0",
					sc.has(0), arg, sc.at(0), sc.at(0), arg,
				)
			},
			func(sc scratch) string {
				return sc.at(0)
			},
		),
		aggregate(
			"first",
			1,
			func(arg string, sc scratch) string {
				return fmt.Sprintf("if (!%s) %s = %s", sc.has(0), sc.at(0), arg)
			},
			func(sc scratch) string {
				return sc.at(0)
			},
		),
		aggregate(
			"last",
			1,
			func(arg string, sc scratch) string {
				return fmt.Sprintf("%s = %s", sc.at(0), arg)
			},
			func(sc scratch) string {
				return sc.at(0)
			},
		),

		// scalars
		scalar("abs", 1, 1, call1("mq_abs")),
		scalar("round", 1, 1, call1("mq_round")),
		scalar("floor", 1, 1, call1("mq_floor")),
		scalar("ceil", 1, 1, call1("mq_ceil")),
		scalar("sqrt", 1, 1, call1("mq_sqrt")),
		scalar("log", 1, 1, call1("mq_log")),
		scalar("exp", 1, 1, call1("exp")),
		scalar("int", 1, 1, call1("int")),
		scalar("lower", 1, 1, call1("tolower")),
		scalar("upper", 1, 1, call1("toupper")),
		scalar("length", 1, 1, call1("length")),
		scalar("concat", 1, -1, func(arg []string) string {
			return fmt.Sprintf("(\"\" %s)", strings.Join(arg, " "))
		}),
	)
}()

// Builtins returns the process wide builtin symbol table. It is never
// mutated and can be shared freely.
func Builtins() SymbolTable {
	return builtins
}
