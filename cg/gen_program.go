package cg

import (
	"strconv"
)

// Program assembly
// ----------------------------------------------------------------------------
// Every plan node that evaluates expressions is executed as one standalone
// awk program. The input of a program is the output of its child: records are
// separated by RecordSeparator and fields by FieldSeparator, which makes
// arbitrary text safe inside of a field as long as it does not contain those
// control characters. The output of a program uses the same framing.

const (
	RecordSeparator = "\036"
	FieldSeparator  = "\037"
)

const programBegin = `
BEGIN {
  FS = "\037"
  OFS = "\037"
  RS = "\036"
  ORS = "\036"
  CONVFMT = "%.10g"
  OFMT = "%.10g"
}
`

func newProgram(compiled ...*Compiled) *awkWriter {
	w := newAwkWriter("")
	w.Raw(builtinAWK)
	for _, c := range compiled {
		if c != nil {
			w.Raw(c.Source)
		}
	}
	w.Chunk(programBegin, nil)
	return w
}

// TableScanProgram filters each input row with where (optional) and emits the
// select list evaluated against it.
func TableScanProgram(sel *Compiled, where *Compiled) string {
	w := newProgram(sel, where)
	w.Open("", nil)
	if where != nil {
		w.Call(where.Name+"_eval", []string{`""`})
		w.Line("if (!out[0]) next", nil)
	}
	w.Call(sel.Name+"_eval", []string{`""`})
	w.Call("mq_emit", []string{strconv.Itoa(sel.Width)})
	w.Close()
	return w.Flush()
}

// TablelessProgram evaluates the select list exactly once, no input is read.
func TablelessProgram(sel *Compiled) string {
	w := newProgram(sel)
	w.Open("BEGIN", nil)
	w.Call(sel.Name+"_eval", []string{`""`})
	w.Call("mq_emit", []string{strconv.Itoa(sel.Width)})
	w.Close()
	return w.Flush()
}

// GroupByProgram groups the input rows by the outputs of group, groups are
// emitted in first seen order. The select list is accumulated per group and
// evaluated once per group against the last row of that group.
func GroupByProgram(group *Compiled, sel *Compiled) string {
	w := newProgram(group, sel)
	w.Chunk(
		`
{
  %[group]_eval("")
  key = ""
  for (i = 0; i < %[width]; i++) {
    key = key (i ? SUBSEP : "") out[i]
  }
  if (!(key in group_seen)) {
    group_seen[key] = 1
    group_keys[group_size++] = key
  }
  %[select]_acc(key)
  group_last[key] = $0
}

END {
  for (i = 0; i < group_size; i++) {
    key = group_keys[i]
    $0 = group_last[key]
    %[select]_eval(key)
    mq_emit(%[output])
  }
}
`,
		awkWriterCtx{
			"group":  group.Name,
			"select": sel.Name,
			"width":  group.Width,
			"output": sel.Width,
		},
	)
	return w.Flush()
}

// SeriesProgram prefixes the first axes fields of every input row with the
// value of the series name expression.
func SeriesProgram(name *Compiled, axes int) string {
	w := newProgram(name)
	w.Chunk(
		`
{
  %[name]_eval("")
  line = out[0]
  for (i = 1; i <= %[axes]; i++) {
    line = line OFS $i
  }
  print line
}
`,
		awkWriterCtx{
			"name": name.Name,
			"axes": axes,
		},
	)
	return w.Flush()
}
