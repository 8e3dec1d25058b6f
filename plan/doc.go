package plan

// The following documentation is used to describe how a statement is mapped
// into a plan tree. Every node of the tree is executed as a standalone awk
// program (see package cg) whose input is the output of its child.
//
// 1) TableScan
//    Leaf node. The storage is scanned within a time range narrowed from the
//    where clause (see early_filter.go), every row is filtered by the where
//    clause and projected by the select list.
//
// 2) TablelessSelect
//    Leaf node, "select 1 + 2". The select list is evaluated exactly once
//    inside of the BEGIN block and no input is ever read.
//
// 3) GroupBy
//    Composite node. The statement is split into an outer part (select list
//    and grouping keys) and a child select which produces the columns the
//    outer part needs, see groupby.go and pushdown.go. The outer part is
//    compiled into 2 expressions:
//
//    group_eval(k)  computes the grouping key of the current row
//    select_acc(k)  accumulates every aggregate of the select list
//    select_eval(k) computes the output row of a group
//
//    Aggregates store their state inside of select_sc[k, slot], the number
//    of slots per group is known at plan time.
//
// 4) LimitClause
//    Composite node, keeps the rows in [offset, offset+limit) of its child.
//
// 5) SeriesStatement
//    Composite node, prefixes each row of the nested select with the series
//    name, which is either a literal or an expression evaluated against the
//    nested row.
//
// 6) DrawStatement
//    Leaf node without any row, selects the chart used for the series of the
//    query.
