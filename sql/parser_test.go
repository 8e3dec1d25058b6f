package sql

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func doTestParse(lhs, rhs string, assert *assert.Assertions) {
	stmts, err := Parse(rhs)
	if !assert.NoError(err, rhs) {
		return
	}
	assert.Len(stmts, 1, rhs)
	assert.Equal(lhs, PrintNode(stmts[0]), rhs)
}

func TestSelect1(t *testing.T) {
	assert := assert.New(t)

	doTestParse(
		"(SELECT (SELECT_LIST (ALL)) (FROM (TABLE_NAME m)))",
		"select * from m",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME a)) (DERIVED_COLUMN (COLUMN_NAME b) (COLUMN_ALIAS t))) (FROM (TABLE_NAME m)))",
		"SELECT a, b AS t FROM m",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (ADD_EXPR (LITERAL 1) (LITERAL 2.5)))))",
		"select 1 + 2.5",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (METHOD_CALL avg (COLUMN_NAME value)))) (FROM (TABLE_NAME m)) (GROUP_BY (COLUMN_NAME k)))",
		"select avg(value) from m group by k",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (METHOD_CALL count (ALL)))) (FROM (TABLE_NAME m)))",
		"select count(*) from m",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME time))) (FROM (TABLE_NAME m)) (WHERE (AND_EXPR (GTE_EXPR (COLUMN_NAME time) (LITERAL 10)) (LT_EXPR (COLUMN_NAME time) (LITERAL 20)))) (LIMIT 10 (OFFSET 5)))",
		"select time from m where time >= 10 and time < 20 limit 10 offset 5",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME value))) (FROM (TABLE_NAME 'Cpu.Load')))",
		`select value from "Cpu.Load"`,
		assert,
	)
}

func TestExprPrecedence(t *testing.T) {
	assert := assert.New(t)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (ADD_EXPR (LITERAL 1) (MUL_EXPR (LITERAL 2) (LITERAL 3))))))",
		"select 1 + 2 * 3",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (NEGATE_EXPR (POW_EXPR (LITERAL 2) (LITERAL 2))))))",
		"select -2 ^ 2",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (OR_EXPR (COLUMN_NAME a) (AND_EXPR (COLUMN_NAME b) (NOT_EXPR (COLUMN_NAME c)))))))",
		"select a or b and not c",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (NOT_EXPR (LIKE_EXPR (COLUMN_NAME a) (LITERAL 'x%'))))))",
		"select a not like 'x%'",
		assert,
	)

	doTestParse(
		"(SELECT (SELECT_LIST (DERIVED_COLUMN (MUL_EXPR (ADD_EXPR (LITERAL 1) (LITERAL 2)) (LITERAL 3)))))",
		"select (1 + 2) * 3",
		assert,
	)
}

func TestSeriesAndDraw(t *testing.T) {
	assert := assert.New(t)

	doTestParse(
		"(SERIES (SERIES_NAME 'cpu') (SELECT (SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME time)) (DERIVED_COLUMN (COLUMN_NAME value))) (FROM (TABLE_NAME m))))",
		"series 'cpu' from select time, value from m",
		assert,
	)

	doTestParse(
		"(SERIES (COLUMN_NAME host) (SELECT (SELECT_LIST (DERIVED_COLUMN (COLUMN_NAME time))) (FROM (TABLE_NAME m))))",
		"SERIES host FROM SELECT time FROM m",
		assert,
	)

	doTestParse("(DRAW bar)", "draw bar chart", assert)
	doTestParse("(DRAW line)", "DRAW LINE", assert)
}

func TestMultiStatement(t *testing.T) {
	assert := assert.New(t)

	stmts, err := Parse("draw line chart; series 'a' from select time, value from m;;")
	assert.NoError(err)
	assert.Len(stmts, 2)
	assert.Equal(NodeDraw, stmts[0].Tag)
	assert.Equal(NodeSeries, stmts[1].Tag)
}

func TestSyntaxError(t *testing.T) {
	assert := assert.New(t)

	for _, q := range []string{
		"",
		";",
		"select",
		"select a from",
		"select a from m where",
		"select a from m limit x",
		"select a from m limit 1 offset",
		"select a as 1",
		"select f(1,",
		"series 'a' select a",
		"draw 1",
		"select a b",
		"insert into m",
		"select 'abc",
	} {
		_, err := Parse(q)
		assert.Error(err, q)
		assert.True(errors.Is(err, ErrSyntax), q)
	}
}
