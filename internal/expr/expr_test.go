package expr_test

import (
	"errors"
	"strings"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/surrealair/internal/expr"
	"github.com/canonical/surrealair/internal/fragment"
)

// Hook up gocheck into the "go test" runner.
func TestExpr(t *testing.T) { TestingT(t) }

type ExprSuite struct{}

var _ = Suite(&ExprSuite{})

func build(f fragment.Fragment) (string, []any) {
	text, bindings := fragment.Build(f, fragment.Parameterized)
	return text, bindings.Values()
}

func (s *ExprSuite) TestLetBindsLiteral(c *C) {
	stmts, err := expr.Compile("let x = 5;")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 1)
	c.Assert(stmts[0].Kind(), Equals, expr.KindLet)

	let := stmts[0].(*expr.Let)
	c.Check(let.Name, Equals, "x")
	text, values := build(let.Value)
	c.Check(text, Equals, "$_param_00000001")
	c.Check(values, DeepEquals, []any{5})

	text, _ = build(let)
	c.Check(text, Equals, "LET $x = $_param_00000001;")
}

func (s *ExprSuite) TestTransactionPhrases(c *C) {
	tests := []struct {
		input string
		kind  expr.Kind
		text  string
	}{
		{"begin transaction;", expr.KindBeginTransaction, "BEGIN TRANSACTION;"},
		{"BEGIN TRANSACTION;", expr.KindBeginTransaction, "BEGIN TRANSACTION;"},
		{"  Begin \n\t  TransAction   ;  ", expr.KindBeginTransaction, "BEGIN TRANSACTION;"},
		{"commit transaction;", expr.KindCommitTransaction, "COMMIT TRANSACTION;"},
		{"CANCEL transaction;", expr.KindCancelTransaction, "CANCEL TRANSACTION;"},
	}
	for _, t := range tests {
		stmts, err := expr.Compile(t.input)
		c.Assert(err, IsNil, Commentf("%q", t.input))
		c.Assert(stmts, HasLen, 1)
		c.Check(stmts[0].Kind(), Equals, t.kind, Commentf("%q", t.input))
		c.Check(stmts[0].String(), Equals, t.text)
	}
}

func (s *ExprSuite) TestUnknownPhraseIsNotATransaction(c *C) {
	_, err := expr.Compile("begin work;")
	c.Assert(err, ErrorMatches, `cannot compile statements: column 7: expected ";" near "work"`)
}

func (s *ExprSuite) TestTransactionPhraseWinsOverVariable(c *C) {
	// A let bound variable named begin does not change how the phrase is
	// read.
	stmts, err := expr.Compile("let begin = 1; begin transaction;")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 2)
	c.Check(stmts[0].Kind(), Equals, expr.KindLet)
	c.Check(stmts[1].Kind(), Equals, expr.KindBeginTransaction)
}

func (s *ExprSuite) TestExpressionStatementsGetDistinctNames(c *C) {
	stmts, err := expr.Compile("SELECT * FROM user; SELECT * FROM post;")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 2)
	first := stmts[0].(*expr.Expression)
	second := stmts[1].(*expr.Expression)
	c.Check(first.Name, Equals, "_gen_00000001")
	c.Check(second.Name, Equals, "_gen_00000002")
	c.Check(first.String(), Equals, "SELECT * FROM user;")
	c.Check(second.String(), Equals, "SELECT * FROM post;")

	stmts, err = expr.Compile("1; 2; 3;", expr.WithNames(expr.UUIDNames()))
	c.Assert(err, IsNil)
	seen := map[string]bool{}
	for _, st := range stmts {
		name := st.(*expr.Expression).Name
		c.Check(strings.HasPrefix(name, "_gen_"), Equals, true)
		c.Check(seen[name], Equals, false)
		seen[name] = true
	}
}

func (s *ExprSuite) TestSharedNameGenerator(c *C) {
	names := expr.NewCounter()
	a, err := expr.Compile("1;", expr.WithNames(names))
	c.Assert(err, IsNil)
	b, err := expr.Compile("2;", expr.WithNames(names))
	c.Assert(err, IsNil)
	c.Check(a[0].(*expr.Expression).Name, Equals, "_gen_00000001")
	c.Check(b[0].(*expr.Expression).Name, Equals, "_gen_00000002")
}

func (s *ExprSuite) TestEmptyUnit(c *C) {
	for _, input := range []string{"", "   ", ";;", "-- nothing here\n// nor here"} {
		stmts, err := expr.Compile(input)
		c.Assert(err, IsNil)
		c.Check(stmts, HasLen, 0, Commentf("%q", input))
	}
}

func (s *ExprSuite) TestCompileIsIdempotent(c *C) {
	src := `let adult = 18; SELECT * FROM user WHERE age >= adult AND name = "Tobie";`
	first, err := expr.Compile(src)
	c.Assert(err, IsNil)
	second, err := expr.Compile(src)
	c.Assert(err, IsNil)
	c.Assert(first, HasLen, len(second))
	for i := range first {
		text1, values1 := build(first[i])
		text2, values2 := build(second[i])
		c.Check(text1, Equals, text2)
		c.Check(values1, DeepEquals, values2)
	}
	// Building the same statement twice numbers its values afresh.
	text1, _ := build(first[1])
	text2, _ := build(first[1])
	c.Check(text1, Equals, text2)
	c.Check(text1, Equals, "SELECT * FROM user WHERE age >= $adult AND name = $_param_00000001;")
}

func (s *ExprSuite) TestNoLiteralsNoBindings(c *C) {
	stmts, err := expr.Compile("SELECT name FROM user WHERE email = $email FETCH friends;")
	c.Assert(err, IsNil)
	text, values := build(stmts[0])
	c.Check(text, Equals, "SELECT name FROM user WHERE email = $email FETCH friends;")
	c.Check(values, HasLen, 0)
}

var renderTests = []struct {
	summary string
	input   string
	text    string
	values  []any
	inline  string
}{{
	summary: "function call",
	input:   `crypto::md5("Oyelowo");`,
	text:    "crypto::md5($_param_00000001);",
	values:  []any{"Oyelowo"},
	inline:  "crypto::md5('Oyelowo');",
}, {
	summary: "select with clauses",
	input:   "select name, age AS years from only user:john where age >= 18 and !deleted order by age desc limit 5 fetch friends;",
	text:    "SELECT name, age AS years FROM ONLY user:john WHERE age >= $_param_00000001 AND !deleted ORDER BY age DESC LIMIT $_param_00000002 FETCH friends;",
	values:  []any{18, 5},
}, {
	summary: "update",
	input:   `UPDATE person SET age += 1, tags = ["a"] WHERE tags CONTAINSNOT "b" RETURN NONE;`,
	text:    "UPDATE person SET age += $_param_00000001, tags = [$_param_00000002] WHERE tags CONTAINSNOT $_param_00000003 RETURN NONE;",
	values:  []any{1, "a", "b"},
}, {
	summary: "relate",
	input:   "RELATE person:1->wrote->article:2 CONTENT { time: time::now() };",
	text:    "RELATE person:1->wrote->article:2 CONTENT { time: time::now() };",
	values:  []any{},
}, {
	summary: "delete",
	input:   "DELETE FROM user WHERE email IS NOT NONE;",
	text:    "DELETE FROM user WHERE email IS NOT NONE;",
	values:  []any{},
}, {
	summary: "arithmetic",
	input:   "-(1 + 2.5) * 3;",
	text:    "-($_param_00000001 + $_param_00000002) * $_param_00000003;",
	values:  []any{1, 2.5, 3},
	inline:  "-(1 + 2.5) * 3;",
}, {
	summary: "subquery",
	input:   "SELECT * FROM (SELECT VALUE id FROM user) WHERE $auth.id INSIDE friends[0];",
	text:    "SELECT * FROM (SELECT VALUE id FROM user) WHERE $auth.id INSIDE friends[$_param_00000001];",
	values:  []any{0},
}, {
	summary: "object content",
	input:   `CREATE user CONTENT { name: "Tobie", "first-name": 'it\'s', active: true, note: NULL };`,
	text:    "CREATE user CONTENT { name: $_param_00000001, `first-name`: $_param_00000002, active: $_param_00000003, note: NULL };",
	values:  []any{"Tobie", "it's", true},
	inline:  "CREATE user CONTENT { name: 'Tobie', `first-name`: 'it\\'s', active: true, note: NULL };",
}, {
	summary: "boolean operators",
	input:   "a || b && c;",
	text:    "a || b && c;",
	values:  []any{},
}, {
	summary: "return",
	input:   "return [1, 2,];",
	text:    "RETURN [$_param_00000001, $_param_00000002];",
	values:  []any{1, 2},
}}

func (s *ExprSuite) TestRender(c *C) {
	for i, t := range renderTests {
		stmts, err := expr.Compile(t.input)
		c.Assert(err, IsNil, Commentf("test %d: %s", i, t.summary))
		c.Assert(stmts, HasLen, 1)
		text, values := build(stmts[0])
		c.Check(text, Equals, t.text, Commentf("test %d: %s", i, t.summary))
		if len(t.values) == 0 {
			c.Check(values, HasLen, 0, Commentf("test %d: %s", i, t.summary))
		} else {
			c.Check(values, DeepEquals, t.values, Commentf("test %d: %s", i, t.summary))
		}
		if t.inline != "" {
			c.Check(stmts[0].String(), Equals, t.inline, Commentf("test %d: %s", i, t.summary))
		}
	}
}

func (s *ExprSuite) TestLetScope(c *C) {
	stmts, err := expr.Compile("LET min = 18; SELECT * FROM user WHERE age > min; RETURN min;")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 3)
	text, _ := build(stmts[1])
	c.Check(text, Equals, "SELECT * FROM user WHERE age > $min;")
	c.Check(stmts[2].Kind(), Equals, expr.KindReturn)
	c.Check(stmts[2].String(), Equals, "RETURN $min;")

	// Names are not visible before they are bound.
	stmts, err = expr.Compile("SELECT * FROM user WHERE age > min; let min = 18;")
	c.Assert(err, IsNil)
	c.Check(stmts[0].String(), Equals, "SELECT * FROM user WHERE age > min;")
}

func (s *ExprSuite) TestProjectionNamesAreFields(c *C) {
	stmts, err := expr.Compile("let a = 1; SELECT a, $a AS b, a + 1 AS c FROM t WHERE a = a;")
	c.Assert(err, IsNil)
	c.Check(stmts[1].String(), Equals, "SELECT a, $a AS b, a + 1 AS c FROM t WHERE a = $a;")

	// Subqueries in a projection bind variables again.
	stmts, err = expr.Compile("let a = 1; SELECT a, (SELECT * FROM u WHERE x = a) AS u FROM t;")
	c.Assert(err, IsNil)
	c.Check(stmts[1].String(), Equals, "SELECT a, (SELECT * FROM u WHERE x = $a) AS u FROM t;")
}

func (s *ExprSuite) TestForLoop(c *C) {
	stmts, err := expr.Compile("for name in ['a', 'b'] { CREATE item SET label = name; };")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 1)
	loop := stmts[0].(*expr.For)
	c.Check(loop.Name, Equals, "name")
	c.Check(loop.Result, Equals, "_gen_00000001")
	c.Assert(loop.Body, HasLen, 1)
	c.Check(loop.Body[0].Kind(), Equals, expr.KindExpression)
	c.Check(loop.Body[0].(*expr.Expression).Name, Equals, "_gen_00000002")
	text, values := build(loop)
	c.Check(text, Equals, "FOR $name IN [$_param_00000001, $_param_00000002] { CREATE item SET label = $name; };")
	c.Check(values, DeepEquals, []any{"a", "b"})

	stmts, err = expr.Compile("for ($x in $list) { break; } SELECT x FROM t;")
	c.Assert(err, IsNil)
	c.Assert(stmts, HasLen, 2)
	c.Check(stmts[0].String(), Equals, "FOR $x IN $list { BREAK; };")
	// The loop variable is local to the body.
	c.Check(stmts[1].String(), Equals, "SELECT x FROM t;")

	stmts, err = expr.Compile("for x in $list {}")
	c.Assert(err, IsNil)
	c.Check(stmts[0].String(), Equals, "FOR $x IN $list {};")
}

func (s *ExprSuite) TestContinueParses(c *C) {
	stmts, err := expr.Compile("for x in $l { continue; }")
	c.Assert(err, IsNil)
	body := stmts[0].(*expr.For).Body
	c.Assert(body, HasLen, 1)
	c.Check(body[0].Kind(), Equals, expr.KindContinue)
}

func (s *ExprSuite) TestSyntaxErrors(c *C) {
	tests := []struct {
		input  string
		line   int
		column int
		err    string
	}{{
		input:  "let = 5;",
		line:   1,
		column: 5,
		err:    `cannot compile statements: column 5: expected variable name near "="`,
	}, {
		input:  "let x = 5",
		line:   1,
		column: 10,
		err:    `cannot compile statements: column 10: expected ";"`,
	}, {
		input:  "let x = 5;\nlet y = ;",
		line:   2,
		column: 9,
		err:    `cannot compile statements: line 2, column 9: unexpected token near ";"`,
	}, {
		input:  "for x in [1] { break;",
		line:   1,
		column: 22,
		err:    `cannot compile statements: column 22: missing closing brace`,
	}, {
		input:  "SELECT * user;",
		line:   1,
		column: 10,
		err:    `cannot compile statements: column 10: expected FROM near "user"`,
	}, {
		input:  "'unterminated",
		line:   1,
		column: 1,
		err:    `cannot compile statements: column 1: invalid input near "'unterminated"`,
	}, {
		input:  "let _gen_00000001 = 1; SELECT * FROM user;",
		line:   1,
		column: 5,
		err:    `cannot compile statements: column 5: variable names starting with _gen_ are reserved near "_gen_00000001"`,
	}, {
		input:  "for $_gen_x in [1] {}",
		line:   1,
		column: 5,
		err:    `cannot compile statements: column 5: variable names starting with _gen_ are reserved near "$_gen_x"`,
	}, {
		input:  "SELECT * FROM user; break",
		line:   1,
		column: 26,
		err:    `cannot compile statements: column 26: expected ";"`,
	}}
	for _, t := range tests {
		_, err := expr.Compile(t.input)
		c.Assert(err, ErrorMatches, regexpQuote(t.err), Commentf("%q", t.input))
		var syntaxErr *expr.SyntaxError
		c.Assert(errors.As(err, &syntaxErr), Equals, true)
		c.Check(syntaxErr.Line, Equals, t.line)
		c.Check(syntaxErr.Column, Equals, t.column)
	}
}

func (s *ExprSuite) TestParseExpr(c *C) {
	f, err := expr.ParseExpr("$value != NONE")
	c.Assert(err, IsNil)
	c.Check(fragment.String(f), Equals, "$value != NONE")

	f, err = expr.ParseExpr("string::len($value) > 3;")
	c.Assert(err, IsNil)
	text, values := build(f)
	c.Check(text, Equals, "string::len($value) > $_param_00000001")
	c.Check(values, DeepEquals, []any{3})

	_, err = expr.ParseExpr("1 2")
	c.Check(err, ErrorMatches, `cannot compile expression: column 3: unexpected input after expression near "2"`)
}

func (s *ExprSuite) TestParsePermissions(c *C) {
	f, err := expr.ParsePermissions("FULL")
	c.Assert(err, IsNil)
	c.Check(fragment.String(f), Equals, "FULL")

	f, err = expr.ParsePermissions("none")
	c.Assert(err, IsNil)
	c.Check(fragment.String(f), Equals, "NONE")

	f, err = expr.ParsePermissions("FOR select, UPDATE WHERE published = true FOR delete WHERE user = $auth.id")
	c.Assert(err, IsNil)
	text, values := build(f)
	c.Check(text, Equals, "FOR select, update WHERE published = $_param_00000001 FOR delete WHERE user = $auth.id")
	c.Check(values, DeepEquals, []any{true})

	_, err = expr.ParsePermissions("FOR drop WHERE x")
	c.Check(err, ErrorMatches, `cannot compile permissions: column 5: expected one of select, create, update, delete near "drop"`)

	_, err = expr.ParsePermissions("")
	c.Check(err, ErrorMatches, `cannot compile permissions: column 1: expected FULL, NONE or FOR`)
}

func regexpQuote(s string) string {
	r := strings.NewReplacer(`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `$`, `\$`, `.`, `\.`, `{`, `\{`, `}`, `\}`, `+`, `\+`, `?`, `\?`, `|`, `\|`)
	return r.Replace(s)
}
