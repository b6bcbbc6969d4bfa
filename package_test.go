package surrealair_test

import (
	"context"
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/surrealair"
	"github.com/canonical/surrealair/internal/expr"
)

type PackageSuite struct{}

var _ = Suite(&PackageSuite{})

type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (s *PackageSuite) TestCompile(c *C) {
	stmt, err := surrealair.Compile(`
		begin transaction;
		let name = "Tobie";
		CREATE person SET name = name, age = 33;
		SELECT * FROM person WHERE age > 30;
		commit transaction;`)
	c.Assert(err, IsNil)
	c.Check(stmt.Query(), Equals, "BEGIN TRANSACTION;\n"+
		"LET $name = $_param_00000001;\n"+
		"CREATE person SET name = $name, age = $_param_00000002;\n"+
		"SELECT * FROM person WHERE age > $_param_00000003;\n"+
		"COMMIT TRANSACTION;")
	c.Check(stmt.Values(), DeepEquals, []any{"Tobie", 33, 30})
	c.Check(stmt.Params(), DeepEquals, map[string]any{
		"_param_00000001": "Tobie",
		"_param_00000002": 33,
		"_param_00000003": 30,
	})
	c.Check(stmt.Slots(), DeepEquals, []string{"name", "_gen_00000001", "_gen_00000002"})

	i, ok := stmt.Slot("_gen_00000002")
	c.Check(ok, Equals, true)
	c.Check(i, Equals, 2)
	_, ok = stmt.Slot("missing")
	c.Check(ok, Equals, false)
}

func (s *PackageSuite) TestCompileLoopSlot(c *C) {
	stmt, err := surrealair.Compile("let n = 1; for x in [1] { CREATE t SET v = x; }; SELECT * FROM t;")
	c.Assert(err, IsNil)
	c.Check(stmt.Query(), Equals, "LET $n = $_param_00000001;\n"+
		"FOR $x IN [$_param_00000002] { CREATE t SET v = $x; };\n"+
		"SELECT * FROM t;")
	c.Check(stmt.Slots(), DeepEquals, []string{"n", "_gen_00000001", "_gen_00000003"})

	i, ok := stmt.Slot("_gen_00000001")
	c.Check(ok, Equals, true)
	c.Check(i, Equals, 1)
	i, ok = stmt.Slot("_gen_00000003")
	c.Check(ok, Equals, true)
	c.Check(i, Equals, 2)
}

func (s *PackageSuite) TestCompileErrors(c *C) {
	_, err := surrealair.Compile("begin work;")
	c.Check(err, ErrorMatches, `cannot compile statements: column 7: expected ";" near "work"`)
	var serr *expr.SyntaxError
	c.Check(errors.As(err, &serr), Equals, true)
	c.Check(serr.Column, Equals, 7)

	_, err = surrealair.Compile("commit transaction;")
	c.Check(err, ErrorMatches, "cannot assemble statements: statement 1: commit transaction without begin transaction")

	c.Check(func() { surrealair.MustCompile("let = 1;") }, PanicMatches, "cannot compile statements: .*")

	_, err = surrealair.Compile("let _gen_00000001 = 1; SELECT * FROM user;")
	c.Check(err, ErrorMatches, "cannot compile statements: column 5: variable names starting with _gen_ are reserved .*")
}

func (s *PackageSuite) TestStatementString(c *C) {
	stmt := surrealair.MustCompile(`CREATE person SET name = "O'Neil", tags = ["a", "b"];`)
	c.Check(stmt.String(), Equals, `CREATE person SET name = 'O\'Neil', tags = ['a', 'b'];`)
	c.Check(stmt.Source(), Equals, `CREATE person SET name = "O'Neil", tags = ["a", "b"];`)
}

func (s *PackageSuite) TestUUIDNames(c *C) {
	first := surrealair.MustCompile("SELECT * FROM person;", surrealair.WithUUIDNames())
	second := surrealair.MustCompile("SELECT * FROM person;", surrealair.WithUUIDNames())
	c.Check(first.Slots()[0], Matches, "_gen_[0-9a-f]{32}")
	c.Check(first.Slots()[0], Not(Equals), second.Slots()[0])
}

func (s *PackageSuite) TestQueryRun(c *C) {
	runner := replyWith(`[{"status": "OK", "result": null}]`)
	db := surrealair.NewDB(runner)
	stmt := surrealair.MustCompile("UPDATE person SET age += 1 WHERE owner = $auth;")

	err := db.Query(context.Background(), stmt, surrealair.M{"auth": "person:tobie"}).Run()
	c.Assert(err, IsNil)

	calls := runner.runs()
	c.Assert(calls, HasLen, 1)
	c.Check(calls[0].query, Equals, "UPDATE person SET age += $_param_00000001 WHERE owner = $auth;")
	c.Check(calls[0].params, DeepEquals, map[string]any{
		"_param_00000001": 1,
		"auth":            "person:tobie",
	})
}

func (s *PackageSuite) TestQueryReservedVariable(c *C) {
	runner := &fakeRunner{}
	db := surrealair.NewDB(runner)
	stmt := surrealair.MustCompile("RETURN $x;")

	err := db.Query(nil, stmt, surrealair.M{"_param_00000001": 2}).Run()
	c.Check(err, ErrorMatches, `cannot bind variable "_param_00000001": reserved name`)
	c.Check(runner.runs(), HasLen, 0)
}

func (s *PackageSuite) TestQueryRunnerError(c *C) {
	runner := &fakeRunner{}
	db := surrealair.NewDB(runner)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.Query(ctx, surrealair.MustCompile("RETURN 1;")).Run()
	c.Check(err, ErrorMatches, "cannot run query: context canceled")
	c.Check(errors.Is(err, context.Canceled), Equals, true)
}

func (s *PackageSuite) TestQueryStatementError(c *C) {
	db := surrealair.NewDB(replyWith(`[
		{"status": "OK", "result": []},
		{"status": "ERR", "detail": "Database record already exists"}
	]`))
	stmt := surrealair.MustCompile("SELECT * FROM person; CREATE person:tobie;")

	resp, err := db.Query(nil, stmt).Response()
	c.Check(err, ErrorMatches, "statement 2 failed with status ERR: Database record already exists")
	var qerr *surrealair.QueryError
	c.Assert(errors.As(err, &qerr), Equals, true)
	c.Check(qerr.Slot, Equals, 1)
	c.Check(resp, HasLen, 2)

	_, err = surrealair.DecodeManyAt[Person](resp, 1)
	c.Check(err, ErrorMatches, "statement 2 failed with status ERR: .*")
}

func (s *PackageSuite) TestQueryDecoders(c *C) {
	db := surrealair.NewDB(replyWith(`[{"status": "OK", "result": [
		{"id": "person:tobie", "name": "Tobie", "age": 33},
		{"id": "person:jaime", "name": "Jaime", "age": 31}
	]}]`))
	stmt := surrealair.MustCompile("SELECT * FROM person ORDER BY name DESC;")

	people, err := surrealair.Many[Person](db.Query(nil, stmt))
	c.Assert(err, IsNil)
	c.Check(people, DeepEquals, []Person{
		{ID: "person:tobie", Name: "Tobie", Age: 33},
		{ID: "person:jaime", Name: "Jaime", Age: 31},
	})

	first, err := surrealair.First[Person](db.Query(nil, stmt))
	c.Assert(err, IsNil)
	c.Check(first.Name, Equals, "Tobie")

	last, err := surrealair.Last[Person](db.Query(nil, stmt))
	c.Assert(err, IsNil)
	c.Check(last.Name, Equals, "Jaime")

	_, err = surrealair.One[Person](db.Query(nil, stmt))
	c.Check(errors.Is(err, surrealair.ErrTooManyResults), Equals, true)

	_, err = surrealair.Get[Person](db.Query(nil, stmt))
	c.Check(errors.Is(err, surrealair.ErrTooManyResults), Equals, true)
}

func (s *PackageSuite) TestStrictDecode(c *C) {
	two, err := surrealair.ParseResponse([]byte(`[{"status": "OK", "result": [{"name": "a"}, {"name": "b"}]}]`))
	c.Assert(err, IsNil)
	_, err = surrealair.GetOne[Person](two)
	c.Check(err, ErrorMatches, "cannot decode result 1: got 2 rows: too many results")
	c.Check(errors.Is(err, surrealair.ErrTooManyResults), Equals, true)

	none, err := surrealair.ParseResponse([]byte(`[{"status": "OK", "result": []}]`))
	c.Assert(err, IsNil)
	_, err = surrealair.GetOne[Person](none)
	c.Check(err, ErrorMatches, "cannot decode result 1: record not found")
	c.Check(errors.Is(err, surrealair.ErrRecordNotFound), Equals, true)
	c.Check(errors.Is(err, surrealair.ErrTooManyResults), Equals, false)

	one, err := surrealair.ParseResponse([]byte(`[{"status": "OK", "result": [{"name": "a", "age": 7}]}]`))
	c.Assert(err, IsNil)
	p, err := surrealair.GetOne[Person](one)
	c.Assert(err, IsNil)
	c.Check(p, Equals, Person{Name: "a", Age: 7})
}

func (s *PackageSuite) TestEmptyResults(c *C) {
	for _, body := range []string{
		`[{"status": "OK", "result": []}]`,
		`[{"status": "OK", "result": null}]`,
		`[{"status": "OK"}]`,
	} {
		resp, err := surrealair.ParseResponse([]byte(body))
		c.Assert(err, IsNil)

		one, err := surrealair.DecodeOne[Person](resp)
		c.Check(err, IsNil)
		c.Check(one, IsNil)
		many, err := surrealair.DecodeMany[Person](resp)
		c.Check(err, IsNil)
		c.Check(many, HasLen, 0)
		first, err := surrealair.DecodeFirst[Person](resp)
		c.Check(err, IsNil)
		c.Check(first, IsNil)
		last, err := surrealair.DecodeLast[Person](resp)
		c.Check(err, IsNil)
		c.Check(last, IsNil)
	}
}

func (s *PackageSuite) TestDecodeShapes(c *C) {
	resp, err := surrealair.ParseResponse([]byte(`[
		{"status": "OK", "result": 42},
		{"status": "OK", "result": {"name": "Tobie"}},
		{"status": "OK", "result": [{"name": 12}]}
	]`))
	c.Assert(err, IsNil)

	n, err := surrealair.DecodeOne[int](resp)
	c.Assert(err, IsNil)
	c.Check(*n, Equals, 42)

	p, err := surrealair.DecodeOneAt[Person](resp, 1)
	c.Assert(err, IsNil)
	c.Check(p.Name, Equals, "Tobie")

	_, err = surrealair.DecodeManyAt[Person](resp, 2)
	var derr *surrealair.DecodeError
	c.Assert(errors.As(err, &derr), Equals, true)
	c.Check(derr.Slot, Equals, 2)
	c.Check(err, ErrorMatches, "cannot decode result 3: json: cannot unmarshal number .*")

	_, err = surrealair.DecodeOneAt[Person](resp, 3)
	c.Check(err, ErrorMatches, "cannot decode result 4: response has 3 results")
}

func (s *PackageSuite) TestParseResponseError(c *C) {
	_, err := surrealair.ParseResponse([]byte(`{"status": "OK"}`))
	c.Check(err, ErrorMatches, "cannot parse response: .*")
}

func (s *PackageSuite) TestNewDBNil(c *C) {
	db := surrealair.NewDB(nil)
	c.Check(db, IsNil)
	c.Check(db.Runner(), IsNil)

	stmt := surrealair.MustCompile("SELECT * FROM person;")
	err := db.Query(context.Background(), stmt).Run()
	c.Check(err, ErrorMatches, "cannot run query: no runner")
	c.Check(errors.Is(err, surrealair.ErrNoRunner), Equals, true)

	_, err = surrealair.Get[Person](db.Query(nil, stmt))
	c.Check(errors.Is(err, surrealair.ErrNoRunner), Equals, true)

	db = surrealair.NewDB(&fakeRunner{})
	err = db.Query(context.Background(), nil).Run()
	c.Check(err, ErrorMatches, "cannot run query: nil statement")
}
