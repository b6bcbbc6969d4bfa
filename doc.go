/*
SurrealAir compiles a small statement language into parameterized SurrealQL.

Every literal in the source is replaced by a generated parameter and its value
is passed to the engine separately, so user values never reach the query
text. Names bound by let and for statements become query variables.

# Basics

Given the source:

	begin transaction;
	let name = "Tobie";
	CREATE user SET name = name, age = 33;
	commit transaction;

[Compile] produces the query:

	BEGIN TRANSACTION;
	LET $name = $_param_00000001;
	CREATE user SET name = $name, age = $_param_00000002;
	COMMIT TRANSACTION;

with the parameters _param_00000001 = "Tobie" and _param_00000002 = 33.
Placeholders are numbered from 1 in the order they appear in the text.

# Statements

	let x = <expr>;                 binds a query variable
	return <expr>;                  ends the query with a value
	for x in <expr> { ... };        runs the body for every element
	break;                          leaves the innermost loop
	begin transaction;              also commit and cancel transaction
	<expr>;                         any expression or query

Expression statements are given a generated result name such as
_gen_00000001. [Statement.Slots] lists the result names in response order and
[Statement.Slot] finds the index of one of them.

Transactions may not nest, may not appear inside loops and must be closed
before the end of the query. continue is parsed but not supported.

# Results

A [Runner] sends the query to the engine and returns a [Response] with one
result per statement. The Decode functions map a result onto Go values with
encoding/json:

	resp, err := db.Query(ctx, stmt).Response()
	user, err := surrealair.DecodeOne[User](resp)

[DecodeOne] fails with [ErrTooManyResults] when more than one record was
returned, [GetOne] additionally fails with [ErrRecordNotFound] when none was.
*/
package surrealair
