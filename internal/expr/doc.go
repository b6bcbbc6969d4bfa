/*
Package expr compiles the statement language into statements that render as
parameterized query text.

A unit of source is a sequence of statements, each terminated by a
semicolon:

	let name = <expression>;
	return <expression>;
	break;
	continue;
	begin transaction;
	commit transaction;
	cancel transaction;
	for name in <expression> { <statements> }
	<expression>;

# Parsing stage

Source text is tokenized by a participle lexer and parsed by hand. Each
statement production is tried in a fixed order: keyword statements first,
then the transaction phrases, then a bare expression. The first production
that matches wins. An expression statement is given a generated result name
taken from the NameGenerator of the compilation.

A syntax error anywhere in the unit fails the whole unit with a SyntaxError
carrying the line, column and offending text.

# Lowering

Expressions are lowered to fragments while they are parsed. Every literal
becomes a bound value, so query text never contains user data. Names bound by
let and for statements that are in scope lower to query variables ($name).
Numbering of the bound values is deferred until the statements are built, so
the same compiled statements can be assembled any number of times.
*/
package expr
