package schema

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/canonical/surrealair/internal/typeinfo"
)

// File is a parsed declaration file.
type File struct {
	Pos   lexer.Position
	Decls []*Decl `@@*`
}

// Decl declares a record type:
//
//	table User<'a, T: Clone> where T: Display {
//	    @@table("user")
//	    @@schemafull
//	    name: String @assert("$value != NONE")
//	    friends: LinkMany<User>
//	}
type Decl struct {
	Pos        lexer.Position
	Kind       string                     `@( "table" | "object" | "edge" )`
	Name       string                     `@Ident`
	Params     []*typeinfo.GenericParam   `( "<" ( @@ ( "," @@ )* ","? )? ">" )?`
	Where      []*typeinfo.WherePredicate `( "where" @@ ( "," @@ )* ","? )? "{"`
	Attributes []*Attribute               `( @@`
	Fields     []*FieldDecl               `| @@ )* "}"`
}

// Generics returns the generics declared by the type.
func (d *Decl) Generics() *typeinfo.Generics {
	return &typeinfo.Generics{Params: d.Params, Where: d.Where}
}

// Attribute is a type level attribute, e.g. @@table("user").
type Attribute struct {
	Pos  lexer.Position
	Name string `"@@" @Ident`
	Args []*Arg `( "(" ( @@ ( "," @@ )* )? ")" )?`
}

// FieldDecl declares a field, e.g. age: u8 @assert("$value > 0").
type FieldDecl struct {
	Pos   lexer.Position
	Name  string         `@Ident ":"`
	Type  *typeinfo.Type `@@`
	Attrs []*FieldAttr   `@@* ","?`
}

// FieldAttr is a field attribute, e.g. @link_one(User).
type FieldAttr struct {
	Pos  lexer.Position
	Name string `"@" @Ident`
	Args []*Arg `( "(" ( @@ ( "," @@ )* )? ")" )?`
}

// Arg is an attribute argument: a string, an integer or an identifier.
type Arg struct {
	Pos    lexer.Position
	String *string `  @String`
	Int    *string `| @Int`
	Ident  *string `| @Ident`
}

// Value returns the argument text, unquoted.
func (a *Arg) Value() string {
	switch {
	case a.String != nil:
		return *a.String
	case a.Int != nil:
		return *a.Int
	case a.Ident != nil:
		return *a.Ident
	}
	return ""
}

var parser = participle.MustBuild[File](
	append(typeinfo.Options, participle.Unquote("String"))...,
)

// Parse reads the record declarations in src. filename is used in error
// positions.
func Parse(filename string, src string) (*File, error) {
	f, err := parser.ParseString(filename, src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse declarations: %w", err)
	}
	return f, nil
}
