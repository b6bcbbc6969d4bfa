package typeinfo

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes type expressions. It also carries the tokens of the record
// declaration language so that declarations can embed type expressions
// directly.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Lifetime", Pattern: `'[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Macro", Pattern: `[A-Za-z_][A-Za-z0-9_]*!\s*(\([^()]*\)|\[[^\[\]]*\]|\{[^{}]*\})`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `@@|::|->|[<>(),;\[\]{}&*+=:!@?]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Options are the parser options shared by every grammar built on Lexer.
var Options = []participle.Option{
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
}

var (
	typeParser     = participle.MustBuild[Type](Options...)
	genericsParser = participle.MustBuild[Generics](Options...)
)

// ParseType parses a type expression such as Vec<Option<&'a str>>.
func ParseType(src string) (*Type, error) {
	t, err := typeParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse type %q: %w", src, err)
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error.
func MustParseType(src string) *Type {
	t, err := ParseType(src)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseGenerics parses a generic parameter list optionally followed by a
// where clause, e.g. <'a, T: Clone> where T: Display.
func ParseGenerics(src string) (*Generics, error) {
	g, err := genericsParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse generics %q: %w", src, err)
	}
	return g, nil
}

// MustParseGenerics is like ParseGenerics but panics on error.
func MustParseGenerics(src string) *Generics {
	g, err := ParseGenerics(src)
	if err != nil {
		panic(err)
	}
	return g
}
