// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/text/cases"

	"github.com/canonical/surrealair/internal/fragment"
)

// Lexer tokenizes the statement language.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `(--|//)[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+([eE][+-]?[0-9]+)?`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Param", Pattern: `\$[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `::|->|\+=|-=|==|!=|<=|>=|&&|\|\||[-+*/=<>!?]`},
	{Name: "Punct", Pattern: `[;,.(){}\[\]:]`},
})

var symbolNames = lexer.SymbolsByRune(Lexer)

type token struct {
	typ  string
	text string
	pos  lexer.Position
}

func (t token) is(typ string) bool {
	return t.typ == typ
}

// isSymbol reports whether t is the operator or punctuation s.
func (t token) isSymbol(s string) bool {
	return (t.typ == "Operator" || t.typ == "Punct") && t.text == s
}

// fold case-folds s for keyword comparison. A Caser is stateful, so a new
// one is used for every call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// isKeyword reports whether t is the identifier kw, ignoring case.
func (t token) isKeyword(kw string) bool {
	return t.typ == "Ident" && fold(t.text) == fold(kw)
}

// Option configures a Parser.
type Option func(*Parser)

// WithNames sets the generator of result names for expression statements.
func WithNames(names NameGenerator) Option {
	return func(p *Parser) {
		p.names = names
	}
}

// Parser compiles source in the statement language.
type Parser struct {
	input string
	toks  []token
	pos   int
	names NameGenerator
	// scopes holds the names bound by let and for, innermost last.
	scopes []map[string]bool
	// fields is set while parsing projections, where bare names are
	// fields and never variables.
	fields bool
}

// NewParser returns a parser. Without options it names expression results
// with a fresh Counter.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.names == nil {
		p.names = NewCounter()
	}
	return p
}

// Compile parses src into statements.
func Compile(src string, opts ...Option) ([]Statement, error) {
	return NewParser(opts...).Parse(src)
}

// Parse compiles a unit of statements. An empty unit yields no statements.
func (p *Parser) Parse(input string) (stmts []Statement, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot compile statements: %w", err)
		}
	}()

	if err := p.init(input); err != nil {
		return nil, err
	}
	stmts, err = p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

// ParseExpr compiles a single expression, such as a field assertion. A
// trailing semicolon is allowed.
func ParseExpr(src string) (f fragment.Fragment, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot compile expression: %w", err)
		}
	}()

	p := NewParser()
	if err := p.init(src); err != nil {
		return nil, err
	}
	f, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSymbol(";")
	if !p.peek().is("EOF") {
		return nil, p.errorAt(p.peek(), "unexpected input after expression")
	}
	return f, nil
}

// init resets the state of the parser and tokenizes input.
func (p *Parser) init(input string) error {
	p.input = input
	p.pos = 0
	p.scopes = []map[string]bool{{}}
	p.toks = nil

	lex, err := Lexer.LexString("", input)
	if err != nil {
		return err
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return p.syntaxError(lexErr.Pos, p.textAt(lexErr.Pos.Offset), "invalid input")
		}
		return err
	}
	for _, t := range raw {
		typ := symbolNames[t.Type]
		if t.EOF() {
			typ = "EOF"
		}
		if typ == "Whitespace" || typ == "Comment" {
			continue
		}
		p.toks = append(p.toks, token{typ: typ, text: t.Value, pos: t.Pos})
	}
	return nil
}

// textAt returns the rest of the line starting at offset, used to quote
// input that could not be tokenized.
func (p *Parser) textAt(offset int) string {
	if offset >= len(p.input) {
		return ""
	}
	rest := p.input[offset:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func (p *Parser) syntaxError(pos lexer.Position, text string, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:      pos.Line,
		Column:    pos.Column,
		Text:      text,
		Msg:       fmt.Sprintf(format, args...),
		multiline: strings.ContainsRune(p.input, '\n'),
	}
}

// errorAt reports a syntax error at tok.
func (p *Parser) errorAt(tok token, format string, args ...any) error {
	return p.syntaxError(tok.pos, tok.text, format, args...)
}

// A checkpoint for restoring the parser after a failed attempt.
type checkpoint struct {
	parser *Parser
	pos    int
}

func (p *Parser) save() *checkpoint {
	return &checkpoint{parser: p, pos: p.pos}
}

func (cp *checkpoint) restore() {
	cp.parser.pos = cp.pos
}

// peek returns the current token. The last token is always EOF.
func (p *Parser) peek() token {
	return p.peekN(0)
}

func (p *Parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// skipSymbol jumps over the operator or punctuation s if it is next.
func (p *Parser) skipSymbol(s string) bool {
	if p.peek().isSymbol(s) {
		p.advance()
		return true
	}
	return false
}

// skipKeyword jumps over the keyword kw if it is next.
func (p *Parser) skipKeyword(kw string) bool {
	if p.peek().isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectSymbol(s string) error {
	if !p.skipSymbol(s) {
		return p.errorAt(p.peek(), "expected %q", s)
	}
	return nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.skipKeyword(kw) {
		return p.errorAt(p.peek(), "expected %s", strings.ToUpper(kw))
	}
	return nil
}

// bind adds name to the innermost scope.
func (p *Parser) bind(name string) {
	p.scopes[len(p.scopes)-1][name] = true
}

func (p *Parser) inScope(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if p.scopes[i][name] {
			return true
		}
	}
	return false
}

func (p *Parser) pushScope() {
	p.scopes = append(p.scopes, map[string]bool{})
}

func (p *Parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

// parseStatements parses statements up to the end of input, or up to the
// closing brace of a block.
func (p *Parser) parseStatements(inBlock bool) ([]Statement, error) {
	stmts := []Statement{}
	for {
		// Empty statements.
		for p.skipSymbol(";") {
		}
		tok := p.peek()
		if tok.is("EOF") {
			if inBlock {
				return nil, p.errorAt(tok, "missing closing brace")
			}
			return stmts, nil
		}
		if inBlock && tok.isSymbol("}") {
			return stmts, nil
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
}

// parseStatement tries every statement production in order. Keyword
// statements come first, then transaction phrases. Anything else is an
// expression statement.
func (p *Parser) parseStatement() (Statement, error) {
	matchers := []func() (Statement, bool, error){
		p.parseLet,
		p.parseReturn,
		p.parseBreak,
		p.parseContinue,
		p.parseFor,
		p.parseTransaction,
	}
	for _, match := range matchers {
		if st, ok, err := match(); err != nil {
			return nil, err
		} else if ok {
			return st, nil
		}
	}
	return p.parseExpressionStatement()
}

// parseVariable parses the name bound by let or for.
func (p *Parser) parseVariable() (string, error) {
	tok := p.peek()
	switch {
	case tok.is("Ident"), tok.is("Param"):
		name := strings.TrimPrefix(tok.text, "$")
		if strings.HasPrefix(name, generatedPrefix) {
			return "", p.errorAt(tok, "variable names starting with %s are reserved", generatedPrefix)
		}
		p.advance()
		return name, nil
	}
	return "", p.errorAt(tok, "expected variable name")
}

// parseLet parses a let statement:
//
//	let name = <expression>;
func (p *Parser) parseLet() (Statement, bool, error) {
	if !p.skipKeyword("let") {
		return nil, false, nil
	}
	name, err := p.parseVariable()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, false, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, false, err
	}
	// The name is visible from the next statement onwards.
	p.bind(name)
	return &Let{Name: name, Value: value}, true, nil
}

func (p *Parser) parseReturn() (Statement, bool, error) {
	if !p.skipKeyword("return") {
		return nil, false, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, false, err
	}
	return &Return{Value: value}, true, nil
}

func (p *Parser) parseBreak() (Statement, bool, error) {
	if !p.skipKeyword("break") {
		return nil, false, nil
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, false, err
	}
	return Break(), true, nil
}

func (p *Parser) parseContinue() (Statement, bool, error) {
	if !p.skipKeyword("continue") {
		return nil, false, nil
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, false, err
	}
	return Continue(), true, nil
}

// parseFor parses a loop:
//
//	for [(] name in <expression> [)] { <statements> } [;]
func (p *Parser) parseFor() (Statement, bool, error) {
	if !p.skipKeyword("for") {
		return nil, false, nil
	}
	paren := p.skipSymbol("(")
	name, err := p.parseVariable()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, false, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if paren {
		if err := p.expectSymbol(")"); err != nil {
			return nil, false, err
		}
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, false, err
	}
	result := p.names.Next()
	p.pushScope()
	p.bind(name)
	body, err := p.parseStatements(true)
	p.popScope()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, false, err
	}
	p.skipSymbol(";")
	return &For{Name: name, Result: result, Iterable: iterable, Body: body}, true, nil
}

var transactionPhrases = map[string]Statement{
	"begin transaction":  BeginTransaction(),
	"commit transaction": CommitTransaction(),
	"cancel transaction": CancelTransaction(),
}

// parseTransaction matches two identifiers and a semicolon against the
// transaction phrases, ignoring case.
func (p *Parser) parseTransaction() (Statement, bool, error) {
	first, second, end := p.peekN(0), p.peekN(1), p.peekN(2)
	if !first.is("Ident") || !second.is("Ident") || !end.isSymbol(";") {
		return nil, false, nil
	}
	st, ok := transactionPhrases[fold(first.text+" "+second.text)]
	if !ok {
		return nil, false, nil
	}
	p.pos += 3
	return st, true, nil
}

func (p *Parser) parseExpressionStatement() (Statement, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &Expression{Name: p.names.Next(), Expr: e}, nil
}
