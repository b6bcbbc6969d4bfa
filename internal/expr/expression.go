package expr

import (
	"strconv"
	"strings"

	"github.com/canonical/surrealair/internal/fragment"
)

// parseExpr parses an expression and lowers it to a fragment. Operator
// precedence, loosest first: OR, AND, comparison, additive, multiplicative,
// unary.
func (p *Parser) parseExpr() (fragment.Fragment, error) {
	return p.parseOr()
}

// binaryLevel parses operands of the next level joined by the operators
// recognized by match.
func (p *Parser) binaryLevel(next func() (fragment.Fragment, error), match func() (string, bool)) (fragment.Fragment, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := match()
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = fragment.Infix{Left: left, Op: op, Right: right}
	}
}

// matchOperator returns a matcher for the given symbols and keywords.
// Keywords are written upper case.
func (p *Parser) matchOperator(symbols []string, keywords []string) func() (string, bool) {
	return func() (string, bool) {
		for _, s := range symbols {
			if p.skipSymbol(s) {
				return s, true
			}
		}
		for _, kw := range keywords {
			if p.skipKeyword(kw) {
				return strings.ToUpper(kw), true
			}
		}
		return "", false
	}
}

func (p *Parser) parseOr() (fragment.Fragment, error) {
	return p.binaryLevel(p.parseAnd, p.matchOperator([]string{"||"}, []string{"OR"}))
}

func (p *Parser) parseAnd() (fragment.Fragment, error) {
	return p.binaryLevel(p.parseComparison, p.matchOperator([]string{"&&"}, []string{"AND"}))
}

var comparisonSymbols = []string{"==", "!=", "<=", ">=", "=", "<", ">"}

// Longer keywords first, CONTAINSNOT before CONTAINS.
var comparisonKeywords = []string{"CONTAINSNOT", "CONTAINSALL", "CONTAINSANY", "CONTAINS", "NOTINSIDE", "INSIDE", "IN"}

// parseComparison parses at most one comparison. Comparisons do not chain.
func (p *Parser) parseComparison() (fragment.Fragment, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := p.matchOperator(comparisonSymbols, comparisonKeywords)()
	if !ok && p.skipKeyword("IS") {
		op, ok = "IS", true
		if p.skipKeyword("NOT") {
			op = "IS NOT"
		}
	}
	if !ok {
		return left, nil
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return fragment.Infix{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseAdditive() (fragment.Fragment, error) {
	return p.binaryLevel(p.parseMultiplicative, p.matchOperator([]string{"+", "-"}, nil))
}

func (p *Parser) parseMultiplicative() (fragment.Fragment, error) {
	return p.binaryLevel(p.parseUnary, p.matchOperator([]string{"*", "/"}, nil))
}

func (p *Parser) parseUnary() (fragment.Fragment, error) {
	var op string
	switch {
	case p.skipSymbol("-"):
		op = "-"
	case p.skipSymbol("!"):
		op = "!"
	case p.skipKeyword("NOT"):
		op = "NOT"
	default:
		return p.parsePostfix()
	}
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return fragment.Prefix{Op: op, Operand: operand}, nil
}

// parsePostfix parses a primary expression followed by field accesses,
// indexes and graph edges: a.b, a.*, a[0], person->likes->product.
func (p *Parser) parsePostfix() (fragment.Fragment, error) {
	f, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseAccessors(f)
}

// parseAccessors parses the field accesses, indexes and edges following f.
func (p *Parser) parseAccessors(f fragment.Fragment) (fragment.Fragment, error) {
	for {
		switch {
		case p.skipSymbol("."):
			if p.skipSymbol("*") {
				f = fragment.Seq{f, fragment.Raw(".*")}
				continue
			}
			tok := p.peek()
			if !tok.is("Ident") {
				return nil, p.errorAt(tok, "expected field name")
			}
			p.advance()
			f = fragment.Seq{f, fragment.Raw("."), fragment.Ident(tok.text)}
		case p.skipSymbol("["):
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			f = fragment.Seq{f, fragment.Raw("["), index, fragment.Raw("]")}
		case p.skipSymbol("->"):
			next, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			f = fragment.Seq{f, fragment.Raw("->"), next}
		default:
			return f, nil
		}
	}
}

var queryKeywords = []string{"SELECT", "CREATE", "UPDATE", "DELETE", "RELATE"}

func (p *Parser) peekQuery() bool {
	for _, kw := range queryKeywords {
		if p.peek().isKeyword(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) parsePrimary() (fragment.Fragment, error) {
	tok := p.peek()
	switch {
	case tok.is("String"):
		p.advance()
		return fragment.Val(unquote(tok.text)), nil
	case tok.is("Int"):
		p.advance()
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, p.errorAt(tok, "integer out of range")
		}
		return fragment.Val(n), nil
	case tok.is("Float"):
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid number")
		}
		return fragment.Val(f), nil
	case tok.is("Param"):
		p.advance()
		return fragment.Param(tok.text[1:]), nil
	case tok.isSymbol("("):
		p.advance()
		var inner fragment.Fragment
		var err error
		if p.peekQuery() {
			inner, err = p.parseQuery()
		} else {
			inner, err = p.parseExpr()
		}
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return fragment.Group{Inner: inner}, nil
	case tok.isSymbol("["):
		p.advance()
		items, err := p.parseList("]")
		if err != nil {
			return nil, err
		}
		return fragment.Array(items), nil
	case tok.isSymbol("{"):
		return p.parseObject()
	case tok.is("Ident"):
		return p.parseIdent()
	case tok.is("EOF"):
		return nil, p.errorAt(tok, "unexpected end of input")
	}
	return nil, p.errorAt(tok, "unexpected token")
}

// parseList parses comma separated expressions up to the closing symbol,
// which is consumed. A trailing comma is allowed.
func (p *Parser) parseList(closing string) ([]fragment.Fragment, error) {
	items := []fragment.Fragment{}
	for !p.skipSymbol(closing) {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.skipSymbol(",") {
			if err := p.expectSymbol(closing); err != nil {
				return nil, err
			}
			break
		}
	}
	return items, nil
}

// parseObject parses an object literal such as { name: "Tobie", age: 3 }.
func (p *Parser) parseObject() (fragment.Fragment, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	obj := fragment.Object{}
	for !p.skipSymbol("}") {
		tok := p.peek()
		var key string
		switch {
		case tok.is("Ident"):
			key = tok.text
		case tok.is("String"):
			key = unquote(tok.text)
		default:
			return nil, p.errorAt(tok, "expected object key")
		}
		p.advance()
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj = append(obj, fragment.Entry{Key: key, Value: value})
		if !p.skipSymbol(",") {
			if err := p.expectSymbol("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	return obj, nil
}

// parseIdent parses the expressions that start with an identifier:
// keywords, function calls, record ids, variables and fields.
func (p *Parser) parseIdent() (fragment.Fragment, error) {
	tok := p.peek()
	switch {
	case tok.isKeyword("true"), tok.isKeyword("false"):
		p.advance()
		return fragment.Val(tok.isKeyword("true")), nil
	case tok.isKeyword("NONE"), tok.isKeyword("NULL"):
		p.advance()
		return fragment.Raw(strings.ToUpper(tok.text)), nil
	case p.peekQuery():
		return p.parseQuery()
	}

	next := p.peekN(1)
	switch {
	case next.isSymbol("::"), next.isSymbol("("):
		return p.parseCall()
	case next.isSymbol(":"):
		if id := p.peekN(2); id.is("Ident") || id.is("Int") {
			p.pos += 3
			return fragment.Seq{fragment.Ident(tok.text), fragment.Raw(":"), recordKey(id)}, nil
		}
	}

	p.advance()
	if !p.fields && p.inScope(tok.text) {
		return fragment.Param(tok.text), nil
	}
	return fragment.Ident(tok.text), nil
}

// recordKey renders the key of a record id. Keys are part of the record
// reference, not values.
func recordKey(tok token) fragment.Fragment {
	if tok.is("Int") {
		return fragment.Raw(tok.text)
	}
	return fragment.Ident(tok.text)
}

// parseCall parses a function call, e.g. crypto::argon2::compare(a, b).
func (p *Parser) parseCall() (fragment.Fragment, error) {
	parts := []string{p.advance().text}
	for p.skipSymbol("::") {
		tok := p.peek()
		if !tok.is("Ident") {
			return nil, p.errorAt(tok, "expected function name")
		}
		parts = append(parts, p.advance().text)
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	args, err := p.parseList(")")
	if err != nil {
		return nil, err
	}
	return fragment.Fn(strings.Join(parts, "::"), args...), nil
}

// unquote strips the quotes of a string literal and resolves escapes.
func unquote(s string) string {
	body := s[1 : len(s)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
