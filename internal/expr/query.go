package expr

import (
	"strings"

	"github.com/canonical/surrealair/internal/fragment"
)

// parseQuery parses a query expression starting with SELECT, CREATE,
// UPDATE, DELETE or RELATE.
func (p *Parser) parseQuery() (fragment.Fragment, error) {
	fields := p.fields
	p.fields = false
	defer func() { p.fields = fields }()

	tok := p.peek()
	switch {
	case tok.isKeyword("SELECT"):
		return p.parseSelect()
	case tok.isKeyword("CREATE"), tok.isKeyword("UPDATE"), tok.isKeyword("DELETE"), tok.isKeyword("RELATE"):
		return p.parseMutation()
	}
	return nil, p.errorAt(tok, "expected query")
}

// clause is one keyword introduced part of a query.
type clause struct {
	keyword string
	parse   func() (fragment.Fragment, error)
}

// parseClauses parses the optional clauses in order and appends each one
// found to q. Every clause may appear at most once.
func (p *Parser) parseClauses(q fragment.Seq, clauses []clause) (fragment.Seq, error) {
	for _, c := range clauses {
		words := strings.Fields(c.keyword)
		cp := p.save()
		matched := true
		for _, w := range words {
			if !p.skipKeyword(w) {
				matched = false
				break
			}
		}
		if !matched {
			cp.restore()
			continue
		}
		f, err := c.parse()
		if err != nil {
			return nil, err
		}
		q = append(q, fragment.Raw(" "+c.keyword+" "), f)
	}
	return q, nil
}

// parseExprList parses comma separated expressions.
func (p *Parser) parseExprList(parse func() (fragment.Fragment, error)) (fragment.Fragment, error) {
	var items []fragment.Fragment
	for {
		item, err := parse()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.skipSymbol(",") {
			return fragment.Join(", ", items...), nil
		}
	}
}

// parseProjection parses a selected field: *, an expression or an
// expression with an alias. Bare names select fields, variables are
// written with $.
func (p *Parser) parseProjection() (fragment.Fragment, error) {
	if p.skipSymbol("*") {
		return fragment.Raw("*"), nil
	}
	p.fields = true
	f, err := p.parseExpr()
	p.fields = false
	if err != nil {
		return nil, err
	}
	if !p.skipKeyword("AS") {
		return f, nil
	}
	alias := p.peek()
	if !alias.is("Ident") {
		return nil, p.errorAt(alias, "expected alias")
	}
	p.advance()
	return fragment.Seq{f, fragment.Raw(" AS "), fragment.Ident(alias.text)}, nil
}

// parseFieldName parses a field path used by assignments, GROUP BY, SPLIT
// and FETCH. Field names are never variables.
func (p *Parser) parseFieldName() (fragment.Fragment, error) {
	tok := p.peek()
	if !tok.is("Ident") {
		return nil, p.errorAt(tok, "expected field name")
	}
	p.advance()
	return p.parseAccessors(fragment.Ident(tok.text))
}

func (p *Parser) parseOrder() (fragment.Fragment, error) {
	f, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{"ASC", "DESC"} {
		if p.skipKeyword(dir) {
			return fragment.Seq{f, fragment.Raw(" " + dir)}, nil
		}
	}
	return f, nil
}

// parseTargets parses the records or tables a query works on. ONLY may
// prefix them.
func (p *Parser) parseTargets() (fragment.Fragment, error) {
	only := p.skipKeyword("ONLY")
	targets, err := p.parseExprList(p.parseExpr)
	if err != nil {
		return nil, err
	}
	if only {
		return fragment.Seq{fragment.Raw("ONLY "), targets}, nil
	}
	return targets, nil
}

// parseSelect parses:
//
//	SELECT [VALUE] <projections> FROM [ONLY] <targets> [WHERE <cond>]
//	[SPLIT <fields>] [GROUP BY <fields>] [ORDER BY <order>]
//	[LIMIT <n>] [START <n>] [FETCH <fields>]
func (p *Parser) parseSelect() (fragment.Fragment, error) {
	p.advance()
	q := fragment.Seq{fragment.Raw("SELECT ")}
	if p.skipKeyword("VALUE") {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q = append(q, fragment.Raw("VALUE "), value)
	} else {
		projections, err := p.parseExprList(p.parseProjection)
		if err != nil {
			return nil, err
		}
		q = append(q, projections)
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	targets, err := p.parseTargets()
	if err != nil {
		return nil, err
	}
	q = append(q, fragment.Raw(" FROM "), targets)

	q, err = p.parseClauses(q, []clause{
		{"WHERE", p.parseExpr},
		{"SPLIT", func() (fragment.Fragment, error) { return p.parseExprList(p.parseFieldName) }},
		{"GROUP BY", func() (fragment.Fragment, error) { return p.parseExprList(p.parseFieldName) }},
		{"ORDER BY", func() (fragment.Fragment, error) { return p.parseExprList(p.parseOrder) }},
		{"LIMIT", p.parseExpr},
		{"START", p.parseExpr},
		{"FETCH", func() (fragment.Fragment, error) { return p.parseExprList(p.parseFieldName) }},
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// parseAssignment parses a field update: field = value, field += value or
// field -= value.
func (p *Parser) parseAssignment() (fragment.Fragment, error) {
	field, err := p.parseFieldName()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "+=", "-="} {
		if p.skipSymbol(op) {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return fragment.Infix{Left: field, Op: op, Right: value}, nil
		}
	}
	return nil, p.errorAt(p.peek(), "expected assignment")
}

// parseReturnClause parses what a mutation returns.
func (p *Parser) parseReturnClause() (fragment.Fragment, error) {
	for _, kw := range []string{"NONE", "BEFORE", "AFTER", "DIFF"} {
		if p.skipKeyword(kw) {
			return fragment.Raw(kw), nil
		}
	}
	return p.parseExprList(p.parseProjection)
}

// parseMutation parses:
//
//	CREATE [ONLY] <targets> [CONTENT <obj> | SET <assignments>] [RETURN ...]
//	UPDATE [ONLY] <targets> [CONTENT <obj> | MERGE <obj> | SET <assignments>] [WHERE <cond>] [RETURN ...]
//	DELETE [FROM] [ONLY] <targets> [WHERE <cond>] [RETURN ...]
//	RELATE [ONLY] <from>-><edge>-><to> [CONTENT <obj> | SET <assignments>] [RETURN ...]
func (p *Parser) parseMutation() (fragment.Fragment, error) {
	keyword := strings.ToUpper(p.advance().text)
	q := fragment.Seq{fragment.Raw(keyword + " ")}
	if keyword == "DELETE" && p.skipKeyword("FROM") {
		q = append(q, fragment.Raw("FROM "))
	}

	var targets fragment.Fragment
	var err error
	if keyword == "RELATE" {
		only := p.skipKeyword("ONLY")
		targets, err = p.parsePostfix()
		if only && err == nil {
			targets = fragment.Seq{fragment.Raw("ONLY "), targets}
		}
	} else {
		targets, err = p.parseTargets()
	}
	if err != nil {
		return nil, err
	}
	q = append(q, targets)

	var data []clause
	if keyword != "DELETE" {
		data = []clause{
			{"CONTENT", p.parseExpr},
			{"SET", func() (fragment.Fragment, error) { return p.parseExprList(p.parseAssignment) }},
		}
		if keyword == "UPDATE" {
			data = append(data, clause{"MERGE", p.parseExpr})
		}
	}
	clauses := data
	if keyword == "UPDATE" || keyword == "DELETE" {
		clauses = append(clauses, clause{"WHERE", p.parseExpr})
	}
	clauses = append(clauses, clause{"RETURN", p.parseReturnClause})

	q, err = p.parseClauses(q, clauses)
	if err != nil {
		return nil, err
	}
	return q, nil
}
