package expr

import (
	"fmt"
	"strings"

	"github.com/canonical/surrealair/internal/fragment"
)

var permissionOps = []string{"select", "create", "update", "delete"}

// ParsePermissions compiles a permission predicate:
//
//	FULL
//	NONE
//	FOR select, update WHERE <condition> [FOR delete WHERE <condition> ...]
func ParsePermissions(src string) (f fragment.Fragment, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot compile permissions: %w", err)
		}
	}()

	p := NewParser()
	if err := p.init(src); err != nil {
		return nil, err
	}
	for _, kw := range []string{"FULL", "NONE"} {
		if p.skipKeyword(kw) {
			if !p.peek().is("EOF") {
				return nil, p.errorAt(p.peek(), "unexpected input after %s", kw)
			}
			return fragment.Raw(kw), nil
		}
	}

	var rules []fragment.Fragment
	for !p.peek().is("EOF") {
		rule, err := p.parsePermissionRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, p.errorAt(p.peek(), "expected FULL, NONE or FOR")
	}
	return fragment.Join(" ", rules...), nil
}

// parsePermissionRule parses FOR op[, op...] WHERE <condition>.
func (p *Parser) parsePermissionRule() (fragment.Fragment, error) {
	if err := p.expectKeyword("FOR"); err != nil {
		return nil, err
	}
	var ops []string
	for {
		tok := p.peek()
		op := ""
		for _, known := range permissionOps {
			if tok.isKeyword(known) {
				op = known
			}
		}
		if op == "" {
			return nil, p.errorAt(tok, "expected one of %s", strings.Join(permissionOps, ", "))
		}
		p.advance()
		ops = append(ops, op)
		if !p.skipSymbol(",") {
			break
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return fragment.Seq{
		fragment.Raw("FOR " + strings.Join(ops, ", ") + " WHERE "),
		cond,
	}, nil
}
