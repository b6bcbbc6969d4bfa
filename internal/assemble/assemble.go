package assemble

import (
	"errors"
	"fmt"

	"github.com/canonical/surrealair/internal/expr"
	"github.com/canonical/surrealair/internal/fragment"
)

// ErrContinueUnsupported is returned for continue statements. Loop
// continuation is not defined for assembled queries.
var ErrContinueUnsupported = errors.New("continue is not supported")

// AssembledQuery is the text and bindings of a sequence of statements.
type AssembledQuery struct {
	Text     string
	Bindings fragment.Bindings
	// Slots names the result of every statement that produces one, in
	// response order. Statements without a name have an empty slot name.
	// Transaction delimiters produce no result.
	Slots []string
}

type options struct {
	mode fragment.Mode
	reg  *fragment.Registry
}

// Option configures assembly.
type Option func(*options)

// WithMode sets how values are written. The default is
// fragment.Parameterized.
func WithMode(mode fragment.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithRegistry numbers the values from reg instead of a fresh registry.
func WithRegistry(reg *fragment.Registry) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// Build renders the parts one per line, numbering all their values from a
// single registry.
func Build(parts []fragment.Fragment, opts ...Option) (string, fragment.Bindings) {
	o := options{mode: fragment.Parameterized}
	for _, opt := range opts {
		opt(&o)
	}
	b := fragment.NewBuilder(o.reg, o.mode)
	for i, part := range parts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.Write(part)
	}
	return b.Text(), b.Bindings()
}

// Assemble checks that the statements form a valid query and renders them.
func Assemble(stmts []expr.Statement, opts ...Option) (q *AssembledQuery, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot assemble statements: %w", err)
		}
	}()

	if err := validate(stmts); err != nil {
		return nil, err
	}

	parts := make([]fragment.Fragment, len(stmts))
	slots := []string{}
	for i, st := range stmts {
		parts[i] = st
		switch st := st.(type) {
		case *expr.Let:
			slots = append(slots, st.Name)
		case *expr.Expression:
			slots = append(slots, st.Name)
		case *expr.For:
			slots = append(slots, st.Result)
		default:
			switch st.Kind() {
			case expr.KindBeginTransaction, expr.KindCommitTransaction, expr.KindCancelTransaction:
			default:
				slots = append(slots, "")
			}
		}
	}
	text, bindings := Build(parts, opts...)
	return &AssembledQuery{Text: text, Bindings: bindings, Slots: slots}, nil
}

// validate checks the placement of loop control and transaction statements.
// Transactions may not nest, may not appear inside loops and must be closed
// by the end of the query.
func validate(stmts []expr.Statement) error {
	open := -1
	for i, st := range stmts {
		switch st.Kind() {
		case expr.KindBeginTransaction:
			if open >= 0 {
				return fmt.Errorf("statement %d: nested transaction, already opened by statement %d", i+1, open+1)
			}
			open = i
		case expr.KindCommitTransaction, expr.KindCancelTransaction:
			if open < 0 {
				return fmt.Errorf("statement %d: %s without begin transaction", i+1, st.Kind())
			}
			open = -1
		case expr.KindBreak:
			return fmt.Errorf("statement %d: break outside of a loop", i+1)
		case expr.KindContinue:
			return fmt.Errorf("statement %d: %w", i+1, ErrContinueUnsupported)
		case expr.KindFor:
			if err := validateLoopBody(st.(*expr.For).Body); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
	}
	if open >= 0 {
		return fmt.Errorf("statement %d: begin transaction without commit or cancel", open+1)
	}
	return nil
}

func validateLoopBody(body []expr.Statement) error {
	for _, st := range body {
		switch st.Kind() {
		case expr.KindBeginTransaction, expr.KindCommitTransaction, expr.KindCancelTransaction:
			return fmt.Errorf("%s inside a loop", st.Kind())
		case expr.KindContinue:
			return ErrContinueUnsupported
		case expr.KindFor:
			if err := validateLoopBody(st.(*expr.For).Body); err != nil {
				return err
			}
		}
	}
	return nil
}
