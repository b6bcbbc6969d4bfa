// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package surrealair

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/surrealair/internal/assemble"
	"github.com/canonical/surrealair/internal/expr"
	"github.com/canonical/surrealair/internal/fragment"
)

// M is a convenience type for passing extra query variables, such as the
// record of the current session, by name.
//
// Example:
//
//	stmt := surrealair.MustCompile(`SELECT * FROM post WHERE author = $auth;`)
//	posts, err := surrealair.Many[Post](db.Query(ctx, stmt, surrealair.M{"auth": "user:tobie"}))
type M map[string]any

// NameGenerator issues the result names of expression statements.
type NameGenerator = expr.NameGenerator

// Statement is a compiled unit of statements ready to be run on a [DB]. A
// Statement is immutable and can be run any number of times.
type Statement struct {
	source string
	stmts  []expr.Statement
	query  *assemble.AssembledQuery
}

type compileOptions struct {
	names NameGenerator
}

// Option configures [Compile].
type Option func(*compileOptions)

// WithNameGenerator sets the generator of result names for expression
// statements. Statements compiled with a generator are not cached.
func WithNameGenerator(g NameGenerator) Option {
	return func(o *compileOptions) {
		o.names = g
	}
}

// WithUUIDNames names expression results with random identifiers instead
// of a counter, so that names never repeat across compilations.
func WithUUIDNames() Option {
	return WithNameGenerator(expr.UUIDNames())
}

// Compile parses the statements in src, checks that they form a valid query
// and assembles the query text and bindings. Every literal in src is bound
// to a parameter.
//
// Statements compiled with the default options are cached by source.
func Compile(src string, opts ...Option) (*Statement, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}
	cacheable := o.names == nil
	if cacheable {
		if s, ok := stmtCache.get(src); ok {
			return s, nil
		}
	}

	stmts, err := expr.Compile(src, expr.WithNames(o.names))
	if err != nil {
		return nil, err
	}
	q, err := assemble.Assemble(stmts)
	if err != nil {
		return nil, err
	}
	s := &Statement{source: src, stmts: stmts, query: q}
	logger().Debug("compiled statement",
		"statements", len(stmts),
		"bindings", len(q.Bindings),
		"slots", len(q.Slots))

	if cacheable {
		stmtCache.add(src, s)
	}
	return s, nil
}

// MustCompile is the same as [Compile] except that it panics on error.
func MustCompile(src string, opts ...Option) *Statement {
	s, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Source returns the text the statement was compiled from.
func (s *Statement) Source() string {
	return s.source
}

// Query returns the query text sent to the engine.
func (s *Statement) Query() string {
	return s.query.Text
}

// Params returns the bound values keyed by parameter name.
func (s *Statement) Params() map[string]any {
	return s.query.Bindings.Params()
}

// Values returns the bound values in placeholder order.
func (s *Statement) Values() []any {
	return s.query.Bindings.Values()
}

// Bindings returns the bindings of the statement in placeholder order.
func (s *Statement) Bindings() []fragment.Binding {
	return s.query.Bindings
}

// Slots returns the result names of the statements in response order.
// Statements without a name have an empty slot name.
func (s *Statement) Slots() []string {
	return s.query.Slots
}

// Slot returns the response index of the named result.
func (s *Statement) Slot(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for i, slot := range s.query.Slots {
		if slot == name {
			return i, true
		}
	}
	return 0, false
}

// String returns the query with every value written inline. It is meant for
// logs and debugging, never for running.
func (s *Statement) String() string {
	q, err := assemble.Assemble(s.stmts, assemble.WithMode(fragment.Inline))
	if err != nil {
		return s.query.Text
	}
	return q.Text
}

// Runner sends a query to the engine and returns its raw response. It is
// implemented by the transport.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (Response, error)
}

// DB runs statements through a [Runner].
type DB struct {
	runner Runner
}

// NewDB creates a new [DB] from a [Runner].
func NewDB(r Runner) *DB {
	if r == nil {
		return nil
	}
	return &DB{runner: r}
}

// ErrNoRunner is returned when a query is run on a nil [DB].
var ErrNoRunner = errors.New("no runner")

// Runner returns the underlying transport.
func (db *DB) Runner() Runner {
	if db == nil {
		return nil
	}
	return db.runner
}

// Query represents a run of a statement. It is designed to be run once.
type Query struct {
	ctx  context.Context
	db   *DB
	stmt *Statement
	vars map[string]any
	err  error
}

// Query builds a new query from a context, a [Statement] and extra query
// variables. The query is run when [Query.Run], [Query.Response] or one of
// the decoding functions such as [One] is called.
func (db *DB) Query(ctx context.Context, s *Statement, vars ...M) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case db == nil:
		return &Query{ctx: ctx, err: fmt.Errorf("cannot run query: %w", ErrNoRunner)}
	case s == nil:
		return &Query{ctx: ctx, err: errors.New("cannot run query: nil statement")}
	}
	params := s.Params()
	for _, m := range vars {
		for k, v := range m {
			if _, ok := fragment.ParamOrdinal(k); ok || strings.HasPrefix(k, "$") {
				return &Query{ctx: ctx, err: fmt.Errorf("cannot bind variable %q: reserved name", k)}
			}
			params[k] = v
		}
	}
	return &Query{ctx: ctx, db: db, stmt: s, vars: params}
}

// Run runs the query and disregards any results. It fails if any statement
// failed.
func (q *Query) Run() error {
	_, err := q.Response()
	return err
}

// Response runs the query and returns the raw response. The error is the
// first failed statement, if any.
func (q *Query) Response() (Response, error) {
	if q.err != nil {
		return nil, q.err
	}
	logger().Debug("running query", "query", q.stmt.query.Text, "params", len(q.vars))
	resp, err := q.db.runner.Run(q.ctx, q.stmt.query.Text, q.vars)
	if err != nil {
		return nil, fmt.Errorf("cannot run query: %w", err)
	}
	if want := len(q.stmt.query.Slots); len(resp) != want {
		logger().Debug("unexpected number of results", "want", want, "got", len(resp))
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// One runs q and decodes the single result of its first statement. It
// returns nil if there is no result and [ErrTooManyResults] if there are
// more than one.
func One[T any](q *Query) (*T, error) {
	resp, err := q.Response()
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](resp)
}

// Many runs q and decodes every result of its first statement.
func Many[T any](q *Query) ([]T, error) {
	resp, err := q.Response()
	if err != nil {
		return nil, err
	}
	return DecodeMany[T](resp)
}

// First runs q and decodes the first result of its first statement, or nil.
func First[T any](q *Query) (*T, error) {
	resp, err := q.Response()
	if err != nil {
		return nil, err
	}
	return DecodeFirst[T](resp)
}

// Last runs q and decodes the last result of its first statement, or nil.
func Last[T any](q *Query) (*T, error) {
	resp, err := q.Response()
	if err != nil {
		return nil, err
	}
	return DecodeLast[T](resp)
}

// Get runs q and decodes the single result of its first statement. It
// returns [ErrRecordNotFound] if there is no result.
func Get[T any](q *Query) (T, error) {
	resp, err := q.Response()
	if err != nil {
		var zero T
		return zero, err
	}
	return GetOne[T](resp)
}
