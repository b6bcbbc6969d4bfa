// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fragment

import (
	"fmt"
	"sync/atomic"
)

// paramPrefix is the name prefix of every generated query parameter. The
// textual form of placeholders is part of the wire contract with the engine
// and with stored query snapshots, it must not change.
const paramPrefix = "_param_"

// Binding pairs a literal value with the ordinal of its placeholder.
type Binding struct {
	Ordinal uint64
	Value   any
}

// Name returns the parameter name the engine expects the value under,
// e.g. "_param_00000001".
func (b Binding) Name() string {
	return ParamName(b.Ordinal)
}

// Placeholder returns the text written into the query for this binding,
// e.g. "$_param_00000001".
func (b Binding) Placeholder() string {
	return "$" + b.Name()
}

func (b Binding) String() string {
	return fmt.Sprintf("%s=%#v", b.Placeholder(), b.Value)
}

// ParamName formats the parameter name for ordinal n.
func ParamName(n uint64) string {
	return fmt.Sprintf("%s%08d", paramPrefix, n)
}

// ParamOrdinal returns the ordinal X from a parameter name "_param_X" or
// placeholder "$_param_X".
func ParamOrdinal(s string) (uint64, bool) {
	if len(s) > 0 && s[0] == '$' {
		s = s[1:]
	}
	if len(s) != len(paramPrefix)+8 || s[:len(paramPrefix)] != paramPrefix {
		return 0, false
	}
	var n uint64
	for _, c := range s[len(paramPrefix):] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, n > 0
}

// Registry hands out binding ordinals. Ordinals start at 1, are issued in
// first-use order and are never reused.
//
// A Registry is normally owned by the construction of a single query. The
// counter is atomic so that a registry shared between goroutines still issues
// unique ordinals, though the relative order of bindings created concurrently
// is then up to the scheduler.
type Registry struct {
	last atomic.Uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Bind issues the next ordinal for value.
func (r *Registry) Bind(value any) Binding {
	return Binding{Ordinal: r.last.Add(1), Value: value}
}

// Issued returns how many bindings have been issued.
func (r *Registry) Issued() uint64 {
	return r.last.Load()
}

// Bindings is an ordered list of bindings.
type Bindings []Binding

// Params returns the bindings as the name to value map sent to the engine.
func (bs Bindings) Params() map[string]any {
	params := make(map[string]any, len(bs))
	for _, b := range bs {
		params[b.Name()] = b.Value
	}
	return params
}

// Values returns the bound values in placeholder order.
func (bs Bindings) Values() []any {
	values := make([]any, len(bs))
	for i, b := range bs {
		values[i] = b.Value
	}
	return values
}
