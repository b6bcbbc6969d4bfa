// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fragment

import (
	"bytes"
	"strings"
)

// Mode selects how literal values are written into query text.
type Mode int

const (
	// Parameterized writes a placeholder for every value and records a
	// binding. This is the only mode that may be sent to an engine.
	Parameterized Mode = iota
	// Inline writes values as literals. It exists for debugging and test
	// assertions.
	Inline
)

func (m Mode) String() string {
	if m == Inline {
		return "inline"
	}
	return "parameterized"
}

// A Fragment is a composable unit of query text. Fragments write their text
// and values into a Builder; composite fragments write their children in
// order, so bindings come out in the same order as their placeholders.
type Fragment interface {
	BuildFragment(b *Builder)
}

// Builder accumulates query text and bindings.
type Builder struct {
	buf      bytes.Buffer
	reg      *Registry
	mode     Mode
	bindings Bindings
}

// NewBuilder returns a builder issuing ordinals from reg. A nil registry
// gets a fresh one.
func NewBuilder(reg *Registry, mode Mode) *Builder {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Builder{reg: reg, mode: mode}
}

// Mode returns the build mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// WriteString writes raw text.
func (b *Builder) WriteString(s string) {
	b.buf.WriteString(s)
}

// WriteValue writes a literal value. In parameterized mode the value is bound
// and its placeholder written instead.
func (b *Builder) WriteValue(v any) {
	if b.mode == Inline {
		b.buf.WriteString(FormatLiteral(v))
		return
	}
	binding := b.reg.Bind(v)
	b.bindings = append(b.bindings, binding)
	b.buf.WriteString(binding.Placeholder())
}

// Write writes a fragment. Nil fragments write nothing.
func (b *Builder) Write(f Fragment) {
	if f != nil {
		f.BuildFragment(b)
	}
}

// writeList writes the fragments separated by sep.
func (b *Builder) writeList(sep string, fs []Fragment) {
	for i, f := range fs {
		if i != 0 {
			b.buf.WriteString(sep)
		}
		b.Write(f)
	}
}

// Text returns the text written so far.
func (b *Builder) Text() string {
	return b.buf.String()
}

// Bindings returns the bindings in placeholder order.
func (b *Builder) Bindings() Bindings {
	return b.bindings
}

// Build renders f with a fresh registry.
func Build(f Fragment, mode Mode) (string, Bindings) {
	b := NewBuilder(nil, mode)
	b.Write(f)
	return b.Text(), b.Bindings()
}

// String renders f inline.
func String(f Fragment) string {
	text, _ := Build(f, Inline)
	return text
}

// Raw is trusted query text such as keywords and operators.
type Raw string

func (r Raw) BuildFragment(b *Builder) {
	b.WriteString(string(r))
}

// Value is a literal supplied by the user. It is always bound unless the
// builder is inlining.
type Value struct {
	V any
}

// Val wraps v as a Value fragment.
func Val(v any) Value {
	return Value{V: v}
}

func (v Value) BuildFragment(b *Builder) {
	b.WriteValue(v.V)
}

// Param references a query variable, e.g. $auth or a let binding.
type Param string

func (p Param) BuildFragment(b *Builder) {
	b.WriteString("$" + string(p))
}

// Ident is a table or field name. Names that are not plain identifiers are
// escaped with backticks.
type Ident string

func (id Ident) BuildFragment(b *Builder) {
	b.WriteString(QuoteIdent(string(id)))
}

// QuoteIdent escapes name if it is not a plain identifier.
func QuoteIdent(name string) string {
	if name == "*" || isPlainIdent(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Seq concatenates fragments without separators.
type Seq []Fragment

func (s Seq) BuildFragment(b *Builder) {
	for _, f := range s {
		b.Write(f)
	}
}

// List is a separated list of fragments.
type List struct {
	Sep   string
	Items []Fragment
}

// Join returns fs separated by sep.
func Join(sep string, fs ...Fragment) List {
	return List{Sep: sep, Items: fs}
}

func (l List) BuildFragment(b *Builder) {
	b.writeList(l.Sep, l.Items)
}

// Call is a function call. Arguments are written left to right, nested
// calls outermost first, which keeps bindings in evaluation order.
type Call struct {
	Name string
	Args []Fragment
}

// Fn returns a call of the named function.
func Fn(name string, args ...Fragment) Call {
	return Call{Name: name, Args: args}
}

func (c Call) BuildFragment(b *Builder) {
	b.WriteString(c.Name)
	b.WriteString("(")
	b.writeList(", ", c.Args)
	b.WriteString(")")
}

// Infix is a binary operation.
type Infix struct {
	Left  Fragment
	Op    string
	Right Fragment
}

func (in Infix) BuildFragment(b *Builder) {
	b.Write(in.Left)
	b.WriteString(" " + in.Op + " ")
	b.Write(in.Right)
}

// Prefix is a unary operation.
type Prefix struct {
	Op      string
	Operand Fragment
}

func (p Prefix) BuildFragment(b *Builder) {
	b.WriteString(p.Op)
	if len(p.Op) > 1 {
		b.WriteString(" ")
	}
	b.Write(p.Operand)
}

// Group wraps a fragment in parentheses.
type Group struct {
	Inner Fragment
}

func (g Group) BuildFragment(b *Builder) {
	b.WriteString("(")
	b.Write(g.Inner)
	b.WriteString(")")
}

// Array is an array literal whose elements may be any fragment.
type Array []Fragment

func (a Array) BuildFragment(b *Builder) {
	b.WriteString("[")
	b.writeList(", ", a)
	b.WriteString("]")
}

// Entry is one key of an Object.
type Entry struct {
	Key   string
	Value Fragment
}

// Object is an object literal. Keys keep their declared order.
type Object []Entry

func (o Object) BuildFragment(b *Builder) {
	if len(o) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{ ")
	for i, e := range o {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(e.Key))
		b.WriteString(": ")
		b.Write(e.Value)
	}
	b.WriteString(" }")
}
