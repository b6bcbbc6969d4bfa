// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package typeinfo

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Type is a parsed type expression. Exactly one of the fields is set.
type Type struct {
	Pos lexer.Position

	Reference *Reference `  @@`
	Pointer   *Pointer   `| @@`
	BareFn    *BareFn    `| @@`
	Trait     *TraitType `| @@`
	Paren     *Paren     `| @@`
	Bracket   *Bracket   `| @@`
	Macro     *Macro     `| @@`
	Path      *Path      `| @@`
}

func (t *Type) String() string {
	switch {
	case t == nil:
		return ""
	case t.Reference != nil:
		return t.Reference.String()
	case t.Pointer != nil:
		return t.Pointer.String()
	case t.BareFn != nil:
		return t.BareFn.String()
	case t.Trait != nil:
		return t.Trait.String()
	case t.Paren != nil:
		return t.Paren.String()
	case t.Bracket != nil:
		return t.Bracket.String()
	case t.Macro != nil:
		return t.Macro.Raw
	case t.Path != nil:
		return t.Path.String()
	}
	return ""
}

// Reference is a borrowed type, e.g. &'a mut T.
type Reference struct {
	Lifetime string `"&" @Lifetime?`
	Mut      bool   `@"mut"?`
	Elem     *Type  `@@`
}

func (r *Reference) String() string {
	var sb strings.Builder
	sb.WriteString("&")
	if r.Lifetime != "" {
		sb.WriteString(r.Lifetime + " ")
	}
	if r.Mut {
		sb.WriteString("mut ")
	}
	sb.WriteString(r.Elem.String())
	return sb.String()
}

// Pointer is a raw pointer, e.g. *const T.
type Pointer struct {
	Mut  bool  `"*" ( "const" | @"mut" )`
	Elem *Type `@@`
}

func (p *Pointer) String() string {
	if p.Mut {
		return "*mut " + p.Elem.String()
	}
	return "*const " + p.Elem.String()
}

// BareFn is a function pointer type, e.g. fn(T, U) -> V.
type BareFn struct {
	Params []*Type `"fn" "(" ( @@ ( "," @@ )* ","? )? ")"`
	Return *Type   `( "->" @@ )?`
}

func (f *BareFn) String() string {
	s := "fn(" + joinTypes(f.Params) + ")"
	if f.Return != nil {
		s += " -> " + f.Return.String()
	}
	return s
}

// TraitType is an existential or trait object type, e.g. impl Iterator<Item = T> + 'a.
type TraitType struct {
	Keyword string   `@( "impl" | "dyn" )`
	Bounds  []*Bound `@@ ( "+" @@ )*`
}

func (t *TraitType) String() string {
	return t.Keyword + " " + joinBounds(t.Bounds)
}

// Paren is either a tuple or a parenthesized group. A single element without
// a trailing comma is a group.
type Paren struct {
	Elems    []*Type `"(" ( @@ ( "," @@ )* )?`
	Trailing bool    `@","? ")"`
}

// IsGroup reports whether the parentheses only group a single type.
func (p *Paren) IsGroup() bool {
	return len(p.Elems) == 1 && !p.Trailing
}

func (p *Paren) String() string {
	if len(p.Elems) == 1 && p.Trailing {
		return "(" + p.Elems[0].String() + ",)"
	}
	return "(" + joinTypes(p.Elems) + ")"
}

// Bracket is an array [T; N] or a slice [T].
type Bracket struct {
	Elem *Type   `"[" @@`
	Len  *string `( ";" @( Int | Ident ) )? "]"`
}

// IsArray reports whether the bracket has a length.
func (b *Bracket) IsArray() bool {
	return b.Len != nil
}

func (b *Bracket) String() string {
	if b.Len != nil {
		return "[" + b.Elem.String() + "; " + *b.Len + "]"
	}
	return "[" + b.Elem.String() + "]"
}

// Macro is a type produced by a macro invocation. Its expansion is unknown so
// it is kept as raw text.
type Macro struct {
	Raw string `@Macro`
}

// Path is a possibly qualified type name with generic arguments, e.g.
// std::collections::HashMap<K, V>.
type Path struct {
	Global   bool       `@"::"?`
	Segments []*Segment `@@ ( "::" @@ )*`
}

// Last returns the final segment of the path.
func (p *Path) Last() *Segment {
	if len(p.Segments) == 0 {
		return nil
	}
	return p.Segments[len(p.Segments)-1]
}

func (p *Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.String()
	}
	s := strings.Join(parts, "::")
	if p.Global {
		return "::" + s
	}
	return s
}

// Segment is one component of a path. Fn-like traits use the parenthesized
// argument form, e.g. Fn(T) -> U.
type Segment struct {
	Name   string        `@Ident`
	Args   []*GenericArg `( "<" @@ ( "," @@ )* ","? ">"`
	FnArgs *FnArgs       `| @@ )?`
}

// TypeArgs returns the type arguments of the segment, ignoring lifetimes
// and associated type bindings.
func (s *Segment) TypeArgs() []*Type {
	var types []*Type
	for _, a := range s.Args {
		if a.Type != nil && a.Name == "" {
			types = append(types, a.Type)
		}
	}
	return types
}

func (s *Segment) String() string {
	switch {
	case s.Args != nil:
		parts := make([]string, len(s.Args))
		for i, a := range s.Args {
			parts[i] = a.String()
		}
		return s.Name + "<" + strings.Join(parts, ", ") + ">"
	case s.FnArgs != nil:
		return s.Name + s.FnArgs.String()
	}
	return s.Name
}

// FnArgs is the parenthesized argument list of an Fn-like trait.
type FnArgs struct {
	Params []*Type `"(" ( @@ ( "," @@ )* ","? )? ")"`
	Return *Type   `( "->" @@ )?`
}

func (f *FnArgs) String() string {
	s := "(" + joinTypes(f.Params) + ")"
	if f.Return != nil {
		s += " -> " + f.Return.String()
	}
	return s
}

// GenericArg is a lifetime, an associated type binding or a type.
type GenericArg struct {
	Lifetime string `  @Lifetime`
	Name     string `| ( @Ident "=" )?`
	Type     *Type  `  @@`
}

func (a *GenericArg) String() string {
	switch {
	case a.Lifetime != "":
		return a.Lifetime
	case a.Name != "":
		return a.Name + " = " + a.Type.String()
	}
	return a.Type.String()
}

// Bound is a trait or lifetime bound.
type Bound struct {
	Lifetime string `  @Lifetime`
	Maybe    bool   `| ( @"?"?`
	Path     *Path  `    @@ )`
}

func (b *Bound) String() string {
	if b.Lifetime != "" {
		return b.Lifetime
	}
	if b.Maybe {
		return "?" + b.Path.String()
	}
	return b.Path.String()
}

// Generics are the generic parameters and where clause of a record.
type Generics struct {
	Params []*GenericParam   `( "<" ( @@ ( "," @@ )* ","? )? ">" )?`
	Where  []*WherePredicate `( "where" @@ ( "," @@ )* ","? )?`
}

// Param returns the declared parameter called name, lifetimes included with
// their leading quote.
func (g *Generics) Param(name string) *GenericParam {
	if g == nil {
		return nil
	}
	for _, p := range g.Params {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Empty reports whether no parameters are declared.
func (g *Generics) Empty() bool {
	return g == nil || len(g.Params) == 0
}

// String renders the parameter list, e.g. <'a, T: Clone>.
func (g *Generics) String() string {
	if g.Empty() {
		return ""
	}
	parts := make([]string, len(g.Params))
	for i, p := range g.Params {
		parts[i] = p.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// Args renders the parameters as arguments, e.g. <'a, T>.
func (g *Generics) Args() string {
	if g.Empty() {
		return ""
	}
	parts := make([]string, len(g.Params))
	for i, p := range g.Params {
		parts[i] = p.Name()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// WhereClause renders the where clause, e.g. "where T: Display".
func (g *Generics) WhereClause() string {
	if g == nil || len(g.Where) == 0 {
		return ""
	}
	parts := make([]string, len(g.Where))
	for i, w := range g.Where {
		parts[i] = w.String()
	}
	return "where " + strings.Join(parts, ", ")
}

// GenericParam is a lifetime, const or type parameter.
type GenericParam struct {
	Pos      lexer.Position
	Lifetime *LifetimeParam `  @@`
	Const    *ConstParam    `| @@`
	Type     *TypeParam     `| @@`
}

// Name returns the parameter name. Lifetimes keep their leading quote.
func (p *GenericParam) Name() string {
	switch {
	case p.Lifetime != nil:
		return p.Lifetime.Name
	case p.Const != nil:
		return p.Const.Name
	case p.Type != nil:
		return p.Type.Name
	}
	return ""
}

// IsLifetime reports whether the parameter is an ownership scope.
func (p *GenericParam) IsLifetime() bool {
	return p.Lifetime != nil
}

func (p *GenericParam) String() string {
	switch {
	case p.Lifetime != nil:
		if len(p.Lifetime.Bounds) == 0 {
			return p.Lifetime.Name
		}
		return p.Lifetime.Name + ": " + strings.Join(p.Lifetime.Bounds, " + ")
	case p.Const != nil:
		return "const " + p.Const.Name + ": " + p.Const.Type.String()
	case p.Type != nil:
		s := p.Type.Name
		if len(p.Type.Bounds) > 0 {
			s += ": " + joinBounds(p.Type.Bounds)
		}
		if p.Type.Default != nil {
			s += " = " + p.Type.Default.String()
		}
		return s
	}
	return ""
}

// LifetimeParam declares an ownership scope, e.g. 'a: 'b.
type LifetimeParam struct {
	Name   string   `@Lifetime`
	Bounds []string `( ":" @Lifetime ( "+" @Lifetime )* )?`
}

// ConstParam declares a const parameter, e.g. const N: usize.
type ConstParam struct {
	Name string `"const" @Ident ":"`
	Type *Type  `@@`
}

// TypeParam declares a type parameter, e.g. T: Clone + Default = u8.
type TypeParam struct {
	Name    string   `@Ident`
	Bounds  []*Bound `( ":" @@ ( "+" @@ )* )?`
	Default *Type    `( "=" @@ )?`
}

// WherePredicate constrains a lifetime or a type.
type WherePredicate struct {
	Lifetime string   `  ( @Lifetime ":"`
	Outlives []string `    @Lifetime ( "+" @Lifetime )* )`
	Bounded  *Type    `| ( @@ ":"`
	Bounds   []*Bound `    @@ ( "+" @@ )* )`
}

// BoundedIdent returns the identifier constrained by a type predicate when the
// bounded type is exactly a bare identifier.
func (w *WherePredicate) BoundedIdent() (string, bool) {
	if w.Bounded == nil || w.Bounded.Path == nil || len(w.Bounded.Path.Segments) != 1 {
		return "", false
	}
	seg := w.Bounded.Path.Segments[0]
	if w.Bounded.Path.Global || seg.Args != nil || seg.FnArgs != nil {
		return "", false
	}
	return seg.Name, true
}

func (w *WherePredicate) String() string {
	if w.Lifetime != "" {
		return w.Lifetime + ": " + strings.Join(w.Outlives, " + ")
	}
	return w.Bounded.String() + ": " + joinBounds(w.Bounds)
}

func joinTypes(types []*Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func joinBounds(bounds []*Bound) string {
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = b.String()
	}
	return strings.Join(parts, " + ")
}
