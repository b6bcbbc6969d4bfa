package typeinfo

import "strings"

// Closure is the minimal subset of a record's generics that a field type
// depends on. Params and Where keep the declaration order of the record so
// that the rendered signature is stable.
type Closure struct {
	Params []*GenericParam
	Where  []*WherePredicate
}

// Empty reports whether the field depends on no generics at all.
func (c Closure) Empty() bool {
	return len(c.Params) == 0
}

// Names returns the parameter names in the closure. Lifetimes keep their
// leading quote.
func (c Closure) Names() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name()
	}
	return names
}

// TypeParams returns the names of the type and const parameters only.
func (c Closure) TypeParams() []string {
	var names []string
	for _, p := range c.Params {
		if !p.IsLifetime() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Scopes returns the ownership scopes (lifetimes) in the closure.
func (c Closure) Scopes() []string {
	var names []string
	for _, p := range c.Params {
		if p.IsLifetime() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Signature renders the generics a derived accessor must repeat, e.g.
// "<'a, T: Clone> where T: Display". It is empty for an empty closure.
func (c Closure) Signature() string {
	if c.Empty() {
		return ""
	}
	g := &Generics{Params: c.Params, Where: c.Where}
	if len(c.Where) == 0 {
		return g.String()
	}
	return g.String() + " " + g.WhereClause()
}

// Args renders the closure as generic arguments, e.g. "<'a, T>".
func (c Closure) Args() string {
	if c.Empty() {
		return ""
	}
	return "<" + strings.Join(c.Names(), ", ") + ">"
}

// nameSet is an immutable set of parameter names.
type nameSet map[string]struct{}

func (s nameSet) with(name string) nameSet {
	if _, ok := s[name]; ok {
		return s
	}
	out := make(nameSet, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	out[name] = struct{}{}
	return out
}

func union(sets ...nameSet) nameSet {
	out := nameSet{}
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

// Extract computes the generics closure of field type t with respect to the
// record generics g. Only parameters declared by g can appear in the result.
// Named lifetimes are collected; the anonymous '_ and elided lifetimes are
// not. Where predicates are kept when their bounded type is exactly one of
// the collected parameters.
func Extract(t *Type, g *Generics) Closure {
	if t == nil || g.Empty() {
		return Closure{}
	}
	found := mentions(t, g)

	var c Closure
	for _, p := range g.Params {
		if _, ok := found[p.Name()]; ok {
			c.Params = append(c.Params, p)
		}
	}
	for _, w := range g.Where {
		if name, ok := w.BoundedIdent(); ok {
			if _, ok := found[name]; ok {
				c.Where = append(c.Where, w)
			}
		}
	}
	return c
}

// IsGeneric reports whether t mentions a type or const parameter of g.
func IsGeneric(t *Type, g *Generics) bool {
	return len(Extract(t, g).TypeParams()) > 0
}

// mentions returns the declared generic parameters that t refers to.
func mentions(t *Type, g *Generics) nameSet {
	switch {
	case t == nil:
		return nil
	case t.Reference != nil:
		return union(lifetime(t.Reference.Lifetime, g), mentions(t.Reference.Elem, g))
	case t.Pointer != nil:
		return mentions(t.Pointer.Elem, g)
	case t.BareFn != nil:
		return union(mentionsAll(t.BareFn.Params, g), mentions(t.BareFn.Return, g))
	case t.Trait != nil:
		return mentionsBounds(t.Trait.Bounds, g)
	case t.Paren != nil:
		return mentionsAll(t.Paren.Elems, g)
	case t.Bracket != nil:
		found := mentions(t.Bracket.Elem, g)
		if t.Bracket.Len != nil && declared(*t.Bracket.Len, g) {
			found = found.with(*t.Bracket.Len)
		}
		return found
	case t.Macro != nil:
		// The expansion of a macro is unknown.
		return nil
	case t.Path != nil:
		return mentionsPath(t.Path, g)
	}
	return nil
}

func mentionsAll(types []*Type, g *Generics) nameSet {
	sets := make([]nameSet, len(types))
	for i, t := range types {
		sets[i] = mentions(t, g)
	}
	return union(sets...)
}

func mentionsBounds(bounds []*Bound, g *Generics) nameSet {
	var sets []nameSet
	for _, b := range bounds {
		if b.Lifetime != "" {
			sets = append(sets, lifetime(b.Lifetime, g))
			continue
		}
		sets = append(sets, mentionsPath(b.Path, g))
	}
	return union(sets...)
}

func mentionsPath(p *Path, g *Generics) nameSet {
	var sets []nameSet
	for _, seg := range p.Segments {
		if declared(seg.Name, g) {
			sets = append(sets, nameSet{seg.Name: {}})
		}
		for _, arg := range seg.Args {
			if arg.Lifetime != "" {
				sets = append(sets, lifetime(arg.Lifetime, g))
				continue
			}
			sets = append(sets, mentions(arg.Type, g))
		}
		if seg.FnArgs != nil {
			sets = append(sets, mentionsAll(seg.FnArgs.Params, g), mentions(seg.FnArgs.Return, g))
		}
	}
	return union(sets...)
}

// lifetime returns the named lifetime if the record declares it.
func lifetime(name string, g *Generics) nameSet {
	if name == "" || name == "'_" || !declared(name, g) {
		return nil
	}
	return nameSet{name: {}}
}

func declared(name string, g *Generics) bool {
	return g.Param(name) != nil
}
