package typeinfo

// BaseKind is the broad classification of a field type.
type BaseKind int

const (
	Scalar BaseKind = iota
	Container
	Link
	NestedObject
)

func (k BaseKind) String() string {
	switch k {
	case Container:
		return "container"
	case Link:
		return "link"
	case NestedObject:
		return "nested_object"
	}
	return "scalar"
}

// LinkArity says how many records a link field refers to.
type LinkArity int

const (
	LinkNone LinkArity = iota
	LinkOne
	LinkMany
	LinkSelf
)

func (a LinkArity) String() string {
	switch a {
	case LinkOne:
		return "one"
	case LinkMany:
		return "many"
	case LinkSelf:
		return "self"
	}
	return "none"
}

// linkWrappers are the generic wrapper types that mark a field as a link.
var linkWrappers = map[string]LinkArity{
	"LinkOne":  LinkOne,
	"LinkMany": LinkMany,
	"LinkSelf": LinkSelf,
}

// Descriptor is the normalized description of a field type.
type Descriptor struct {
	Kind             BaseKind
	ContainerNesting int
	Link             LinkArity
	// LinkTarget names the linked record type when it is known from the
	// field type.
	LinkTarget      string
	GenericParams   []string
	OwnershipScopes []string
}

// IsLink reports whether the field refers to other records.
func (d Descriptor) IsLink() bool {
	return d.Link != LinkNone
}

// Describe builds the descriptor of field type t within record generics g.
// Link wrappers take precedence over containers.
func Describe(t *Type, g *Generics) Descriptor {
	closure := Extract(t, g)
	d := Descriptor{
		Kind:             Scalar,
		ContainerNesting: ContainerNesting(t),
		GenericParams:    closure.TypeParams(),
		OwnershipScopes:  closure.Scopes(),
	}
	if arity, target, ok := LinkOf(t); ok {
		d.Kind = Link
		d.Link = arity
		d.LinkTarget = target
		return d
	}
	if d.ContainerNesting > 0 {
		d.Kind = Container
	}
	return d
}

// LinkOf reports whether t is a link wrapper such as LinkMany<User> and
// returns its arity and target type name.
func LinkOf(t *Type) (LinkArity, string, bool) {
	t = ungroup(t)
	if t == nil || t.Path == nil {
		return LinkNone, "", false
	}
	seg := t.Path.Last()
	arity, ok := linkWrappers[seg.Name]
	if !ok {
		return LinkNone, "", false
	}
	args := seg.TypeArgs()
	if len(args) != 1 {
		return LinkNone, "", false
	}
	target := ungroup(args[0])
	if target.Path == nil {
		return arity, "", true
	}
	return arity, target.Path.Last().Name, true
}
