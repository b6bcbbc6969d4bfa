package schema

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/canonical/surrealair/internal/typeinfo"
)

// Kind is the kind of a declared type.
type Kind int

const (
	// Table is a record type stored in its own table.
	Table Kind = iota
	// Object is a value type embedded in records.
	Object
	// Edge is a record type relating two records.
	Edge
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Edge:
		return "edge"
	}
	return "table"
}

func kindOf(keyword string) Kind {
	switch keyword {
	case "object":
		return Object
	case "edge":
		return Edge
	}
	return Table
}

// Error is a problem with a declaration.
type Error struct {
	Pos   lexer.Position
	Type  string
	Field string
	Msg   string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	subject := e.Type
	if e.Field != "" {
		subject += "." + e.Field
	}
	return fmt.Sprintf("%s: %s: %s", position(e.Pos), subject, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func position(pos lexer.Position) string {
	if pos.Filename == "" {
		return fmt.Sprintf("%d:%d", pos.Line, pos.Column)
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename, pos.Line, pos.Column)
}

// Field is the metadata of one field of a record type.
type Field struct {
	Pos        lexer.Position
	Name       string
	Type       *typeinfo.Type
	Descriptor typeinfo.Descriptor
	// Closure holds the generics of the record that the field type uses.
	Closure typeinfo.Closure
	// Generic is set when the field type mentions a type or const
	// parameter of the record.
	Generic bool
	// WireType is the storage type, declared with @type or inferred from
	// the field type.
	WireType string

	// Value is the default value expression.
	Value       string
	Assert      string
	Permissions string
	// Define replaces the generated field definition.
	Define string

	// NestedType names the object type of a nested field and Nested is
	// its manifest. NestArray is set for containers of objects.
	NestedType string
	Nested     *Manifest
	NestArray  bool
}

// Manifest is the metadata of one record type.
type Manifest struct {
	Pos      lexer.Position
	Name     string
	Kind     Kind
	Table    string
	Generics *typeinfo.Generics
	Fields   []*Field

	SchemaFull  bool
	Drop        bool
	As          string
	Permissions string
	Define      string
}

// Field returns the field called name, or nil.
func (m *Manifest) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Manifest) errorf(f *Field, format string, args ...any) *Error {
	e := &Error{Pos: m.Pos, Type: m.Name, Msg: fmt.Sprintf(format, args...)}
	if f != nil {
		e.Pos = f.Pos
		e.Field = f.Name
	}
	return e
}

// Schema is the set of manifests built from a declaration file.
type Schema struct {
	manifests []*Manifest
	byName    map[string]*Manifest
}

// Manifests returns every manifest in declaration order.
func (s *Schema) Manifests() []*Manifest {
	return s.manifests
}

// Manifest returns the manifest of the named type.
func (s *Schema) Manifest(name string) (*Manifest, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Load parses src and builds its manifests.
func Load(filename string, src string) (*Schema, error) {
	f, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}
	return BuildManifests(f.Decls)
}

// BuildManifests builds one manifest per declared type. Every problem found
// is reported. Types may refer to types declared after them; references are
// checked by Validate.
func BuildManifests(decls []*Decl) (*Schema, error) {
	s := &Schema{byName: map[string]*Manifest{}}
	var errs []error
	seen := map[string]*Decl{}
	for _, d := range decls {
		if prev, ok := seen[d.Name]; ok {
			errs = append(errs, &Error{
				Pos:  d.Pos,
				Type: d.Name,
				Msg:  "duplicate type, first declared at " + position(prev.Pos),
			})
			continue
		}
		seen[d.Name] = d
		m, err := BuildManifest(d, decls)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.manifests = append(s.manifests, m)
		s.byName[m.Name] = m
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, m := range s.manifests {
		for _, f := range m.Fields {
			if f.NestedType != "" {
				f.Nested = s.byName[f.NestedType]
			}
		}
	}
	return s, nil
}

// BuildManifest builds the manifest of d. all holds every declaration and is
// used to infer the storage types of fields referring to other types.
func BuildManifest(d *Decl, all []*Decl) (*Manifest, error) {
	b := &builder{decl: d, types: map[string]*Decl{}}
	for _, other := range all {
		if _, ok := b.types[other.Name]; !ok {
			b.types[other.Name] = other
		}
	}
	m := b.manifest()
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

type builder struct {
	decl  *Decl
	types map[string]*Decl
	errs  []error
}

func (b *builder) errorf(pos lexer.Position, field string, format string, args ...any) {
	b.errs = append(b.errs, &Error{Pos: pos, Type: b.decl.Name, Field: field, Msg: fmt.Sprintf(format, args...)})
}

// args checks the argument count of an attribute and returns the single
// argument, if expected.
func (b *builder) args(pos lexer.Position, field string, attr string, args []*Arg, want int) (string, bool) {
	if len(args) != want {
		b.errorf(pos, field, "%s takes %d argument(s), got %d", attr, want, len(args))
		return "", false
	}
	if want == 0 {
		return "", true
	}
	return args[0].Value(), true
}

var structDefineConflicts = []string{"as", "permissions", "schemafull", "drop"}

func (b *builder) manifest() *Manifest {
	d := b.decl
	m := &Manifest{
		Pos:      d.Pos,
		Name:     d.Name,
		Kind:     kindOf(d.Kind),
		Generics: d.Generics(),
	}
	if m.Kind != Object {
		m.Table = snakeCase(d.Name)
	}

	seen := map[string]bool{}
	for _, a := range d.Attributes {
		if seen[a.Name] {
			b.errorf(a.Pos, "", "duplicate attribute @@%s", a.Name)
			continue
		}
		seen[a.Name] = true
		name := "@@" + a.Name
		switch a.Name {
		case "schemafull", "drop":
			if _, ok := b.args(a.Pos, "", name, a.Args, 0); ok {
				m.SchemaFull = m.SchemaFull || a.Name == "schemafull"
				m.Drop = m.Drop || a.Name == "drop"
			}
		case "table", "as", "permissions", "define":
			arg, ok := b.args(a.Pos, "", name, a.Args, 1)
			if !ok {
				continue
			}
			switch a.Name {
			case "table":
				m.Table = arg
			case "as":
				m.As = arg
			case "permissions":
				m.Permissions = arg
			case "define":
				m.Define = arg
			}
		default:
			b.errorf(a.Pos, "", "unknown attribute %s", name)
			continue
		}
		if m.Kind == Object && a.Name != "define" {
			b.errorf(a.Pos, "", "%s is not allowed on an object", name)
		}
	}
	if m.Define != "" {
		var conflicts []string
		for _, name := range structDefineConflicts {
			if seen[name] {
				conflicts = append(conflicts, "@@"+name)
			}
		}
		if len(conflicts) > 0 {
			b.errorf(d.Pos, "", "@@define cannot be combined with %s", strings.Join(conflicts, ", "))
		}
	}

	fields := map[string]bool{}
	for _, fd := range d.Fields {
		if fields[fd.Name] {
			b.errorf(fd.Pos, fd.Name, "duplicate field")
			continue
		}
		fields[fd.Name] = true
		m.Fields = append(m.Fields, b.field(fd, m.Generics))
	}
	return m
}

var (
	fieldDefineConflicts = []string{"type", "value", "assert", "permissions"}
	linkArities          = map[string]typeinfo.LinkArity{
		"link_one":  typeinfo.LinkOne,
		"link_many": typeinfo.LinkMany,
		"link_self": typeinfo.LinkSelf,
	}
)

func (b *builder) field(fd *FieldDecl, g *typeinfo.Generics) *Field {
	f := &Field{
		Pos:        fd.Pos,
		Name:       fd.Name,
		Type:       fd.Type,
		Descriptor: typeinfo.Describe(fd.Type, g),
		Closure:    typeinfo.Extract(fd.Type, g),
		Generic:    typeinfo.IsGeneric(fd.Type, g),
	}

	seen := map[string]bool{}
	declaredType := ""
	relation := ""
	for _, a := range fd.Attrs {
		name := "@" + a.Name
		if seen[a.Name] {
			b.errorf(a.Pos, fd.Name, "duplicate attribute %s", name)
			continue
		}
		seen[a.Name] = true
		switch a.Name {
		case "type", "value", "assert", "permissions", "define",
			"link_one", "link_many", "link_self", "nest_object", "nest_array":
		default:
			b.errorf(a.Pos, fd.Name, "unknown attribute %s", name)
			continue
		}
		arg, ok := b.args(a.Pos, fd.Name, name, a.Args, 1)
		if !ok {
			continue
		}
		switch a.Name {
		case "type":
			declaredType = arg
		case "value":
			f.Value = arg
		case "assert":
			f.Assert = arg
		case "permissions":
			f.Permissions = arg
		case "define":
			f.Define = arg
		default:
			if relation != "" {
				b.errorf(a.Pos, fd.Name, "%s cannot be combined with @%s", name, relation)
				continue
			}
			relation = a.Name
			b.relate(f, a, arg)
		}
	}

	if f.Define != "" {
		var conflicts []string
		for _, name := range fieldDefineConflicts {
			if seen[name] {
				conflicts = append(conflicts, "@"+name)
			}
		}
		if len(conflicts) > 0 {
			b.errorf(fd.Pos, fd.Name, "@define cannot be combined with %s", strings.Join(conflicts, ", "))
		}
	}

	f.WireType = declaredType
	if f.WireType == "" {
		f.WireType = b.wireType(f)
	}
	return f
}

// relate applies a link or nesting attribute to f.
func (b *builder) relate(f *Field, a *FieldAttr, target string) {
	d := &f.Descriptor
	if arity, ok := linkArities[a.Name]; ok {
		if d.IsLink() && d.Link != arity {
			b.errorf(a.Pos, f.Name, "@%s conflicts with field type %s", a.Name, f.Type)
			return
		}
		if d.IsLink() && d.LinkTarget != "" && d.LinkTarget != "Self" && d.LinkTarget != target {
			b.errorf(a.Pos, f.Name, "@%s(%s) does not match field type %s", a.Name, target, f.Type)
			return
		}
		d.Kind = typeinfo.Link
		d.Link = arity
		d.LinkTarget = target
		return
	}

	if d.IsLink() {
		b.errorf(a.Pos, f.Name, "@%s cannot be used on link field type %s", a.Name, f.Type)
		return
	}
	f.NestArray = a.Name == "nest_array"
	switch {
	case f.NestArray && d.ContainerNesting == 0:
		b.errorf(a.Pos, f.Name, "@nest_array needs a container type, got %s", f.Type)
		return
	case !f.NestArray && d.ContainerNesting > 0:
		b.errorf(a.Pos, f.Name, "@nest_object used on container type %s, use @nest_array", f.Type)
		return
	}
	d.Kind = typeinfo.NestedObject
	f.NestedType = target
}

// tableOf returns the table of a declared record type.
func tableOf(d *Decl) string {
	for _, a := range d.Attributes {
		if a.Name == "table" && len(a.Args) == 1 {
			return a.Args[0].Value()
		}
	}
	return snakeCase(d.Name)
}

func (b *builder) resolve(name string) (string, bool) {
	if name == "Self" {
		name = b.decl.Name
	}
	d, ok := b.types[name]
	if !ok {
		return "", false
	}
	if kindOf(d.Kind) == Object {
		return "", true
	}
	return tableOf(d), true
}

// wireType infers the storage type of f.
func (b *builder) wireType(f *Field) string {
	d := f.Descriptor
	var wire string
	switch {
	case d.Kind == typeinfo.NestedObject:
		wire = wrapArrays("object", d.ContainerNesting)
	case d.IsLink():
		if _, _, ok := typeinfo.LinkOf(f.Type); ok {
			return typeinfo.WireType(f.Type, b.resolve)
		}
		wire = "record"
		if table, ok := b.resolve(d.LinkTarget); ok && table != "" {
			wire = "record<" + table + ">"
		}
		if d.Link == typeinfo.LinkMany {
			wire = wrapArrays(wire, max(d.ContainerNesting, 1))
		}
	default:
		return typeinfo.WireType(f.Type, b.resolve)
	}
	if isOption(f.Type) {
		return "option<" + wire + ">"
	}
	return wire
}

func wrapArrays(wire string, depth int) string {
	return strings.Repeat("array<", depth) + wire + strings.Repeat(">", depth)
}

func isOption(t *typeinfo.Type) bool {
	return t.Path != nil && t.Path.Last().Name == "Option" && len(t.Path.Last().TypeArgs()) == 1
}

// snakeCase converts a type name to a table name, e.g. UserProfile to
// user_profile.
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			sb.WriteRune(r)
			continue
		}
		if i > 0 && (unicode.IsLower(runes[i-1]) ||
			(unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// Validate checks the references between types: link targets must be
// declared record types and nested types must be declared objects.
func (s *Schema) Validate() error {
	var errs []error
	tables := map[string]string{}
	for _, m := range s.manifests {
		if m.Kind != Object {
			if other, ok := tables[m.Table]; ok {
				errs = append(errs, m.errorf(nil, "table %q is already used by %s", m.Table, other))
			} else {
				tables[m.Table] = m.Name
			}
		}
		for _, f := range m.Fields {
			switch {
			case f.Descriptor.Link == typeinfo.LinkSelf:
				if target := f.Descriptor.LinkTarget; target != "Self" && target != m.Name {
					errs = append(errs, m.errorf(f, "self link must refer to %s, not %s", m.Name, target))
				}
			case f.Descriptor.IsLink():
				target, ok := s.byName[f.Descriptor.LinkTarget]
				switch {
				case f.Descriptor.LinkTarget == "":
					errs = append(errs, m.errorf(f, "link has no target type"))
				case !ok:
					errs = append(errs, m.errorf(f, "unknown link target %s", f.Descriptor.LinkTarget))
				case target.Kind == Object:
					errs = append(errs, m.errorf(f, "link target %s is an object", target.Name))
				}
			case f.NestedType != "":
				target, ok := s.byName[f.NestedType]
				switch {
				case !ok:
					errs = append(errs, m.errorf(f, "unknown nested type %s", f.NestedType))
				case target.Kind != Object:
					errs = append(errs, m.errorf(f, "nested type %s is not an object", target.Name))
				}
			}
		}
	}
	return errors.Join(errs...)
}
