package schema

import (
	"errors"
	"fmt"

	"github.com/canonical/surrealair/internal/fragment"
	"github.com/canonical/surrealair/internal/typeinfo"
)

// ErrFieldNotLink is returned when a link projection names a field that does
// not refer to other records.
var ErrFieldNotLink = errors.New("field is not a link")

func (m *Manifest) fieldsWhere(keep func(*Field) bool) []*Field {
	var fs []*Field
	for _, f := range m.Fields {
		if keep(f) {
			fs = append(fs, f)
		}
	}
	return fs
}

// LinkedFields returns every link field of m.
func (m *Manifest) LinkedFields() []*Field {
	return m.fieldsWhere(func(f *Field) bool { return f.Descriptor.IsLink() })
}

func (m *Manifest) linkFields(arity typeinfo.LinkArity) []*Field {
	return m.fieldsWhere(func(f *Field) bool { return f.Descriptor.Link == arity })
}

// LinkOneFields returns the fields referring to a single record.
func (m *Manifest) LinkOneFields() []*Field {
	return m.linkFields(typeinfo.LinkOne)
}

// LinkManyFields returns the fields referring to a list of records.
func (m *Manifest) LinkManyFields() []*Field {
	return m.linkFields(typeinfo.LinkMany)
}

// LinkSelfFields returns the fields referring to a record of the same type.
func (m *Manifest) LinkSelfFields() []*Field {
	return m.linkFields(typeinfo.LinkSelf)
}

// Accessor returns the type that reading f yields once its links are
// loaded, e.g. Vec<Post> for a LinkMany<Post> field or Vec<Address> for a
// nested array of Address objects. It is empty for other fields.
func (f *Field) Accessor() string {
	d := f.Descriptor
	switch {
	case d.IsLink() && d.LinkTarget == "":
		return ""
	case d.Link == typeinfo.LinkMany:
		return typeinfo.NestedVec(d.LinkTarget, max(d.ContainerNesting, 1))
	case d.IsLink():
		return d.LinkTarget
	case d.Kind == typeinfo.NestedObject:
		return typeinfo.NestedVec(f.NestedType, d.ContainerNesting)
	}
	return ""
}

// LoadLinks returns a projection that selects every field of m and replaces
// the named links with the records they refer to, e.g.
//
//	*, best_friend.*, friends.*.*
//
// With no names every link field is loaded.
func (m *Manifest) LoadLinks(names ...string) (fragment.Fragment, error) {
	fields := m.LinkedFields()
	if len(names) > 0 {
		fields = fields[:0:0]
		for _, name := range names {
			f := m.Field(name)
			switch {
			case f == nil:
				return nil, fmt.Errorf("cannot load %s.%s: no such field", m.Name, name)
			case !f.Descriptor.IsLink():
				return nil, fmt.Errorf("cannot load %s.%s: %w", m.Name, name, ErrFieldNotLink)
			}
			fields = append(fields, f)
		}
	}

	items := []fragment.Fragment{fragment.Raw("*")}
	for _, f := range fields {
		suffix := ".*"
		if f.Descriptor.Link == typeinfo.LinkMany {
			suffix = ".*.*"
		}
		items = append(items, fragment.Raw(fragment.QuoteIdent(f.Name)+suffix))
	}
	return fragment.Join(", ", items...), nil
}
