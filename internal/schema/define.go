package schema

import (
	"errors"
	"strings"

	"github.com/canonical/surrealair/internal/expr"
	"github.com/canonical/surrealair/internal/fragment"
)

// Define returns the definition statements of every table and edge in
// declaration order. Objects are defined through the fields nesting them.
func (s *Schema) Define() ([]fragment.Fragment, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var stmts []fragment.Fragment
	var errs []error
	for _, m := range s.manifests {
		if m.Kind == Object {
			continue
		}
		defs, err := m.DefineStatements()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stmts = append(stmts, defs...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return stmts, nil
}

// DefineStatements returns the table definition of m followed by one field definition
// per field. The id field is managed by the database and is skipped.
func (m *Manifest) DefineStatements() ([]fragment.Fragment, error) {
	var errs []error
	table, err := m.defineTable()
	if err != nil {
		errs = append(errs, err)
	}
	stmts := []fragment.Fragment{table}
	for _, f := range m.Fields {
		if f.Name == "id" {
			continue
		}
		defs, err := m.defineField("", f, map[*Manifest]bool{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stmts = append(stmts, defs...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (m *Manifest) defineTable() (fragment.Fragment, error) {
	if m.Define != "" {
		return verbatim(m.Define), nil
	}
	q := fragment.Seq{fragment.Raw("DEFINE TABLE "), fragment.Ident(m.Table)}
	if m.Drop {
		q = append(q, fragment.Raw(" DROP"))
	}
	if m.SchemaFull {
		q = append(q, fragment.Raw(" SCHEMAFULL"))
	}
	if m.As != "" {
		as, err := expr.ParseExpr(m.As)
		if err != nil {
			return nil, m.compileError(nil, "@@as", err)
		}
		q = append(q, fragment.Raw(" AS "), as)
	}
	if m.Permissions != "" {
		perms, err := expr.ParsePermissions(m.Permissions)
		if err != nil {
			return nil, m.compileError(nil, "@@permissions", err)
		}
		q = append(q, fragment.Raw(" PERMISSIONS "), perms)
	}
	return append(q, fragment.Raw(";")), nil
}

// defineField defines f at path prefix+name. Fields of nested objects
// follow their parent, e.g. address.city or addresses[*].city.
func (m *Manifest) defineField(prefix string, f *Field, visiting map[*Manifest]bool) ([]fragment.Fragment, error) {
	path := prefix + fragment.QuoteIdent(f.Name)
	if f.Define != "" {
		return []fragment.Fragment{verbatim(f.Define)}, nil
	}

	q := fragment.Seq{fragment.Raw("DEFINE FIELD " + path + " ON TABLE "), fragment.Ident(m.Table)}
	if f.WireType != "" && f.WireType != "any" {
		q = append(q, fragment.Raw(" TYPE "+f.WireType))
	}
	clauses := []struct {
		keyword, attr, src string
	}{
		{" VALUE ", "@value", f.Value},
		{" ASSERT ", "@assert", f.Assert},
	}
	for _, c := range clauses {
		if c.src == "" {
			continue
		}
		e, err := expr.ParseExpr(c.src)
		if err != nil {
			return nil, m.compileError(f, c.attr, err)
		}
		q = append(q, fragment.Raw(c.keyword), e)
	}
	if f.Permissions != "" {
		perms, err := expr.ParsePermissions(f.Permissions)
		if err != nil {
			return nil, m.compileError(f, "@permissions", err)
		}
		q = append(q, fragment.Raw(" PERMISSIONS "), perms)
	}
	stmts := []fragment.Fragment{append(q, fragment.Raw(";"))}

	nested := f.Nested
	if nested == nil || visiting[nested] {
		return stmts, nil
	}
	visiting[nested] = true
	defer delete(visiting, nested)
	if f.NestArray {
		path += strings.Repeat("[*]", f.Descriptor.ContainerNesting)
	}
	for _, nf := range nested.Fields {
		defs, err := m.defineField(path+".", nf, visiting)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, defs...)
	}
	return stmts, nil
}

func (m *Manifest) compileError(f *Field, attr string, err error) error {
	e := m.errorf(f, "%s: %v", attr, err)
	e.Err = err
	return e
}

// verbatim returns a developer supplied definition as a statement.
func verbatim(def string) fragment.Fragment {
	def = strings.TrimSpace(def)
	if !strings.HasSuffix(def, ";") {
		def += ";"
	}
	return fragment.Raw(def)
}
