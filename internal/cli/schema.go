package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canonical/surrealair/internal/assemble"
	"github.com/canonical/surrealair/internal/fragment"
	"github.com/canonical/surrealair/internal/schema"
	"github.com/canonical/surrealair/internal/typeinfo"
)

// ValidFormats are the output formats of the schema command.
var ValidFormats = []string{"yaml", "text"}

// SchemaOptions holds the flags of the schema command.
type SchemaOptions struct {
	*RootOptions
	Format string
	Define bool
	// Links names the type whose links are loaded by the printed query,
	// and Fields restricts them.
	Links  string
	Fields []string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [file...]",
		Short: "Print the manifests or definitions of record declarations",
		Long: `Print the manifests of record declarations, or with --define the
DEFINE TABLE and DEFINE FIELD statements that create them. With --links the
query selecting the records of a type with their links loaded is printed.

All files are read as one set of declarations, so types may refer to types
declared in other files. Without arguments the files listed under "schema" in
the configuration are used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValid(opts.Format, ValidFormats) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "yaml", "manifest format (yaml|text)")
	cmd.Flags().BoolVar(&opts.Define, "define", false, "print definition statements")
	cmd.Flags().StringVar(&opts.Links, "links", "", "print the query loading the links of `type`")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "link fields to load with --links (default all)")
	cmd.MarkFlagsMutuallyExclusive("define", "links")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		files = opts.Config.Schema
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no declaration files given")
	}

	sch, err := loadSchema(files)
	if err != nil {
		return err
	}
	opts.Logger.Info("loaded declarations", "files", len(files), "types", len(sch.Manifests()))

	out := cmd.OutOrStdout()
	if opts.Define {
		stmts, err := sch.Define()
		if err != nil {
			return WrapExitError(ExitFailure, "cannot define tables", err)
		}
		// Values in definitions are written inline.
		text, _ := assemble.Build(stmts, assemble.WithMode(fragment.Inline))
		fmt.Fprintln(out, text)
		return nil
	}

	if err := sch.Validate(); err != nil {
		return WrapExitError(ExitFailure, "invalid declarations", err)
	}
	if opts.Links != "" {
		return writeLinkQuery(out, sch, opts.Links, opts.Fields)
	}
	if opts.Format == "text" {
		writeManifests(out, sch.Manifests())
		return nil
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	docs := make([]manifestDoc, len(sch.Manifests()))
	for i, m := range sch.Manifests() {
		docs[i] = newManifestDoc(m)
	}
	if err := enc.Encode(docs); err != nil {
		return WrapExitError(ExitFailure, "cannot write manifests", err)
	}
	return nil
}

// loadSchema parses every file and builds the manifests of all of them.
func loadSchema(files []string) (*schema.Schema, error) {
	var decls []*schema.Decl
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "cannot read "+name, err)
		}
		f, err := schema.Parse(name, string(src))
		if err != nil {
			return nil, WrapExitError(ExitFailure, "invalid declarations", err)
		}
		decls = append(decls, f.Decls...)
	}
	sch, err := schema.BuildManifests(decls)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid declarations", err)
	}
	return sch, nil
}

type manifestDoc struct {
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Table       string     `yaml:"table,omitempty"`
	Generics    string     `yaml:"generics,omitempty"`
	SchemaFull  bool       `yaml:"schemafull,omitempty"`
	Drop        bool       `yaml:"drop,omitempty"`
	As          string     `yaml:"as,omitempty"`
	Permissions string     `yaml:"permissions,omitempty"`
	Define      string     `yaml:"define,omitempty"`
	Fields      []fieldDoc `yaml:"fields,omitempty"`
}

type fieldDoc struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	WireType    string `yaml:"wire_type"`
	Kind        string `yaml:"kind"`
	Nesting     int    `yaml:"nesting,omitempty"`
	Link        string `yaml:"link,omitempty"`
	LinkTarget  string `yaml:"link_target,omitempty"`
	Nested      string `yaml:"nested,omitempty"`
	Accessor    string `yaml:"accessor,omitempty"`
	Generic     bool   `yaml:"generic,omitempty"`
	Generics    string `yaml:"generics,omitempty"`
	Value       string `yaml:"value,omitempty"`
	Assert      string `yaml:"assert,omitempty"`
	Permissions string `yaml:"permissions,omitempty"`
	Define      string `yaml:"define,omitempty"`
}

func newManifestDoc(m *schema.Manifest) manifestDoc {
	doc := manifestDoc{
		Name:        m.Name,
		Kind:        m.Kind.String(),
		Table:       m.Table,
		SchemaFull:  m.SchemaFull,
		Drop:        m.Drop,
		As:          m.As,
		Permissions: m.Permissions,
		Define:      m.Define,
	}
	if !m.Generics.Empty() {
		doc.Generics = m.Generics.String()
		if where := m.Generics.WhereClause(); where != "" {
			doc.Generics += " " + where
		}
	}
	for _, f := range m.Fields {
		fd := fieldDoc{
			Name:        f.Name,
			Type:        f.Type.String(),
			WireType:    f.WireType,
			Kind:        f.Descriptor.Kind.String(),
			Nesting:     f.Descriptor.ContainerNesting,
			LinkTarget:  f.Descriptor.LinkTarget,
			Nested:      f.NestedType,
			Accessor:    f.Accessor(),
			Generic:     f.Generic,
			Generics:    f.Closure.Signature(),
			Value:       f.Value,
			Assert:      f.Assert,
			Permissions: f.Permissions,
			Define:      f.Define,
		}
		if f.Descriptor.IsLink() {
			fd.Link = f.Descriptor.Link.String()
		}
		doc.Fields = append(doc.Fields, fd)
	}
	return doc
}

// writeLinkQuery writes the query selecting the records of the named type
// with its link fields loaded.
func writeLinkQuery(w io.Writer, sch *schema.Schema, name string, fields []string) error {
	m, ok := sch.Manifest(name)
	switch {
	case !ok:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown type %q", name))
	case m.Kind == schema.Object:
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is an object and has no table", name))
	}
	projection, err := m.LoadLinks(fields...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --fields", err)
	}
	query := fragment.Seq{
		fragment.Raw("SELECT "), projection,
		fragment.Raw(" FROM "), fragment.Ident(m.Table), fragment.Raw(";"),
	}
	fmt.Fprintln(w, fragment.String(query))
	return nil
}

// writeManifests writes one line per type followed by one line per field.
func writeManifests(w io.Writer, manifests []*schema.Manifest) {
	for i, m := range manifests {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s%s", m.Kind, m.Name, m.Generics)
		if m.Table != "" {
			fmt.Fprintf(w, " (%s)", m.Table)
		}
		fmt.Fprintln(w)
		for _, f := range m.Fields {
			fmt.Fprintf(w, "  %s: %s -> %s", f.Name, f.Type, f.WireType)
			switch d := f.Descriptor; d.Kind {
			case typeinfo.Link:
				fmt.Fprintf(w, " [link %s %s]", d.Link, d.LinkTarget)
			case typeinfo.NestedObject:
				fmt.Fprintf(w, " [nested %s]", f.NestedType)
			}
			fmt.Fprintln(w)
		}
	}
}
