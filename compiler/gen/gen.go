// Package gen renders Go types for the entities of a compiled schema.
//
// Each entity becomes a struct whose scalar fields carry their primitive Go
// type and whose relations hold entity ids, plus a Type<Name> constant:
//
//	f, err := gen.Generate(s, gen.WithPackage("model"))
//	if err != nil {
//		return err
//	}
//	return f.Save("model/entities.go")
package gen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/schema/field"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
)

// Config holds the generation settings.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Header is written as a comment above the package clause.
	Header string
	// Tags adds json struct tags when set.
	Tags bool
}

// DefaultHeader marks generated files.
const DefaultHeader = "Code generated by graphdl, DO NOT EDIT."

// NewConfig returns the defaults with opts applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Package: "model", Header: DefaultHeader, Tags: true}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Generate builds the Go file for s.
func Generate(s *compiler.Schema, opts ...Option) (*jen.File, error) {
	if s == nil {
		return nil, NewConfigError("Schema", nil, "schema cannot be nil")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	f := jen.NewFile(cfg.Package)
	if cfg.Header != "" {
		f.HeaderComment(cfg.Header)
	}
	entities := s.Entities()
	if len(entities) > 0 {
		f.Comment("Entity type names.")
		f.Const().DefsFunc(func(g *jen.Group) {
			for _, e := range entities {
				g.Id("Type" + e.Name).Op("=").Lit(e.Name)
			}
		})
	}
	for _, e := range entities {
		fields := make([]jen.Code, 0, len(e.Fields())+1)
		fields = append(fields, jen.Id("ID").String().Add(tag(cfg, "$id", false)))
		seen := map[string]string{"ID": "$id"}
		for _, fd := range e.Fields() {
			name := GoName(fd.Name)
			if prev, ok := seen[name]; ok {
				return nil, &GenerationError{Entity: e.Name, Field: fd.Name, Message: fmt.Sprintf("Go name %s collides with field %q", name, prev)}
			}
			seen[name] = fd.Name
			fields = append(fields, jen.Id(name).Add(goType(fd)).Add(tag(cfg, fd.Name, fd.Optional)))
		}
		f.Commentf("%s is the %s entity.", e.Name, e.Name)
		f.Type().Id(e.Name).Struct(fields...)
	}
	return f, nil
}

// Render writes the generated source for s to w.
func Render(w io.Writer, s *compiler.Schema, opts ...Option) error {
	f, err := Generate(s, opts...)
	if err != nil {
		return err
	}
	if err := f.Render(w); err != nil {
		return &GenerationError{Message: "rendering source", Cause: err}
	}
	return nil
}

// WriteFile renders s into path, creating parent directories as needed.
func WriteFile(path string, s *compiler.Schema, opts ...Option) error {
	var buf bytes.Buffer
	if err := Render(&buf, s, opts...); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &GenerationError{Message: "writing " + path, Cause: err}
	}
	return nil
}

// GoName returns the exported Go identifier of a schema field name.
func GoName(name string) string {
	if name == "id" {
		return "ID"
	}
	return inflect.Camelize(name)
}

func goType(fd *field.Descriptor) *jen.Statement {
	if fd.Relation {
		if fd.Array {
			return jen.Index().String()
		}
		return jen.String()
	}
	var t *jen.Statement
	switch fd.Type {
	case field.TypeNumber:
		t = jen.Float64()
	case field.TypeBoolean:
		t = jen.Bool()
	case field.TypeDatetime:
		t = jen.Qual("time", "Time")
	case field.TypeJSON:
		t = jen.Id("any")
	default:
		t = jen.String()
	}
	switch {
	case fd.Array:
		return jen.Index().Add(t)
	case fd.Optional && fd.Type != field.TypeJSON:
		return jen.Op("*").Add(t)
	}
	return t
}

func tag(cfg *Config, name string, optional bool) *jen.Statement {
	if !cfg.Tags {
		return jen.Null()
	}
	if optional {
		name += ",omitempty"
	}
	return jen.Tag(map[string]string{"json": name})
}
