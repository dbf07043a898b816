// Package load reads raw graphdl schema declarations from YAML or JSON files,
// directories or a fluent builder, preserving field declaration order.
package load

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/syssam/graphdl/schema"
	"github.com/syssam/graphdl/schema/mixin"

	"gopkg.in/yaml.v3"
)

// Field is a declared key of an entity block, in source order. Value holds the
// type expression string for fields and the decoded value for '$' metadata.
type Field struct {
	Name  string
	Value any
}

// IsMeta reports whether the field is an entity metadata key.
func (f Field) IsMeta() bool {
	return strings.HasPrefix(f.Name, "$")
}

// Entity is a raw entity declaration.
type Entity struct {
	Name   string
	Fields []Field
	Pos    string // Source file, when loaded from disk
}

// Get returns the value of a declared key.
func (e *Entity) Get(name string) (any, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set declares or overwrites a key, keeping its original position.
func (e *Entity) Set(name string, v any) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = v
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: v})
}

// Schema is a raw, uncompiled schema.
type Schema struct {
	Entities []*Entity
}

// Entity returns the entity with the given name, or nil.
func (s *Schema) Entity(name string) *Entity {
	for _, e := range s.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Merge appends the entities of o. Declaring the same entity twice is an error.
func (s *Schema) Merge(o *Schema) error {
	for _, e := range o.Entities {
		if prev := s.Entity(e.Name); prev != nil {
			return schema.NewError(schema.InvalidEntityName, e.Name, fmt.Sprintf("entity declared in both %s and %s", prev.Pos, e.Pos))
		}
		s.Entities = append(s.Entities, e)
	}
	return nil
}

// FromMap builds a raw schema from plain maps. Go maps are unordered, so
// entities and fields are sorted by name.
func FromMap(m map[string]map[string]any) *Schema {
	s := &Schema{}
	for _, name := range slices.Sorted(maps.Keys(m)) {
		e := &Entity{Name: name}
		for _, f := range slices.Sorted(maps.Keys(m[name])) {
			e.Fields = append(e.Fields, Field{Name: f, Value: m[name][f]})
		}
		s.Entities = append(s.Entities, e)
	}
	return s
}

// Parse decodes a YAML or JSON document whose top level maps entity names to
// field blocks.
func Parse(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("load: decode schema: %w", err)
	}
	s := &Schema{}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return s, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("load: line %d: top level must map entity names to field blocks", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if s.Entity(key.Value) != nil {
			return nil, schema.NewError(schema.InvalidEntityName, key.Value, "duplicate entity declaration")
		}
		e, err := parseEntity(key.Value, val)
		if err != nil {
			return nil, err
		}
		s.Entities = append(s.Entities, e)
	}
	return s, nil
}

func parseEntity(name string, node *yaml.Node) (*Entity, error) {
	e := &Entity{Name: name}
	if node.Kind != yaml.MappingNode {
		return nil, schema.NewError(schema.InvalidEntityName, name, fmt.Sprintf("line %d: entity must be a mapping of fields", node.Line))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		path := schema.Path(name, key.Value)
		if _, dup := e.Get(key.Value); dup {
			return nil, schema.NewError(schema.InvalidFieldName, path, "duplicate field declaration")
		}
		f := Field{Name: key.Value}
		switch {
		case f.IsMeta():
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("load: %s: %w", path, err)
			}
			f.Value = v
		case val.Kind == yaml.ScalarNode:
			f.Value = val.Value
		case val.Kind == yaml.SequenceNode:
			def, err := listType(path, val)
			if err != nil {
				return nil, err
			}
			f.Value = def
		default:
			return nil, schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("line %d: field must be a type expression string", val.Line))
		}
		e.Fields = append(e.Fields, f)
	}
	if v, ok := e.Get(MetaMixin); ok {
		ms, err := lookupMixins(schema.Path(name, MetaMixin), v)
		if err != nil {
			return nil, err
		}
		applyMixins(e, ms)
	}
	return e, nil
}

// MetaMixin names the built-in mixins an entity block includes.
const MetaMixin = "$mixin"

func lookupMixins(path string, v any) ([]mixin.Mixin, error) {
	var names []string
	switch v := v.(type) {
	case string:
		names = []string{v}
	case []any:
		for _, n := range v {
			s, ok := n.(string)
			if !ok {
				return nil, schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("mixin name must be a string, got %T", n))
			}
			names = append(names, s)
		}
	default:
		return nil, schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("expected a mixin name or list, got %T", v))
	}
	ms := make([]mixin.Mixin, 0, len(names))
	for _, n := range names {
		m, ok := mixin.Lookup(n)
		if !ok {
			return nil, schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("unknown mixin %q, expected one of %s", n, strings.Join(mixin.Names(), ", ")))
		}
		ms = append(ms, m)
	}
	return ms, nil
}

// applyMixins appends mixin fields the entity does not declare itself.
func applyMixins(e *Entity, ms []mixin.Mixin) {
	for _, f := range mixin.Compose(ms...) {
		if _, ok := e.Get(f.Name); !ok {
			e.Fields = append(e.Fields, Field{Name: f.Name, Value: f.Def})
		}
	}
}

// listType converts the YAML list form ['Tag'] into the array expression "Tag[]".
func listType(path string, node *yaml.Node) (string, error) {
	if len(node.Content) != 1 {
		return "", schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("array type must wrap exactly one element, got %d", len(node.Content)))
	}
	elem := node.Content[0]
	if elem.Kind != yaml.ScalarNode || elem.Value == "" {
		return "", schema.NewError(schema.InvalidFieldType, path, "array type must wrap a single type expression")
	}
	if strings.HasSuffix(elem.Value, "[]") {
		return "", schema.NewError(schema.InvalidFieldType, path, "nested array types are not supported")
	}
	return elem.Value + "[]", nil
}

// extensions lists the file extensions recognized as schema files.
var extensions = []string{".yaml", ".yml", ".json"}

// IsSchemaFile reports whether path has a schema file extension.
func IsSchemaFile(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// File loads a single schema file.
func File(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range s.Entities {
		e.Pos = path
	}
	return s, nil
}

// Load loads a schema file, or every schema file of a directory in lexical
// order, merging them into one schema.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if !info.IsDir() {
		return File(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	s := &Schema{}
	var found bool
	for _, ent := range entries {
		if ent.IsDir() || !IsSchemaFile(ent.Name()) {
			continue
		}
		found = true
		fs, err := File(filepath.Join(path, ent.Name()))
		if err != nil {
			return nil, err
		}
		if err := s.Merge(fs); err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, fmt.Errorf("load: %w: no schema files in %s", ErrNoSchema, path)
	}
	return s, nil
}

// ErrNoSchema is returned when a directory holds no schema files.
var ErrNoSchema = errors.New("load: no schema files")
