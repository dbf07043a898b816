package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
)

// Parent identifies the entity a child is generated for. ID is the parent's
// pre-allocated id; the parent may not be persisted yet.
type Parent struct {
	Type string
	ID   string
	Data graphdl.Record
}

// genContext is what a generated entity knows about its ancestry.
type genContext struct {
	prompt       string
	instructions []string
	parent       *Parent
}

// describe renders the context handed to the value generator.
func describe(e *compiler.Entity, gc genContext, data graphdl.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s\n", e.Name)
	if gc.prompt != "" {
		fmt.Fprintf(&b, "Prompt: %s\n", gc.prompt)
	}
	for _, s := range gc.instructions {
		fmt.Fprintf(&b, "Instructions: %s\n", s)
	}
	for _, dep := range e.Meta.Context {
		if v, ok := lookup(dep, data, gc.parent); ok {
			fmt.Fprintf(&b, "Context %s: %v\n", dep, v)
		}
	}
	if gc.parent != nil {
		fmt.Fprintf(&b, "Parent %s:\n", gc.parent.Type)
		for _, k := range slices.Sorted(maps.Keys(gc.parent.Data)) {
			if v, ok := scalar(gc.parent.Data[k]); ok && !strings.Contains(k, "$") {
				fmt.Fprintf(&b, "  %s: %v\n", k, v)
			}
		}
	}
	return b.String()
}

// lookup resolves a $context dependency against the entity's own values,
// then its parent's.
func lookup(dep string, data graphdl.Record, parent *Parent) (any, bool) {
	if v, ok := scalar(data[dep]); ok {
		return v, true
	}
	if parent != nil {
		return scalar(parent.Data[dep])
	}
	return nil, false
}

func scalar(v any) (any, bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case bool, float64, float32, int, int64, int32:
		return v, true
	}
	return nil, false
}

// contextReady reports whether every $context dependency of e is set in data.
func contextReady(e *compiler.Entity, data graphdl.Record) bool {
	for _, dep := range e.Meta.Context {
		if !data.Has(dep) {
			return false
		}
	}
	return true
}
