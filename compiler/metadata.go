package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syssam/graphdl/schema"
)

// Entity metadata keys.
const (
	MetaInstructions   = "$instructions"
	MetaContext        = "$context"
	MetaFuzzyThreshold = "$fuzzyThreshold"
	MetaSeed           = "$seed"
	MetaID             = "$id"
)

// parseMeta applies one '$' key to the entity metadata.
func parseMeta(e *Entity, key string, v any) error {
	path := schema.Path(e.Name, key)
	switch key {
	case MetaInstructions:
		s, ok := v.(string)
		if !ok {
			return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("expected string, got %T", v))
		}
		e.Meta.Instructions = s
	case MetaContext:
		deps, err := stringList(v)
		if err != nil {
			return schema.NewError(schema.InvalidFieldType, path, err.Error())
		}
		e.Meta.Context = deps
	case MetaFuzzyThreshold:
		f, ok := number(v)
		if !ok || f < 0 || f > 1 {
			return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("threshold must be a number in [0, 1], got %v", v))
		}
		e.Meta.FuzzyThreshold = &f
	case MetaSeed:
		seed, err := parseSeed(v)
		if err != nil {
			return schema.NewError(schema.InvalidFieldType, path, err.Error())
		}
		if e.Meta.Seed != nil {
			seed.IDColumn = e.Meta.Seed.IDColumn
		}
		e.Meta.Seed = seed
	case MetaID:
		s, _ := v.(string)
		col, ok := strings.CutPrefix(s, "$.")
		if !ok || col == "" {
			return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("expected a $.column mapping, got %v", v))
		}
		if e.Meta.Seed == nil {
			e.Meta.Seed = &Seed{}
		}
		e.Meta.Seed.IDColumn = col
	default:
		if e.Meta.Extra == nil {
			e.Meta.Extra = make(map[string]any)
		}
		e.Meta.Extra[key] = v
	}
	return nil
}

func parseSeed(v any) (*Seed, error) {
	seed := &Seed{}
	switch v := v.(type) {
	case string:
		seed.Source = v
	case map[string]any:
		seed.Source, _ = v["source"].(string)
		if seed.Source == "" {
			seed.Source, _ = v["url"].(string)
		}
		seed.Format, _ = v["format"].(string)
	default:
		return nil, fmt.Errorf("expected a source path or mapping, got %T", v)
	}
	if seed.Source == "" {
		return nil, fmt.Errorf("missing seed source")
	}
	if seed.Format == "" {
		seed.Format = formatOf(seed.Source)
	}
	return seed, nil
}

// formatOf infers the row format from a source path. Anything that is not a
// .tsv file is read as CSV.
func formatOf(source string) string {
	if strings.EqualFold(filepath.Ext(source), ".tsv") {
		return "tsv"
	}
	return "csv"
}

func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got element %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
