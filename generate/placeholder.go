// Package generate provides graphdl.ValueGenerator implementations.
//
// Placeholder is the deterministic default; Fallback guards an external
// backend with it, Cached memoizes any generator in a graphdl.Cache, and Func
// adapts a plain function such as an AI client call:
//
//	gen := generate.NewFallback(generate.Func(callModel))
//	gen = generate.NewCached(gen, generate.NewMemoryCache(), time.Hour)
package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/contrib/similarity"
	"github.com/syssam/graphdl/schema/field"
)

// Placeholder generates deterministic values derived from the field name and
// request context. The same request always yields the same value.
type Placeholder struct{}

// NewPlaceholder returns a Placeholder generator.
func NewPlaceholder() Placeholder { return Placeholder{} }

var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generate implements graphdl.ValueGenerator.
func (Placeholder) Generate(_ context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error) {
	return graphdl.GeneratedValue{
		Value:    placeholder(req),
		Metadata: map[string]any{"generator": "placeholder"},
	}, nil
}

// SupportsSync implements graphdl.ValueGenerator.
func (Placeholder) SupportsSync() bool { return true }

func placeholder(req graphdl.GenerateRequest) any {
	h := fnv.New32a()
	h.Write([]byte(req.Type))
	h.Write([]byte{0})
	h.Write([]byte(req.FieldName))
	h.Write([]byte{0})
	h.Write([]byte(req.FullContext))
	sum := h.Sum32()
	slug := slugify(req.FieldName)
	switch req.Type {
	case field.TypeNumber:
		return float64(sum % 100)
	case field.TypeBoolean:
		return sum%2 == 0
	case field.TypeDate:
		return epoch.AddDate(0, 0, int(sum%365)).Format(time.DateOnly)
	case field.TypeDatetime:
		return epoch.AddDate(0, 0, int(sum%365)).Add(12 * time.Hour).Format(time.RFC3339)
	case field.TypeJSON:
		return map[string]any{}
	case field.TypeURL:
		return fmt.Sprintf("https://example.com/%s/%08x", slug, sum)
	case field.TypeEmail:
		return fmt.Sprintf("%s.%04x@example.com", slug, sum&0xffff)
	}
	label := similarity.Title(strings.Join(splitWords(req.FieldName), " "))
	if req.Hint != "" {
		return label + ": " + req.Hint
	}
	return fmt.Sprintf("%s %04x", label, sum&0xffff)
}

// splitWords splits camelCase and snake_case identifiers into lower-case words.
func splitWords(name string) []string {
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case i > 0 && r >= 'A' && r <= 'Z':
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func slugify(name string) string {
	return strings.Join(splitWords(name), "-")
}

var _ graphdl.ValueGenerator = Placeholder{}
