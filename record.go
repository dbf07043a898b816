package graphdl

import (
	"maps"
	"strings"
)

// Bookkeeping keys written by the engine at the storage boundary.
const (
	KeyID          = "$id"
	KeyType        = "$type"
	KeyGenerated   = "$generated"
	KeyGeneratedBy = "$generatedBy"
	KeySourceField = "$sourceField"
	KeyMatchedType = "$matchedType"
	KeySimilarity  = "$similarity"
	KeyScore       = "$score"
)

// Per-field bookkeeping suffixes, written as <field><suffix>.
const (
	SuffixMatched       = "$matched"
	SuffixMatchedType   = "$matchedType"
	SuffixScore         = "$score"
	SuffixFallbackUsed  = "$fallbackUsed"
	SuffixSearchedTypes = "$searchedTypes"
	SuffixGenerated     = "$generated"
)

// FieldKey returns the bookkeeping key for a field, e.g. FieldKey("author", SuffixScore).
func FieldKey(field, suffix string) string {
	return field + suffix
}

// Record is a stored entity: scalar fields, relation ids and bookkeeping
// keys prefixed with '$'.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string {
	s, _ := r[KeyID].(string)
	return s
}

// Type returns the record entity type.
func (r Record) Type() string {
	s, _ := r[KeyType].(string)
	return s
}

// String returns the string value of a field, or "" when the field is
// missing or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Score returns the similarity score attached by a semantic search.
func (r Record) Score() float64 {
	switch v := r[KeyScore].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return 0
}

// Has reports whether the field is set to a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Clone returns a shallow copy of the record. Slice values are copied so
// that appending to them does not alias the original.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	c := maps.Clone(r)
	for k, v := range c {
		switch v := v.(type) {
		case []string:
			c[k] = append([]string(nil), v...)
		case []any:
			c[k] = append([]any(nil), v...)
		}
	}
	return c
}

// Data returns a copy of the record without '$' bookkeeping keys, suitable
// for building generation context.
func (r Record) Data() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if strings.Contains(k, "$") {
			continue
		}
		out[k] = v
	}
	return out
}

// IDs normalizes a relation value to a list of ids. It accepts a single
// string id, []string and []any holding strings.
func IDs(v any) []string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		ids := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}
