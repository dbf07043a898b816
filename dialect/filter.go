package dialect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/contrib/similarity"
)

// Matches reports whether rec satisfies every condition of where. A field
// holding an id list matches when it contains the wanted value.
func Matches(rec graphdl.Record, where map[string]any) bool {
	for k, want := range where {
		if !matchValue(rec[k], want) {
			return false
		}
	}
	return true
}

func matchValue(have, want any) bool {
	switch h := have.(type) {
	case []string:
		if w, ok := want.(string); ok {
			return slices.Contains(h, w)
		}
	case []any:
		for _, e := range h {
			if equal(e, want) {
				return true
			}
		}
		return false
	}
	return equal(have, want)
}

// equal compares scalars loosely so that values decoded from JSON or msgpack
// (float64, int8, ...) match the literals callers pass in.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Page applies offset and limit to records. A zero limit means no limit.
func Page(recs []graphdl.Record, limit, offset int) []graphdl.Record {
	if offset > 0 {
		if offset >= len(recs) {
			return nil
		}
		recs = recs[offset:]
	}
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

// ContainsText reports whether any of the searched string fields of rec
// contains query, ignoring case. All fields are searched when fields is empty.
func ContainsText(rec graphdl.Record, query string, fields []string) bool {
	q := similarity.Normalize(query)
	if q == "" {
		return true
	}
	check := func(v any) bool {
		s, ok := v.(string)
		return ok && strings.Contains(similarity.Normalize(s), q)
	}
	if len(fields) > 0 {
		return slices.ContainsFunc(fields, func(f string) bool { return check(rec[f]) })
	}
	for k, v := range rec {
		if !strings.Contains(k, "$") && check(v) {
			return true
		}
	}
	return false
}

// Rank scores every record against query and returns those reaching minScore,
// best first, each carrying its score under $score. Ties keep input order.
func Rank(recs []graphdl.Record, query string, minScore float64, limit int) []graphdl.Record {
	out := make([]graphdl.Record, 0, len(recs))
	for _, r := range recs {
		score := similarity.Record(query, r)
		if score < minScore || score == 0 {
			continue
		}
		c := r.Clone()
		c[graphdl.KeyScore] = score
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b graphdl.Record) int {
		switch sa, sb := a.Score(), b.Score(); {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})
	return Page(out, limit, 0)
}
