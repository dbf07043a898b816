// Package similarity scores how closely a query matches stored text.
//
// A score is the larger of the token Jaccard index and the normalized
// Levenshtein ratio of the case-folded strings, so short exact names and long
// descriptions with overlapping words both rank sensibly:
//
//	similarity.Score("Machine Learning", "machine learning") // 1
//	similarity.Score("ML research", "Machine learning research") // token overlap
package similarity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var folder = cases.Fold()

// Normalize case-folds s and collapses runs of whitespace and punctuation.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens returns the case-folded words of s.
func Tokens(s string) []string {
	return strings.FieldsFunc(folder.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Score returns the similarity of a and b in [0, 1].
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return max(jaccard(Tokens(na), Tokens(nb)), ratio(na, nb))
}

// Record returns the best score of query against any string value of the
// given fields. It returns 0 when no field holds a string.
func Record(query string, fields map[string]any) float64 {
	var best float64
	for k, v := range fields {
		if strings.Contains(k, "$") {
			continue
		}
		switch v := v.(type) {
		case string:
			best = max(best, Score(query, v))
		case []string:
			best = max(best, Score(query, strings.Join(v, " ")))
		}
	}
	return best
}

func jaccard(a, b []string) float64 {
	set := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	var inter int
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}

func ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

var titler = cases.Title(language.English)

// Title returns s in title case, e.g. for display labels built from type names.
func Title(s string) string {
	return titler.String(s)
}
