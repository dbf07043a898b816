package edge

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/graphdl/schema"
)

// Operator is a relationship operator token.
type Operator string

// Relationship operators.
const (
	ForwardExact  Operator = "->"
	ForwardFuzzy  Operator = "~>"
	BackwardExact Operator = "<-"
	BackwardFuzzy Operator = "<~"
)

// operators lists the tokens in scan priority order. Fuzzy tokens come first
// so that a definition holding both kinds resolves to the fuzzy one.
var operators = []Operator{ForwardFuzzy, BackwardFuzzy, ForwardExact, BackwardExact}

// Direction of the stored reference relative to the declaring entity.
type Direction uint8

// Relationship directions.
const (
	Forward Direction = iota
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MatchMode controls whether a relation links a specific entity or searches
// for a similar one first.
type MatchMode uint8

// Match modes.
const (
	Exact MatchMode = iota
	Fuzzy
)

// String returns the match mode name.
func (m MatchMode) String() string {
	if m == Fuzzy {
		return "fuzzy"
	}
	return "exact"
}

// Direction reports the operator direction. The zero Operator (an implicit
// relation) is forward.
func (o Operator) Direction() Direction {
	if strings.HasPrefix(string(o), "<") {
		return Backward
	}
	return Forward
}

// MatchMode reports the operator match mode.
func (o Operator) MatchMode() MatchMode {
	if strings.Contains(string(o), "~") {
		return Fuzzy
	}
	return Exact
}

// IsValid reports whether o is one of the four relationship operators.
func (o Operator) IsValid() bool {
	switch o {
	case ForwardExact, ForwardFuzzy, BackwardExact, BackwardFuzzy:
		return true
	}
	return false
}

var typeNameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// IsTypeName reports whether s is a PascalCase entity type name.
func IsTypeName(s string) bool {
	return typeNameRe.MatchString(s)
}

// Spec is a parsed operator definition such as "Who wrote it? ~>Author|Org(0.8)[]".
type Spec struct {
	Prompt    string
	Operator  Operator
	Target    string   // First (or only) target type
	Union     []string // All candidate types when more than one is declared
	Threshold *float64
	Optional  bool
	Array     bool
	Backref   string
}

// Targets returns the candidate target types in declared order.
func (s *Spec) Targets() []string {
	if len(s.Union) > 0 {
		return s.Union
	}
	return []string{s.Target}
}

// Find locates the operator in def using the scan priority order. It returns
// the operator and its byte offset, or ("", -1) when def holds no operator.
func Find(def string) (Operator, int) {
	for _, op := range operators {
		if i := strings.Index(def, string(op)); i >= 0 {
			return op, i
		}
	}
	return "", -1
}

// Parse parses an operator definition. Errors are *schema.Error values
// without a path; callers attach the entity and field.
func Parse(def string) (*Spec, error) {
	op, i := Find(def)
	if i < 0 {
		return nil, schema.NewError(schema.InvalidOperator, "", "missing relationship operator in "+strconv.Quote(def))
	}
	spec := &Spec{
		Prompt:   strings.TrimSpace(def[:i]),
		Operator: op,
	}
	target := strings.TrimSpace(def[i+len(op):])
	target, spec.Threshold = cutThreshold(target)
	target, spec.Optional = strings.CutSuffix(target, "?")
	target, spec.Array = strings.CutSuffix(target, "[]")
	if !spec.Optional {
		target, spec.Optional = strings.CutSuffix(target, "?")
	}
	if target == "" {
		return nil, schema.NewError(schema.InvalidOperator, "", "missing target type after "+string(op))
	}
	if strings.ContainsAny(target, "[]") {
		return nil, schema.NewError(schema.InvalidFieldType, "", "malformed array syntax in "+strconv.Quote(target))
	}
	if name, backref, ok := strings.Cut(target, "."); ok {
		if backref == "" || strings.Contains(backref, ".") {
			return nil, schema.NewError(schema.InvalidFieldType, "", "malformed backref syntax in "+strconv.Quote(target))
		}
		target, spec.Backref = name, backref
	}
	members := strings.Split(target, "|")
	for j, m := range members {
		m = strings.TrimSpace(m)
		if !IsTypeName(m) {
			return nil, schema.NewError(schema.InvalidOperator, "", "target type "+strconv.Quote(m)+" must be PascalCase")
		}
		members[j] = m
	}
	spec.Target = members[0]
	if len(members) > 1 {
		spec.Union = members
	}
	return spec, nil
}

// cutThreshold removes a "(number)" parenthetical from the target and returns
// the threshold when it parses as a float in [0, 1]. An unterminated
// parenthetical is dropped and yields no threshold.
func cutThreshold(target string) (string, *float64) {
	open := strings.IndexByte(target, '(')
	if open < 0 {
		return target, nil
	}
	closing := strings.IndexByte(target[open:], ')')
	if closing < 0 {
		return strings.TrimSpace(target[:open]), nil
	}
	closing += open
	rest := strings.TrimSpace(target[:open]) + strings.TrimSpace(target[closing+1:])
	v, err := strconv.ParseFloat(strings.TrimSpace(target[open+1:closing]), 64)
	if err != nil || v < 0 || v > 1 {
		return rest, nil
	}
	return rest, &v
}
