package field

import "strings"

// Primitive scalar types.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDatetime = "datetime"
	TypeJSON     = "json"
	TypeMarkdown = "markdown"
	TypeURL      = "url"
	TypeEmail    = "email"
)

var primitives = map[string]struct{}{
	TypeString:   {},
	TypeNumber:   {},
	TypeBoolean:  {},
	TypeDate:     {},
	TypeDatetime: {},
	TypeJSON:     {},
	TypeMarkdown: {},
	TypeURL:      {},
	TypeEmail:    {},
}

// aliases maps SQL and programming-language type names that authors commonly
// reach for onto the primitive they should use instead. An empty value means
// the alias is rejected without a suggestion.
var aliases = map[string]string{
	"int":       TypeNumber,
	"integer":   TypeNumber,
	"int64":     TypeNumber,
	"bigint":    TypeNumber,
	"smallint":  TypeNumber,
	"tinyint":   TypeNumber,
	"float":     TypeNumber,
	"float64":   TypeNumber,
	"double":    TypeNumber,
	"decimal":   TypeNumber,
	"numeric":   TypeNumber,
	"real":      TypeNumber,
	"bool":      TypeBoolean,
	"varchar":   TypeString,
	"char":      TypeString,
	"text":      TypeString,
	"str":       TypeString,
	"uuid":      TypeString,
	"timestamp": TypeDatetime,
	"time":      TypeDatetime,
	"object":    TypeJSON,
	"any":       TypeJSON,
	"jsonb":     TypeJSON,
	"blob":      "",
	"bytea":     "",
	"undefined": "",
	"null":      "",
	"void":      "",
}

// IsPrimitive reports whether t is a primitive scalar type.
func IsPrimitive(t string) bool {
	_, ok := primitives[t]
	return ok
}

// Suggest returns the primitive to use instead of an unsupported type alias.
// The second result reports whether t is a known alias at all.
func Suggest(t string) (string, bool) {
	s, ok := aliases[strings.ToLower(t)]
	return s, ok
}
