package field

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/graphdl/schema"
)

// MaxNameLen is the maximum length of entity and field names.
const MaxNameLen = 64

var (
	entityNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	fieldNameRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// injectionMarkers are fragments that never belong in an identifier but show
// up in SQL and markup injection payloads.
var injectionMarkers = []string{";", "--", "/*", "*/", "'", `"`, "<", ">", "`", "\\", "\x00"}

// ValidateEntityName checks an entity name.
func ValidateEntityName(name string) error {
	if msg := checkName(name, entityNameRe); msg != "" {
		return schema.NewError(schema.InvalidEntityName, name, msg)
	}
	return nil
}

// ValidateFieldName checks a field name on the given entity.
func ValidateFieldName(entity, name string) error {
	if msg := checkName(name, fieldNameRe); msg != "" {
		return schema.NewError(schema.InvalidFieldName, schema.Path(entity, name), msg)
	}
	return nil
}

func checkName(name string, re *regexp.Regexp) string {
	switch {
	case name == "":
		return "name is empty"
	case len(name) > MaxNameLen:
		return "name exceeds " + strconv.Itoa(MaxNameLen) + " characters"
	case containsAny(name, injectionMarkers...):
		return "name " + strconv.Quote(name) + " contains forbidden characters"
	case !re.MatchString(name):
		return "name " + strconv.Quote(name) + " does not match " + re.String()
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
