package schema

import (
	"errors"
	"strings"
)

// ErrInvalidSchema indicates a schema declaration error.
var ErrInvalidSchema = errors.New("graphdl: invalid schema")

// Code classifies a schema declaration error.
type Code string

// Error codes raised while parsing and compiling a schema.
const (
	InvalidEntityName Code = "INVALID_ENTITY_NAME"
	InvalidFieldName  Code = "INVALID_FIELD_NAME"
	InvalidFieldType  Code = "INVALID_FIELD_TYPE"
	InvalidOperator   Code = "INVALID_OPERATOR"
	MissingSeedID     Code = "MISSING_SEED_ID"
)

// Error represents a schema declaration error.
type Error struct {
	Code       Code
	Path       string // Entity or Entity.field
	Message    string
	Suggestion string // Replacement hint, e.g. "number" for "int"
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("graphdl: ")
	b.WriteString(string(e.Code))
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Suggestion != "" {
		b.WriteString(" (did you mean \"")
		b.WriteString(e.Suggestion)
		b.WriteString("\"?)")
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for Error.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewError creates a new Error.
func NewError(code Code, path, message string) *Error {
	return &Error{Code: code, Path: path, Message: message}
}

// Path joins an entity and a field name into a dotted error path.
func Path(entity, field string) string {
	if field == "" {
		return entity
	}
	return entity + "." + field
}

// IsCode reports whether err is a schema Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CodeOf returns the code of a schema Error, or "" for other errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
