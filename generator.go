package graphdl

import "context"

// GenerateRequest describes one scalar value to generate.
type GenerateRequest struct {
	FieldName   string
	Type        string // Primitive type or entity type for whole-entity prompts
	FullContext string // Prompt, instructions and parent data joined for the backend
	Hint        string // Field prompt or caller hint
	ParentData  Record
}

// GeneratedValue is the result of a generation call.
type GeneratedValue struct {
	Value    any
	Metadata map[string]any
}

// ValueGenerator produces scalar field content.
type ValueGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GeneratedValue, error)
	// SupportsSync reports whether Generate returns without blocking on I/O,
	// which makes the generator usable for eager draft placeholders.
	SupportsSync() bool
}
