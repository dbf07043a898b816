// Package field classifies field type expressions into descriptors.
//
// Classification runs in a fixed order: a "$.column" seed mapping, an explicit
// relationship operator, the "?" optional marker, the "[]" array marker, a
// "Type.backref" relation, an implicit PascalCase relation, and finally a
// primitive scalar or a free-text prompt field.
//
// A prompt field is any remaining expression holding a space, "/" or "?". It
// is stored as a string and its text drives value generation:
//
//	d, _ := field.Parse("Post", "summary", "Write a short summary")
//	d.IsPromptField() // true
//
// SQL and programming-language type names are rejected with a suggestion:
//
//	_, err := field.Parse("Post", "views", "int")
//	// INVALID_FIELD_TYPE at Post.views: unsupported type "int" (did you mean "number"?)
package field
