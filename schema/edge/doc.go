// Package edge parses relationship operator definitions.
//
// An operator definition is optional prompt text followed by one of four
// operators and a target expression:
//
//	->   forward exact     generate and link when missing
//	~>   forward fuzzy     search existing entities, generate on a miss
//	<-   backward exact    the target holds the reference
//	<~   backward fuzzy    search only, never generates
//
// The target expression accepts, in this order, a trailing "(0.8)" similarity
// threshold, a "?" optional marker, a "[]" array marker, a ".backref" suffix
// and a "|"-separated union of candidate types:
//
//	spec, err := edge.Parse("What is the main category? ~>Category(0.9)")
//	// spec.Prompt == "What is the main category?"
//	// spec.Operator == edge.ForwardFuzzy, *spec.Threshold == 0.9
package edge
