// Package schema provides the building blocks for declaring graphdl entity schemas.
//
// A schema is a map of entity names to field declarations, where every field
// is a short type-expression string. The subpackages parse those strings:
//
//   - [edge]: relationship operators (->, ~>, <-, <~), thresholds and unions
//   - [field]: field classification, primitive types and name validation
//   - [mixin]: reusable field blocks shared by several entities
//
// # Quick Start
//
//	Post:
//	  title: string
//	  summary: 'Write a one paragraph summary of the post'
//	  author: Author.posts
//	  category: 'What is the main category? ~>Category(0.8)'
//	  tags: '->Tag[]'
//	Author:
//	  name: string
//	  $instructions: Authors are technical writers
//
// # Type Expressions
//
//	string, number, boolean, date      // primitive scalars
//	Type, Type?, Type[]                // implicit relations
//	Type.backref                       // relation with a synthesized inverse array
//	prompt ->Type                      // forward exact, generated when missing
//	prompt ~>Type(0.9)                 // forward fuzzy, searched before generating
//	<-Type, <~Type                     // backward exact / backward fuzzy
//	->A|B|C                            // union of candidate target types
//	$.column                           // bulk seed column mapping
//
// # Errors
//
// Malformed declarations fail with an [*Error] carrying a [Code] and a dotted
// path such as "Post.author":
//
//	if schema.IsCode(err, schema.InvalidFieldType) {
//	    // ...
//	}
package schema
