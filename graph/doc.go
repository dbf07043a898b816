// Package graph resolves the relations of a compiled schema at runtime.
//
// An Engine ties together four parts that share one Config:
//
//   - Cascade generates default field values and the required related
//     entities of '->' relations, recursively and bounded by MaxDepth.
//   - Matcher resolves '~>' relations by similarity search across the
//     candidate types, generating on a miss, and grounds '<~' relations on
//     existing entities only.
//   - Hydrator wraps stored records in Nodes whose relation fields are
//     LazyRef and LazyRefs values resolved on demand.
//   - Pipeline drafts an entity with natural-language placeholders for its
//     relations and later resolves the draft to entity ids.
//
// Typical use:
//
//	s, err := compiler.Compile(raw)
//	if err != nil {
//		return err
//	}
//	engine, err := graph.NewEngine(s, memory.New(), graph.WithGenerator(gen))
//	if err != nil {
//		return err
//	}
//	post, err := engine.Create(ctx, "Post", graphdl.Record{"title": "Hello"})
//	if err != nil {
//		return err
//	}
//	ref, _ := post.Ref("author")
//	author, err := ref.Resolve(ctx)
//
// Every create pre-allocates the entity id before related entities are
// generated, so children may reference a parent that is not stored yet. A
// child stored during cascading generation is not removed when a later step
// fails.
package graph
