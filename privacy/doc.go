// Package privacy guards a graphdl.Provider with per-entity policies.
//
// Every read and write the engine makes, including the entities it generates
// while cascading, passes through the policy of the entity type involved.
// A policy is an ordered list of rules; each rule returns Allow, Deny or Skip,
// and the first non-Skip decision wins. No decision means allow.
//
//	p := privacy.NewProvider(memory.New(),
//		privacy.WithPolicy("Author", privacy.Policy{
//			Mutation: privacy.MutationPolicy{
//				privacy.DenyGenerated(),
//				privacy.HasRole("editor"),
//				privacy.AlwaysDenyRule(),
//			},
//		}),
//	)
//	e, err := graph.NewEngine(s, p)
//
// A decision attached with DecisionContext overrides every policy, which is
// how trusted code such as seeding bypasses them:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
