// Package sql provides a graphdl.Provider backed by database/sql.
//
// Entities of every type share one table keyed by (type, id) with their data
// encoded as msgpack; relations are rows of a second table. The schema is
// created by Provider.Migrate and works unchanged on SQLite, PostgreSQL and
// MySQL:
//
//	drv, err := sql.Open(dialect.SQLite, "file:graph.db")
//	if err != nil {
//		return err
//	}
//	p := sql.NewProvider(sql.NewStatsDriver(drv))
//	if err := p.Migrate(ctx); err != nil {
//		return err
//	}
//	engine, err := graph.NewEngine(schema, p)
//
// Statements are written with '?' placeholders and rewritten for postgres by
// Rebind. The driver packages themselves are not imported here; register the
// one you need with a blank import.
package sql
