// Package dialect provides the storage backends of graphdl.
//
// This package defines the interfaces shared by the SQL backends together
// with helpers used by every graphdl.Provider implementation.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/memory: in-process provider with similarity search
//   - dialect/sql: database/sql provider for SQLite, PostgreSQL and MySQL
package dialect
