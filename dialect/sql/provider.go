package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/contrib/idgen"
	"github.com/syssam/graphdl/dialect"

	"github.com/vmihailenco/msgpack/v5"
)

// Table names used by the provider.
const (
	EntitiesTable = "graphdl_entities"
	EdgesTable    = "graphdl_edges"
)

// Provider is a graphdl.Provider storing every entity type in one table.
// Record data is msgpack-encoded; filtering, keyword search and similarity
// ranking run in Go over the decoded records of a type.
type Provider struct {
	drv     dialect.Driver
	dialect string
	newID   idgen.Func
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithIDFunc sets the generator used when Create is called without an id.
func WithIDFunc(f idgen.Func) Option {
	return func(p *Provider) {
		p.newID = f
	}
}

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// NewProvider returns a Provider over drv. Call Migrate before first use.
func NewProvider(drv dialect.Driver, opts ...Option) *Provider {
	p := &Provider{
		drv:     drv,
		dialect: drv.Dialect(),
		newID:   idgen.UUID(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Driver returns the underlying driver.
func (p *Provider) Driver() dialect.Driver { return p.drv }

// Migrate creates the provider tables if they do not exist.
func (p *Provider) Migrate(ctx context.Context) error {
	for _, stmt := range ddl(p.dialect) {
		if err := p.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("graphdl/sql: migrate: %w", err)
		}
	}
	p.logger.DebugContext(ctx, "provider tables ready", "dialect", p.dialect)
	return nil
}

func ddl(name string) []string {
	seq, blob, text := "INTEGER PRIMARY KEY AUTOINCREMENT", "BLOB", "TEXT"
	switch name {
	case dialect.Postgres:
		seq, blob = "BIGSERIAL PRIMARY KEY", "BYTEA"
	case dialect.MySQL:
		seq, blob, text = "BIGINT AUTO_INCREMENT PRIMARY KEY", "LONGBLOB", "VARCHAR(128)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq %s,
	type %s NOT NULL,
	id %s NOT NULL,
	data %s NOT NULL,
	UNIQUE (type, id)
)`, EntitiesTable, seq, text, text, blob),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq %s,
	from_type %s NOT NULL,
	from_id %s NOT NULL,
	field %s NOT NULL,
	to_type %s NOT NULL,
	to_id %s NOT NULL,
	meta %s,
	UNIQUE (from_type, from_id, field, to_type, to_id)
)`, EdgesTable, seq, text, text, text, text, text, blob),
	}
}

// insertIgnore returns an INSERT statement that skips duplicate rows.
func (p *Provider) insertIgnore(table, cols, values string) string {
	switch p.dialect {
	case dialect.Postgres:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, cols, values)
	case dialect.MySQL:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, cols, values)
	default:
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, cols, values)
	}
}

func (p *Provider) exec(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	if err := ex.Exec(ctx, Rebind(p.dialect, query), args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// records runs a query selecting (type, id, data) and decodes every row.
func (p *Provider) records(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) ([]graphdl.Record, error) {
	var rows Rows
	if err := ex.Query(ctx, Rebind(p.dialect, query), args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []graphdl.Record
	for rows.Next() {
		var (
			typ, id string
			data    []byte
		)
		if err := rows.Scan(&typ, &id, &data); err != nil {
			return nil, err
		}
		rec, err := decode(typ, id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// encode stores everything but the $id and $type keys, which live in their
// own columns.
func encode(data graphdl.Record) ([]byte, error) {
	payload := maps.Clone(map[string]any(data))
	delete(payload, graphdl.KeyID)
	delete(payload, graphdl.KeyType)
	return msgpack.Marshal(payload)
}

func decode(typ, id string, b []byte) (graphdl.Record, error) {
	rec := graphdl.Record{}
	if len(b) > 0 {
		if err := msgpack.Unmarshal(b, (*map[string]any)(&rec)); err != nil {
			return nil, fmt.Errorf("graphdl/sql: decoding %s %s: %w", typ, id, err)
		}
	}
	rec[graphdl.KeyID] = id
	rec[graphdl.KeyType] = typ
	return rec, nil
}

// Get implements graphdl.Provider.
func (p *Provider) Get(ctx context.Context, typ, id string) (graphdl.Record, error) {
	recs, err := p.records(ctx, p.drv, "SELECT type, id, data FROM "+EntitiesTable+" WHERE type = ? AND id = ?", typ, id)
	if err != nil {
		return nil, graphdl.NewQueryError(typ, "get", err)
	}
	if len(recs) == 0 {
		return nil, graphdl.NewNotFoundErrorWithID(typ, id)
	}
	return recs[0], nil
}

// GetMany implements graphdl.BatchGetter.
func (p *Provider) GetMany(ctx context.Context, typ string, ids []string) ([]graphdl.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, typ)
	for _, id := range ids {
		args = append(args, id)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	recs, err := p.records(ctx, p.drv, "SELECT type, id, data FROM "+EntitiesTable+" WHERE type = ? AND id IN ("+marks+")", args...)
	if err != nil {
		return nil, graphdl.NewQueryError(typ, "get many", err)
	}
	return recs, nil
}

func (p *Provider) all(ctx context.Context, typ, op string) ([]graphdl.Record, error) {
	recs, err := p.records(ctx, p.drv, "SELECT type, id, data FROM "+EntitiesTable+" WHERE type = ? ORDER BY seq", typ)
	if err != nil {
		return nil, graphdl.NewQueryError(typ, op, err)
	}
	return recs, nil
}

// List implements graphdl.Provider.
func (p *Provider) List(ctx context.Context, typ string, opts graphdl.ListOptions) ([]graphdl.Record, error) {
	recs, err := p.all(ctx, typ, "list")
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if dialect.Matches(r, opts.Where) {
			out = append(out, r)
		}
	}
	return dialect.Page(out, opts.Limit, opts.Offset), nil
}

// Search implements graphdl.Provider.
func (p *Provider) Search(ctx context.Context, typ, query string, opts graphdl.SearchOptions) ([]graphdl.Record, error) {
	recs, err := p.all(ctx, typ, "search")
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if dialect.ContainsText(r, query, opts.Fields) {
			out = append(out, r)
		}
	}
	return dialect.Page(out, opts.Limit, 0), nil
}

// SemanticSearch implements graphdl.SemanticSearcher.
func (p *Provider) SemanticSearch(ctx context.Context, typ, query string, opts graphdl.SemanticSearchOptions) ([]graphdl.Record, error) {
	recs, err := p.all(ctx, typ, "semantic search")
	if err != nil {
		return nil, err
	}
	return dialect.Rank(recs, query, opts.MinScore, opts.Limit), nil
}

// Count returns the number of stored records of typ.
func (p *Provider) Count(ctx context.Context, typ string) (int, error) {
	var rows Rows
	if err := p.drv.Query(ctx, Rebind(p.dialect, "SELECT COUNT(*) FROM "+EntitiesTable+" WHERE type = ?"), []any{typ}, &rows); err != nil {
		return 0, graphdl.NewQueryError(typ, "count", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, graphdl.NewQueryError(typ, "count", err)
		}
	}
	return n, rows.Err()
}

// Create implements graphdl.Provider.
func (p *Provider) Create(ctx context.Context, typ, id string, data graphdl.Record) (graphdl.Record, error) {
	if id == "" {
		id = p.newID()
	}
	b, err := encode(data)
	if err != nil {
		return nil, graphdl.NewMutationError(typ, "create", err)
	}
	if _, err := p.exec(ctx, p.drv, "INSERT INTO "+EntitiesTable+" (type, id, data) VALUES (?, ?, ?)", typ, id, b); err != nil {
		return nil, mutationError(typ, "create", err)
	}
	return decode(typ, id, b)
}

// Update implements graphdl.Provider.
func (p *Provider) Update(ctx context.Context, typ, id string, patch graphdl.Record) (graphdl.Record, error) {
	var out graphdl.Record
	err := p.tx(ctx, func(tx dialect.Tx) error {
		recs, err := p.records(ctx, tx, "SELECT type, id, data FROM "+EntitiesTable+" WHERE type = ? AND id = ?", typ, id)
		if err != nil {
			return graphdl.NewQueryError(typ, "update", err)
		}
		if len(recs) == 0 {
			return graphdl.NewNotFoundErrorWithID(typ, id)
		}
		rec := recs[0]
		for k, v := range patch {
			if k != graphdl.KeyID && k != graphdl.KeyType {
				rec[k] = v
			}
		}
		b, err := encode(rec)
		if err != nil {
			return graphdl.NewMutationError(typ, "update", err)
		}
		if _, err := p.exec(ctx, tx, "UPDATE "+EntitiesTable+" SET data = ? WHERE type = ? AND id = ?", b, typ, id); err != nil {
			return mutationError(typ, "update", err)
		}
		out, err = decode(typ, id, b)
		return err
	})
	return out, err
}

// Delete implements graphdl.Provider. Edges from and to the record are
// removed with it.
func (p *Provider) Delete(ctx context.Context, typ, id string) (bool, error) {
	var found bool
	err := p.tx(ctx, func(tx dialect.Tx) error {
		res, err := p.exec(ctx, tx, "DELETE FROM "+EntitiesTable+" WHERE type = ? AND id = ?", typ, id)
		if err != nil {
			return mutationError(typ, "delete", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mutationError(typ, "delete", err)
		}
		if found = n > 0; !found {
			return nil
		}
		if _, err := p.exec(ctx, tx, "DELETE FROM "+EdgesTable+" WHERE (from_type = ? AND from_id = ?) OR (to_type = ? AND to_id = ?)", typ, id, typ, id); err != nil {
			return mutationError(typ, "delete", err)
		}
		return nil
	})
	return found, err
}

// Relate implements graphdl.Provider.
func (p *Provider) Relate(ctx context.Context, rel graphdl.Relation) error {
	var meta []byte
	if len(rel.Meta) > 0 {
		b, err := msgpack.Marshal(rel.Meta)
		if err != nil {
			return graphdl.NewMutationError(rel.FromType, "relate", err)
		}
		meta = b
	}
	q := p.insertIgnore(EdgesTable, "from_type, from_id, field, to_type, to_id, meta", "?, ?, ?, ?, ?, ?")
	if _, err := p.exec(ctx, p.drv, q, rel.FromType, rel.FromID, rel.Field, rel.ToType, rel.ToID, meta); err != nil {
		return mutationError(rel.FromType, "relate", err)
	}
	return nil
}

// Related implements graphdl.Provider. Edges pointing at deleted records are
// skipped.
func (p *Provider) Related(ctx context.Context, typ, id, field string) ([]graphdl.Record, error) {
	recs, err := p.records(ctx, p.drv, `SELECT e.type, e.id, e.data FROM `+EdgesTable+` g
JOIN `+EntitiesTable+` e ON e.type = g.to_type AND e.id = g.to_id
WHERE g.from_type = ? AND g.from_id = ? AND g.field = ?
ORDER BY g.seq`, typ, id, field)
	if err != nil {
		return nil, graphdl.NewQueryError(typ, "related", err)
	}
	return recs, nil
}

// Edges returns the relations stored for (typ, id, field) with their
// metadata.
func (p *Provider) Edges(ctx context.Context, typ, id, field string) ([]graphdl.Relation, error) {
	var rows Rows
	q := "SELECT to_type, to_id, meta FROM " + EdgesTable + " WHERE from_type = ? AND from_id = ? AND field = ? ORDER BY seq"
	if err := p.drv.Query(ctx, Rebind(p.dialect, q), []any{typ, id, field}, &rows); err != nil {
		return nil, graphdl.NewQueryError(typ, "edges", err)
	}
	defer rows.Close()
	var out []graphdl.Relation
	for rows.Next() {
		rel := graphdl.Relation{FromType: typ, FromID: id, Field: field}
		var meta []byte
		if err := rows.Scan(&rel.ToType, &rel.ToID, &meta); err != nil {
			return nil, graphdl.NewQueryError(typ, "edges", err)
		}
		if len(meta) > 0 {
			if err := msgpack.Unmarshal(meta, &rel.Meta); err != nil {
				return nil, fmt.Errorf("graphdl/sql: decoding edge meta: %w", err)
			}
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// tx runs fn in a transaction, rolling back when fn fails.
func (p *Provider) tx(ctx context.Context, fn func(dialect.Tx) error) error {
	tx, err := p.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("graphdl/sql: starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rolling back: %w", rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graphdl/sql: committing transaction: %w", err)
	}
	return nil
}

var (
	_ graphdl.Provider         = (*Provider)(nil)
	_ graphdl.SemanticSearcher = (*Provider)(nil)
	_ graphdl.BatchGetter      = (*Provider)(nil)
)
