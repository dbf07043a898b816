package graph

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/schema"
)

// SeedResult counts the rows applied by Seed.
type SeedResult struct {
	Created int
	Updated int
	Skipped int // Rows without an id
}

// Seed upserts rows into typ using the entity's $seed mapping: the $id
// column keys each row and every '$.column' field takes its column value.
// Seeded entities are stored as is, without generation.
func (e *Engine) Seed(ctx context.Context, typ string, rows []map[string]string) (SeedResult, error) {
	var res SeedResult
	ent, err := e.cascade.entity(typ)
	if err != nil {
		return res, err
	}
	if ent.Meta.Seed == nil || ent.Meta.Seed.IDColumn == "" {
		return res, schema.NewError(schema.MissingSeedID, typ+".$id", "entity has no seed id column")
	}
	cols := ent.SeedColumns()
	for _, row := range rows {
		id := row[ent.Meta.Seed.IDColumn]
		if id == "" {
			res.Skipped++
			continue
		}
		data := make(graphdl.Record, len(cols))
		for _, f := range cols {
			if v, ok := row[f.SeedColumn]; ok {
				data[f.Name] = v
			}
		}
		_, err := e.provider.Get(ctx, typ, id)
		switch {
		case err == nil:
			if _, err := e.provider.Update(ctx, typ, id, data); err != nil {
				return res, fmt.Errorf("seeding %s %s: %w", typ, id, err)
			}
			res.Updated++
		case graphdl.IsNotFound(err):
			if _, err := e.provider.Create(ctx, typ, id, data); err != nil {
				return res, fmt.Errorf("seeding %s %s: %w", typ, id, err)
			}
			res.Created++
		default:
			return res, fmt.Errorf("seeding %s %s: %w", typ, id, err)
		}
	}
	e.cfg.Logger.InfoContext(ctx, "seeded entities", "entity", typ, "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

// ReadRows reads a CSV or TSV source with a header row into column maps.
func ReadRows(r io.Reader, format string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	if format == "tsv" {
		cr.Comma = '\t'
		cr.LazyQuotes = true
	}
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
}
