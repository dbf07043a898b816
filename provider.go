package graphdl

import "context"

// ListOptions filters and pages a List call.
type ListOptions struct {
	// Where matches records whose field equals the value. A field holding an
	// id list matches when the list contains the value.
	Where  map[string]any
	Limit  int
	Offset int
}

// SearchOptions configures a keyword search.
type SearchOptions struct {
	Fields []string // Fields to search; all string fields when empty
	Limit  int
}

// SemanticSearchOptions configures a similarity search.
type SemanticSearchOptions struct {
	MinScore float64
	Limit    int
}

// Relation is a stored edge between two entities.
type Relation struct {
	FromType string
	FromID   string
	Field    string
	ToType   string
	ToID     string
	Meta     map[string]any
}

// Provider is the storage backend consumed by the engine.
//
// Implementations must be safe for concurrent use. Create either succeeds or
// fails; the engine performs no compensating rollback.
type Provider interface {
	// Get returns the record or an error matching ErrNotFound.
	Get(ctx context.Context, typ, id string) (Record, error)
	// List returns the records of a type matching the options.
	List(ctx context.Context, typ string, opts ListOptions) ([]Record, error)
	// Search returns the records whose string fields contain the query.
	Search(ctx context.Context, typ, query string, opts SearchOptions) ([]Record, error)
	// Create stores a new record. An empty id asks the provider to mint one.
	// The returned record carries $id and $type.
	Create(ctx context.Context, typ, id string, data Record) (Record, error)
	// Update merges patch into an existing record.
	Update(ctx context.Context, typ, id string, patch Record) (Record, error)
	// Delete removes a record and its edges, reporting whether it existed.
	Delete(ctx context.Context, typ, id string) (bool, error)
	// Relate stores an edge. Relating the same edge twice is not an error.
	Relate(ctx context.Context, rel Relation) error
	// Related returns the targets of the edges stored for (typ, id, field).
	Related(ctx context.Context, typ, id, field string) ([]Record, error)
}

// SemanticSearcher is implemented by providers that rank records by
// similarity. Returned records carry their score under $score, best first.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, typ, query string, opts SemanticSearchOptions) ([]Record, error)
}

// BatchGetter is implemented by providers that load several records at once.
// Missing ids are omitted from the result, in any order.
type BatchGetter interface {
	GetMany(ctx context.Context, typ string, ids []string) ([]Record, error)
}

// SupportsSemanticSearch reports whether p can rank records by similarity.
// Without it fuzzy relations degenerate to generation only.
func SupportsSemanticSearch(p Provider) (SemanticSearcher, bool) {
	s, ok := p.(SemanticSearcher)
	return s, ok
}
