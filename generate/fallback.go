package generate

import (
	"context"
	"log/slog"

	"github.com/syssam/graphdl"
)

// Fallback calls a primary generator and falls back to a secondary one when
// the primary fails. Generation errors are never returned to the caller
// unless the secondary fails too.
type Fallback struct {
	Primary   graphdl.ValueGenerator
	Secondary graphdl.ValueGenerator
	Logger    *slog.Logger
}

// NewFallback guards primary with the Placeholder generator.
func NewFallback(primary graphdl.ValueGenerator) *Fallback {
	return &Fallback{Primary: primary, Secondary: Placeholder{}, Logger: slog.Default()}
}

// Generate implements graphdl.ValueGenerator.
func (f *Fallback) Generate(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error) {
	v, err := f.Primary.Generate(ctx, req)
	if err == nil {
		return v, nil
	}
	if f.Logger != nil {
		f.Logger.WarnContext(ctx, "value generator failed, using fallback", "field", req.FieldName, "type", req.Type, "error", err)
	}
	v, ferr := f.Secondary.Generate(ctx, req)
	if ferr != nil {
		return graphdl.GeneratedValue{}, ferr
	}
	if v.Metadata == nil {
		v.Metadata = make(map[string]any)
	}
	v.Metadata["fallback"] = true
	v.Metadata["error"] = err.Error()
	return v, nil
}

// SupportsSync reports whether the primary generator is synchronous.
func (f *Fallback) SupportsSync() bool {
	return f.Primary.SupportsSync()
}

var _ graphdl.ValueGenerator = (*Fallback)(nil)
