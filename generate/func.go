package generate

import (
	"context"

	"github.com/syssam/graphdl"
)

// Func adapts a function to a blocking graphdl.ValueGenerator.
type Func func(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error)

// Generate calls f(ctx, req).
func (f Func) Generate(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error) {
	return f(ctx, req)
}

// SupportsSync returns false.
func (Func) SupportsSync() bool { return false }

// SyncFunc adapts a non-blocking function to a graphdl.ValueGenerator usable
// for eager draft placeholders.
type SyncFunc func(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error)

// Generate calls f(ctx, req).
func (f SyncFunc) Generate(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error) {
	return f(ctx, req)
}

// SupportsSync returns true.
func (SyncFunc) SupportsSync() bool { return true }
