package graph

import (
	"log/slog"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/contrib/idgen"
	"github.com/syssam/graphdl/generate"
)

// Defaults used by DefaultConfig.
const (
	DefaultMaxDepth       = 10
	DefaultFuzzyThreshold = 0.75
	DefaultDraftThreshold = 0.5
	DefaultSearchLimit    = 10
	DefaultArrayCount     = 1
	DefaultConcurrency    = 4
)

// Config is the engine configuration shared by the cascade generator, the
// fuzzy matcher, the hydrator and the draft pipeline.
type Config struct {
	// Generator produces scalar field values. Failures fall back to the
	// placeholder generator.
	Generator graphdl.ValueGenerator
	// MaxDepth bounds cascading generation.
	MaxDepth int
	// FuzzyThreshold is the similarity cutoff used when neither the field nor
	// the entity sets one.
	FuzzyThreshold float64
	// DraftThreshold is the similarity cutoff used when resolving drafts.
	DraftThreshold float64
	// SearchLimit caps candidates fetched per type in similarity searches.
	SearchLimit int
	// ArrayPolicy decides whether unset required array relations are generated.
	ArrayPolicy ArrayPolicy
	// ArrayCount is the number of items generated for an array relation.
	ArrayCount int
	// IDFunc pre-allocates entity ids.
	IDFunc idgen.Func
	// Logger receives generation and matching diagnostics.
	Logger *slog.Logger
	// Concurrency bounds parallel searches, loads and array-item resolution.
	Concurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Generator:      generate.NewPlaceholder(),
		MaxDepth:       DefaultMaxDepth,
		FuzzyThreshold: DefaultFuzzyThreshold,
		DraftThreshold: DefaultDraftThreshold,
		SearchLimit:    DefaultSearchLimit,
		ArrayPolicy:    DefaultArrayPolicy,
		ArrayCount:     DefaultArrayCount,
		IDFunc:         idgen.UUID(),
		Logger:         slog.Default(),
		Concurrency:    DefaultConcurrency,
	}
}

// NewConfig applies opts to the default configuration.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// guardedGenerator wraps Generator so failures fall back to the placeholder
// generator.
func (c *Config) guardedGenerator() graphdl.ValueGenerator {
	return &generate.Fallback{Primary: c.Generator, Secondary: generate.NewPlaceholder(), Logger: c.Logger}
}

// Option configures the engine.
type Option func(*Config) error

// WithGenerator sets the value generator. The engine guards it with the
// placeholder generator.
func WithGenerator(g graphdl.ValueGenerator) Option {
	return func(c *Config) error {
		if g == nil {
			return NewConfigError("Generator", nil, "generator cannot be nil")
		}
		c.Generator = g
		return nil
	}
}

// WithMaxDepth sets the cascade recursion limit.
func WithMaxDepth(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("MaxDepth", n, "must be at least 1")
		}
		c.MaxDepth = n
		return nil
	}
}

// WithFuzzyThreshold sets the default similarity cutoff for fuzzy relations.
func WithFuzzyThreshold(t float64) Option {
	return func(c *Config) error {
		if t < 0 || t > 1 {
			return NewConfigError("FuzzyThreshold", t, "must be within [0, 1]")
		}
		c.FuzzyThreshold = t
		return nil
	}
}

// WithDraftThreshold sets the similarity cutoff used when resolving drafts.
func WithDraftThreshold(t float64) Option {
	return func(c *Config) error {
		if t < 0 || t > 1 {
			return NewConfigError("DraftThreshold", t, "must be within [0, 1]")
		}
		c.DraftThreshold = t
		return nil
	}
}

// WithSearchLimit sets the number of candidates fetched per type.
func WithSearchLimit(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("SearchLimit", n, "must be at least 1")
		}
		c.SearchLimit = n
		return nil
	}
}

// WithArrayPolicy sets the array auto-generation policy.
func WithArrayPolicy(p ArrayPolicy) Option {
	return func(c *Config) error {
		if p == nil {
			return NewConfigError("ArrayPolicy", nil, "policy cannot be nil")
		}
		c.ArrayPolicy = p
		return nil
	}
}

// WithArrayCount sets the number of items generated for array relations.
func WithArrayCount(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("ArrayCount", n, "must be at least 1")
		}
		c.ArrayCount = n
		return nil
	}
}

// WithIDFunc sets the id generator.
func WithIDFunc(f idgen.Func) Option {
	return func(c *Config) error {
		if f == nil {
			return NewConfigError("IDFunc", nil, "id function cannot be nil")
		}
		c.IDFunc = f
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithConcurrency bounds parallel provider calls.
func WithConcurrency(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Concurrency", n, "must be at least 1")
		}
		c.Concurrency = n
		return nil
	}
}
