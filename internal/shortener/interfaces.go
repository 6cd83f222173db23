package shortener

import (
	"context"
)

// Generator defines the interface for generating short codes
type Generator interface {
	// Generate returns a fresh short code
	Generate(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// CounterProvider hands out unique, increasing values per counter key
type CounterProvider interface {
	// Next returns the next value for key
	Next(ctx context.Context, key string) (int64, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// Config holds configuration for shortener generators
type Config struct {
	// CounterStep is how many counter values are reserved per store write
	CounterStep int64 `mapstructure:"counter-step"`
}

// GeneratorType constants
const (
	TypeCounter = "counter"
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		CounterStep: 100,
	}
}
