package service

import (
	"context"
	"fmt"
	"sync"
)

// TestGenerator is a simple generator for testing purposes. It hands out the
// queued codes first, then test0001, test0002, ...
type TestGenerator struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

// NewTestGenerator creates a new test generator
func NewTestGenerator(queued ...string) *TestGenerator {
	return &TestGenerator{queued: queued}
}

// Generate returns the next test short code
func (g *TestGenerator) Generate(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queued) > 0 {
		code := g.queued[0]
		g.queued = g.queued[1:]
		return code, nil
	}

	g.counter++
	return fmt.Sprintf("test%04d", g.counter), nil
}

// Type returns the generator type
func (g *TestGenerator) Type() string {
	return "test"
}

// Close performs cleanup
func (g *TestGenerator) Close() error {
	return nil
}
