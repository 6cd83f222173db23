package shortener

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/repository"
)

// ErrClosed is returned by a closed CounterCache
var ErrClosed = errors.New("counter cache closed")

// CounterCache serves counter values from blocks reserved in a CounterStore.
// A block's upper bound is written before any value in it is handed out, so
// a restart resumes above every value previously issued.
type CounterCache struct {
	mu     sync.Mutex
	store  repository.CounterStore
	step   int64
	blocks map[string]*counterBlock
	logger *zap.Logger
	closed bool
}

type counterBlock struct {
	last  int64
	limit int64
}

// NewCounterCache creates a counter cache reserving step values per write
func NewCounterCache(store repository.CounterStore, step int64, logger *zap.Logger) *CounterCache {
	if step < 1 {
		step = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CounterCache{
		store:  store,
		step:   step,
		blocks: make(map[string]*counterBlock),
		logger: logger,
	}
}

// Next returns the next counter value for key, reserving a new block when the current one is spent
func (c *CounterCache) Next(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	block, ok := c.blocks[key]
	if !ok {
		stored, err := c.store.GetCounter(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to load counter %s: %w", key, err)
		}
		block = &counterBlock{last: stored, limit: stored}
		c.blocks[key] = block
	}

	if block.last >= block.limit {
		limit := block.limit + c.step
		if err := c.store.SetCounter(ctx, key, limit); err != nil {
			return 0, fmt.Errorf("failed to reserve counter block %s: %w", key, err)
		}
		block.limit = limit
		c.logger.Debug("reserved counter block",
			zap.String("key", key),
			zap.Int64("from", block.last+1),
			zap.Int64("to", limit),
		)
	}

	block.last++
	return block.last, nil
}

// Close stops the cache from handing out further values
func (c *CounterCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Ensure CounterCache implements CounterProvider
var _ CounterProvider = (*CounterCache)(nil)
