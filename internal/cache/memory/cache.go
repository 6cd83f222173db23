package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

// Cache implements cache.SyncableCache using in-memory storage
type Cache struct {
	data     map[string]*domain.CacheEntry
	mutex    sync.RWMutex
	stopChan chan struct{}
	running  bool
	wg       sync.WaitGroup
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the time source used for expiry and usage timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used by the background sync loop
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a new in-memory cache
func New(opts ...Option) *Cache {
	c := &Cache{
		data:     make(map[string]*domain.CacheEntry),
		stopChan: make(chan struct{}),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func copyEntry(entry *domain.CacheEntry) *domain.CacheEntry {
	clone := *entry
	return &clone
}

// Get retrieves a live cache entry by short code
func (c *Cache) Get(ctx context.Context, shortCode string) (*domain.CacheEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.data[shortCode]
	if !exists || entry.Expired(c.now()) {
		return nil, false
	}

	return copyEntry(entry), true
}

// Set stores a cache entry
func (c *Cache) Set(ctx context.Context, shortCode string, entry *domain.CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[shortCode] = copyEntry(entry)
	return nil
}

// Add stores entry unless a live entry for shortCode is already cached
func (c *Cache) Add(ctx context.Context, shortCode string, entry *domain.CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.data[shortCode]; exists && !existing.Expired(c.now()) {
		return nil
	}
	c.data[shortCode] = copyEntry(entry)
	return nil
}

// Delete removes a cache entry
func (c *Cache) Delete(ctx context.Context, shortCode string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, shortCode)
	return nil
}

// DeleteMany removes several cache entries at once
func (c *Cache) DeleteMany(ctx context.Context, shortCodes []string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, shortCode := range shortCodes {
		delete(c.data, shortCode)
	}
	return nil
}

// IncrementUsage increments the usage count for a short code
func (c *Cache) IncrementUsage(ctx context.Context, shortCode string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, exists := c.data[shortCode]; exists {
		entry.UsageCount++
		entry.LastUsedAt = c.now()
		entry.Dirty = true
	}

	return nil
}

// GetDirtyEntries returns all cache entries that need to be synced to the database
func (c *Cache) GetDirtyEntries(ctx context.Context) (map[string]*domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	dirty := make(map[string]*domain.CacheEntry)
	for shortCode, entry := range c.data {
		if entry.Dirty {
			dirty[shortCode] = copyEntry(entry)
		}
	}

	return dirty, nil
}

// MarkClean marks an entry as synced. Usage recorded after the snapshot
// keeps the entry dirty for the next sync.
func (c *Cache) MarkClean(ctx context.Context, shortCode string, usageCount int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, exists := c.data[shortCode]; exists && entry.UsageCount == usageCount {
		entry.Dirty = false
	}

	return nil
}

// LoadData replaces the cache contents with data
func (c *Cache) LoadData(ctx context.Context, data map[string]*domain.CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*domain.CacheEntry, len(data))
	for shortCode, entry := range data {
		c.data[shortCode] = copyEntry(entry)
	}

	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// StartBackgroundSync starts background synchronization with the given interval
func (c *Cache) StartBackgroundSync(ctx context.Context, interval time.Duration, syncFunc cache.SyncFunc) error {
	c.mutex.Lock()
	if c.running {
		c.mutex.Unlock()
		return nil // Already running
	}
	c.running = true
	stopChan := c.stopChan
	c.wg.Add(1)
	c.mutex.Unlock()

	go c.backgroundSync(ctx, interval, syncFunc, stopChan)
	return nil
}

// StopBackgroundSync stops background synchronization and waits for the final sync
func (c *Cache) StopBackgroundSync() error {
	c.mutex.Lock()
	if !c.running {
		c.mutex.Unlock()
		return nil
	}

	c.running = false
	close(c.stopChan)

	// Create new channel for potential restart
	c.stopChan = make(chan struct{})
	c.mutex.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Cache) backgroundSync(ctx context.Context, interval time.Duration, syncFunc cache.SyncFunc, stopChan <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.syncToDatabase(ctx, syncFunc)
		case <-stopChan:
			// Final sync before stopping
			c.syncToDatabase(context.WithoutCancel(ctx), syncFunc)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) syncToDatabase(ctx context.Context, syncFunc cache.SyncFunc) {
	dirtyEntries, err := c.GetDirtyEntries(ctx)
	if err != nil {
		c.logger.Error("failed to collect dirty cache entries", zap.Error(err))
		return
	}

	if err := syncFunc(ctx, dirtyEntries); err != nil {
		c.logger.Error("failed to sync cache entries", zap.Int("dirty", len(dirtyEntries)), zap.Error(err))
		return
	}

	for shortCode, entry := range dirtyEntries {
		if err := c.MarkClean(ctx, shortCode, entry.UsageCount); err != nil {
			c.logger.Warn("failed to mark cache entry clean", zap.String("short_code", shortCode), zap.Error(err))
		}
	}
}

// Close closes the cache (stops background sync)
func (c *Cache) Close() error {
	return c.StopBackgroundSync()
}

// Ensure Cache implements the interfaces
var _ cache.Cache = (*Cache)(nil)
var _ cache.SyncableCache = (*Cache)(nil)
