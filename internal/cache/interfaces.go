package cache

import (
	"context"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a live cache entry by short code; expired entries miss
	Get(ctx context.Context, shortCode string) (*domain.CacheEntry, bool)

	// Set stores a cache entry
	Set(ctx context.Context, shortCode string, entry *domain.CacheEntry) error

	// Add stores entry unless a live entry for shortCode is already cached
	Add(ctx context.Context, shortCode string, entry *domain.CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, shortCode string) error

	// DeleteMany removes several cache entries at once
	DeleteMany(ctx context.Context, shortCodes []string) error

	// IncrementUsage increments the usage count for a short code
	IncrementUsage(ctx context.Context, shortCode string) error

	// GetDirtyEntries returns all cache entries that need to be synced to the database
	GetDirtyEntries(ctx context.Context) (map[string]*domain.CacheEntry, error)

	// MarkClean marks an entry as synced if its usage count still equals usageCount
	MarkClean(ctx context.Context, shortCode string, usageCount int) error

	// LoadData replaces the cache contents with data
	LoadData(ctx context.Context, data map[string]*domain.CacheEntry) error

	// Close closes the cache connection (if applicable)
	Close() error
}

// SyncFunc persists a snapshot of dirty entries. It runs on every sync tick,
// with an empty map when nothing is dirty.
type SyncFunc func(ctx context.Context, dirty map[string]*domain.CacheEntry) error

// SyncableCache extends Cache with sync capabilities
type SyncableCache interface {
	Cache

	// StartBackgroundSync starts background synchronization with the given interval
	StartBackgroundSync(ctx context.Context, interval time.Duration, syncFunc SyncFunc) error

	// StopBackgroundSync stops background synchronization after a final sync
	StopBackgroundSync() error
}
