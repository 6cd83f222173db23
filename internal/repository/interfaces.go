package repository

import (
	"context"
	"errors"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

var (
	// ErrNotFound is returned when no entry exists for a short code
	ErrNotFound = errors.New("short code not found")

	// ErrDuplicate is returned when a short code is already stored
	ErrDuplicate = errors.New("short code already exists")
)

// URLRepository defines the interface for URL data operations
type URLRepository interface {
	// CreateURL creates a new short URL entry
	CreateURL(ctx context.Context, shortCode, originalURL string, createdAt, expiresAt time.Time) (*domain.URLEntry, error)

	// GetURL retrieves a URL entry by its short code, expired or not
	GetURL(ctx context.Context, shortCode string) (*domain.URLEntry, error)

	// GetAllURLs retrieves all URL entries ordered by creation date (desc)
	GetAllURLs(ctx context.Context) ([]*domain.URLEntry, error)

	// UpdateUsage updates the usage count and last used timestamp for a URL
	UpdateUsage(ctx context.Context, shortCode string, usageCount int, lastUsedAt time.Time) error

	// DeleteURL removes a URL entry by its short code
	DeleteURL(ctx context.Context, shortCode string) error

	// DeleteExpired removes every entry expired at now and returns their short codes
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)

	// URLExists checks if a short code exists
	URLExists(ctx context.Context, shortCode string) (bool, error)

	// LoadCacheData loads all URL data for cache initialization
	LoadCacheData(ctx context.Context) (map[string]*domain.CacheEntry, error)

	// Close closes the repository connection
	Close() error
}

// CounterStore persists the named counters behind short code generation
type CounterStore interface {
	// GetCounter returns the stored value for key, 0 when it was never set
	GetCounter(ctx context.Context, key string) (int64, error)

	// SetCounter stores value for key
	SetCounter(ctx context.Context, key string, value int64) error
}
