package service

import (
	"context"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// URLShortener defines the interface for URL shortening operations
type URLShortener interface {
	// Shorten validates req, charges clientKey's quota and stores a new short URL.
	// Request failures are returned as *ShortenError.
	Shorten(ctx context.Context, req domain.ShortenRequest, clientKey string) (*domain.ShortenResponse, error)

	// GetOriginalURL retrieves the original URL for a live short code and increments usage
	GetOriginalURL(ctx context.Context, shortCode string) (string, error)

	// GetURLInfo retrieves detailed information about a live short URL
	GetURLInfo(ctx context.Context, shortCode string) (*domain.URLEntry, error)

	// DeleteShortURL removes a live short URL
	DeleteShortURL(ctx context.Context, shortCode string) error

	// GetAllURLs retrieves all live short URLs with current cache data
	GetAllURLs(ctx context.Context) ([]*domain.URLEntry, error)

	// PurgeExpired removes expired entries from storage and cache
	PurgeExpired(ctx context.Context) (int, error)

	// InitializeCache loads data from repository into cache
	InitializeCache(ctx context.Context) error

	// StartCacheSync starts background cache synchronization
	StartCacheSync(ctx context.Context, interval time.Duration) error

	// StopCacheSync stops background cache synchronization
	StopCacheSync() error

	// Close closes the service and its dependencies
	Close() error
}
