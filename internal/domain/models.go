package domain

import (
	"time"
)

// URLEntry represents a shortened URL with its metadata
type URLEntry struct {
	ID          int        `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	UsageCount  int        `json:"usage_count"`
}

// Expired reports whether the entry is past its expiry at the given time
func (e *URLEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// CacheEntry represents an entry in the cache
type CacheEntry struct {
	OriginalURL string    `json:"original_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	UsageCount  int       `json:"usage_count"`
	LastUsedAt  time.Time `json:"last_used_at"`
	Dirty       bool      `json:"dirty"` // usage not yet written back
}

// Expired reports whether the cached entry is past its expiry at the given time
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// ShortenRequest is the body of POST /shorten
type ShortenRequest struct {
	URL    string `json:"url"`
	Short  string `json:"short"`
	Expiry int    `json:"expiry"` // hours
}

// ShortenResponse is the 200 body of POST /shorten
type ShortenResponse struct {
	Short              string `json:"short"`
	Expiry             int    `json:"expiry"`
	RateLimitRemaining int    `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     int    `json:"rate_limit_reset,omitempty"`
}

// ShortenErrorResponse is the non-200 body of POST /shorten
type ShortenErrorResponse struct {
	Error          string    `json:"error"`
	Code           ErrorCode `json:"code,omitempty"`
	RateLimitReset int       `json:"rate_limit_reset,omitempty"` // minutes
}
