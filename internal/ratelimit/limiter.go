// Package ratelimit bounds how many shorten requests one client may make per window.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetMinutes is ResetIn rounded up to whole minutes
func (d Decision) ResetMinutes() int {
	if d.ResetIn <= 0 {
		return 0
	}
	return int((d.ResetIn + time.Minute - 1) / time.Minute)
}

// Limiter counts requests per key in fixed windows
type Limiter interface {
	// Allow records one request for key and reports whether it fits the quota
	Allow(ctx context.Context, key string) (Decision, error)

	// Close releases any held resources
	Close() error
}

// Config holds the quota shared by all limiter backends
type Config struct {
	Quota  int           `mapstructure:"quota"`
	Window time.Duration `mapstructure:"window"`
}

// DefaultConfig returns 10 requests per 30 minutes
func DefaultConfig() Config {
	return Config{
		Quota:  10,
		Window: 30 * time.Minute,
	}
}

func decide(quota, count int, resetIn time.Duration) Decision {
	remaining := quota - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= quota,
		Limit:     quota,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
