package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/ratelimit"
)

// Limiter is a mock implementation of ratelimit.Limiter
type Limiter struct {
	mock.Mock
}

// Allow records one request for key
func (m *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}

// Close releases any held resources
func (m *Limiter) Close() error {
	args := m.Called()
	return args.Error(0)
}
