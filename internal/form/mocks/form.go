package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// Shortener is a mock implementation of form.Shortener
type Shortener struct {
	mock.Mock
}

// Shorten sends a shorten request
func (m *Shortener) Shorten(ctx context.Context, req domain.ShortenRequest) (*domain.ShortenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortenResponse), args.Error(1)
}

// Notifier is a mock implementation of form.Notifier
type Notifier struct {
	mock.Mock
}

// Notify shows a transient message
func (m *Notifier) Notify(message string) {
	m.Called(message)
}

// APIError is a backend error carrying an error body
type APIError struct {
	Response domain.ShortenErrorResponse
}

func (e *APIError) Error() string {
	return e.Response.Error
}

// ErrorResponse returns the backend's error body
func (e *APIError) ErrorResponse() domain.ShortenErrorResponse {
	return e.Response
}
