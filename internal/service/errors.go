package service

import (
	"errors"

	"github.com/joshdurbin/shortlink/internal/domain"
)

var (
	ErrNotFound      = errors.New("short code not found")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrURLNotAllowed = errors.New("URL points at this service")
	ErrInvalidShort  = errors.New("invalid custom short")
	ErrShortInUse    = errors.New("custom short already in use")
	ErrInvalidExpiry = errors.New("invalid expiry")
)

// ShortenError is a rejected shorten request. Code selects the wire status
// and message; Err is one of the sentinels above or an internal failure.
type ShortenError struct {
	Code           domain.ErrorCode
	RateLimitReset int // minutes, set for ErrCodeRateLimited
	Err            error
}

func (e *ShortenError) Error() string {
	if e.Err == nil {
		return e.Code.Message()
	}
	return e.Code.Message() + ": " + e.Err.Error()
}

func (e *ShortenError) Unwrap() error {
	return e.Err
}

// Response renders the error as the wire body
func (e *ShortenError) Response() domain.ShortenErrorResponse {
	body := domain.NewErrorResponse(e.Code)
	body.RateLimitReset = e.RateLimitReset
	return body
}

func shortenError(code domain.ErrorCode, err error) *ShortenError {
	return &ShortenError{Code: code, Err: err}
}
