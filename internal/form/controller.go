// Package form holds the state of the shorten form and the rules that map a
// submission's outcome onto it. It knows nothing about how the state is
// rendered.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/domain"
)

const (
	// DefaultExpiry is the expiry, in hours, a fresh form starts with
	DefaultExpiry = 1

	DefaultShortHelper = "Shortened URL Example: localhost:3000/<short>"

	helperURLRequired = "Please enter a URL"
	helperInvalidURL  = "Please enter a valid URL"
	noticeBadJSON     = "Could not shorten URL. Please try again."
)

// Shortener sends a shorten request to the backend. Failures reported by the
// backend are returned as an APIError.
type Shortener interface {
	Shorten(ctx context.Context, req domain.ShortenRequest) (*domain.ShortenResponse, error)
}

// Notifier shows a transient, dismissible message
type Notifier interface {
	Notify(message string)
}

// APIError is implemented by errors that carry the backend's error body
type APIError interface {
	error
	ErrorResponse() domain.ShortenErrorResponse
}

// Outcome names the branch a submission ended in
type Outcome int

const (
	OutcomeMissingURL Outcome = iota
	OutcomeShortened
	OutcomeBadJSON
	OutcomeRateLimited
	OutcomeInvalidURL
	OutcomeURLNotAllowed
	OutcomeShortInUse
	OutcomeFailed
)

var outcomeNames = [...]string{
	"missing_url",
	"shortened",
	"bad_json",
	"rate_limited",
	"invalid_url",
	"url_not_allowed",
	"short_in_use",
	"failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// State is a snapshot of the form
type State struct {
	URL    string
	Short  string
	Expiry int

	URLError    bool
	URLHelper   string
	ShortError  bool
	ShortHelper string

	Loading bool

	ResultTitle string
	ResultLink  string
}

// Controller owns the form state of a single form instance
type Controller struct {
	mu        sync.Mutex
	state     State
	shortener Shortener
	notifier  Notifier
	logger    *zap.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for submission diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller with empty fields and default expiry
func NewController(shortener Shortener, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		state: State{
			Expiry:      DefaultExpiry,
			ShortHelper: DefaultShortHelper,
		},
		shortener: shortener,
		notifier:  notifier,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetURL sets the long URL field
func (c *Controller) SetURL(url string) {
	c.mu.Lock()
	c.state.URL = url
	c.mu.Unlock()
}

// SetShort sets the custom short code field
func (c *Controller) SetShort(short string) {
	c.mu.Lock()
	c.state.Short = short
	c.mu.Unlock()
}

// SetExpiry sets the expiry field; values below 1 are raised to 1
func (c *Controller) SetExpiry(hours int) {
	if hours < 1 {
		hours = 1
	}
	c.mu.Lock()
	c.state.Expiry = hours
	c.mu.Unlock()
}

// Submit validates the form, sends it, and folds the result back into the
// state. Every failure is recovered into state or a notification.
func (c *Controller) Submit(ctx context.Context) Outcome {
	c.mu.Lock()
	c.state.URLError = false
	c.state.URLHelper = ""
	c.state.ShortError = false
	c.state.ShortHelper = DefaultShortHelper
	c.state.ResultTitle = ""
	c.state.ResultLink = ""

	if strings.TrimSpace(c.state.URL) == "" {
		c.state.URLError = true
		c.state.URLHelper = helperURLRequired
		c.mu.Unlock()
		return OutcomeMissingURL
	}

	req := domain.ShortenRequest{
		URL:    strings.TrimSpace(c.state.URL),
		Short:  strings.TrimSpace(c.state.Short),
		Expiry: c.state.Expiry,
	}
	c.state.Loading = true
	c.mu.Unlock()

	resp, err := c.shortener.Shorten(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	if err != nil {
		return c.handleError(err)
	}

	c.resetFields()
	c.state.ResultTitle = fmt.Sprintf("Short URL (expires in %d hrs)", resp.Expiry)
	c.state.ResultLink = resp.Short
	c.logger.Debug("URL shortened", zap.String("short", resp.Short), zap.Int("expiry", resp.Expiry))
	return OutcomeShortened
}

// handleError must be called with mu held
func (c *Controller) handleError(err error) Outcome {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		c.logger.Warn("Shorten request failed", zap.Error(err))
		c.notifier.Notify(err.Error() + ". Please try again")
		return OutcomeFailed
	}

	body := apiErr.ErrorResponse()
	c.logger.Debug("Shorten rejected", zap.String("error", body.Error), zap.String("code", string(body.Code)))

	switch body.Classify() {
	case domain.ErrCodeBadJSON:
		c.resetFields()
		c.notifier.Notify(noticeBadJSON)
		return OutcomeBadJSON
	case domain.ErrCodeRateLimited:
		c.notifier.Notify(fmt.Sprintf("Please try again in %d minutes", body.RateLimitReset))
		return OutcomeRateLimited
	case domain.ErrCodeInvalidURL:
		c.state.URLError = true
		c.state.URLHelper = helperInvalidURL
		return OutcomeInvalidURL
	case domain.ErrCodeURLNotAllowed:
		c.state.URLError = true
		c.state.URLHelper = body.Error
		return OutcomeURLNotAllowed
	case domain.ErrCodeShortInUse:
		c.state.ShortError = true
		c.state.ShortHelper = body.Error
		return OutcomeShortInUse
	default:
		c.notifier.Notify(body.Error + ". Please try again")
		return OutcomeFailed
	}
}

func (c *Controller) resetFields() {
	c.state.URL = ""
	c.state.Short = ""
	c.state.Expiry = DefaultExpiry
}
