package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	"github.com/joshdurbin/shortlink/internal/repository"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

// generateAttempts bounds retries when a generated code is already taken by a custom short
const generateAttempts = 3

// MaxExpiryHours is the longest expiry a time.Duration can hold
const MaxExpiryHours = math.MaxInt64 / int64(time.Hour)

// Config holds the service settings
type Config struct {
	// BaseURL prefixes every returned short, e.g. http://localhost:8080
	BaseURL string
	// Domain is the service's own host; URLs on it are refused. Defaults to the BaseURL host.
	Domain string
	// DefaultExpiry applies when a request leaves expiry at 0
	DefaultExpiry time.Duration
}

// PurgeObserver is told how many expired entries each purge removed
type PurgeObserver interface {
	ObservePurged(n int)
}

// Option configures the service
type Option func(*urlShortener)

// WithPurgeObserver reports purge counts to o
func WithPurgeObserver(o PurgeObserver) Option {
	return func(s *urlShortener) {
		s.purgeObserver = o
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *urlShortener) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *urlShortener) {
		s.now = now
	}
}

// urlShortener implements URLShortener interface
type urlShortener struct {
	repo      repository.URLRepository
	cache     cache.SyncableCache
	generator shortener.Generator
	limiter   ratelimit.Limiter
	config    Config
	domain    string
	logger    *zap.Logger
	now       func() time.Time

	purgeObserver PurgeObserver
}

// NewURLShortener creates a new URL shortener service
func NewURLShortener(repo repository.URLRepository, cache cache.SyncableCache, generator shortener.Generator, limiter ratelimit.Limiter, config Config, opts ...Option) URLShortener {
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.DefaultExpiry <= 0 {
		config.DefaultExpiry = 24 * time.Hour
	}

	s := &urlShortener{
		repo:      repo,
		cache:     cache,
		generator: generator,
		limiter:   limiter,
		config:    config,
		domain:    hostOf(config.Domain),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	if s.domain == "" {
		s.domain = hostOf(config.BaseURL)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartCacheSync starts the background cache synchronization. Each tick writes
// back usage and purges expired entries.
func (s *urlShortener) StartCacheSync(ctx context.Context, interval time.Duration) error {
	syncFunc := func(ctx context.Context, dirtyEntries map[string]*domain.CacheEntry) error {
		for shortCode, entry := range dirtyEntries {
			if err := s.repo.UpdateUsage(ctx, shortCode, entry.UsageCount, entry.LastUsedAt); err != nil {
				return fmt.Errorf("failed to sync entry %s: %w", shortCode, err)
			}
		}
		if _, err := s.PurgeExpired(ctx); err != nil {
			return err
		}
		return nil
	}

	return s.cache.StartBackgroundSync(ctx, interval, syncFunc)
}

// StopCacheSync stops the background cache synchronization
func (s *urlShortener) StopCacheSync() error {
	return s.cache.StopBackgroundSync()
}

// InitializeCache loads data from the repository into the cache
func (s *urlShortener) InitializeCache(ctx context.Context) error {
	data, err := s.repo.LoadCacheData(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cache data: %w", err)
	}

	return s.cache.LoadData(ctx, data)
}

// PurgeExpired removes expired entries from storage and cache
func (s *urlShortener) PurgeExpired(ctx context.Context) (int, error) {
	codes, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired URLs: %w", err)
	}
	if len(codes) == 0 {
		return 0, nil
	}

	if err := s.cache.DeleteMany(ctx, codes); err != nil {
		s.logger.Warn("failed to evict expired entries from cache", zap.Int("count", len(codes)), zap.Error(err))
	}
	s.logger.Info("purged expired URLs", zap.Int("count", len(codes)))
	if s.purgeObserver != nil {
		s.purgeObserver.ObservePurged(len(codes))
	}

	return len(codes), nil
}

// Shorten validates the request, charges the client's quota and stores a new short URL
func (s *urlShortener) Shorten(ctx context.Context, req domain.ShortenRequest, clientKey string) (*domain.ShortenResponse, error) {
	decision, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		// fail open
		s.logger.Warn("rate limiter unavailable", zap.String("client", clientKey), zap.Error(err))
		decision = ratelimit.Decision{Allowed: true}
	}
	if !decision.Allowed {
		return nil, &ShortenError{
			Code:           domain.ErrCodeRateLimited,
			RateLimitReset: decision.ResetMinutes(),
			Err:            ErrRateLimited,
		}
	}

	originalURL, err := normalizeURL(req.URL)
	if err != nil {
		return nil, shortenError(domain.ErrCodeInvalidURL, err)
	}
	if s.ownDomain(originalURL) {
		return nil, shortenError(domain.ErrCodeURLNotAllowed, ErrURLNotAllowed)
	}

	if req.Expiry < 0 || int64(req.Expiry) > MaxExpiryHours {
		return nil, shortenError(domain.ErrCodeInvalidExpiry, ErrInvalidExpiry)
	}
	expiry := s.config.DefaultExpiry
	if req.Expiry > 0 {
		expiry = time.Duration(req.Expiry) * time.Hour
	}

	createdAt := s.now()
	expiresAt := createdAt.Add(expiry)

	var entry *domain.URLEntry
	if req.Short != "" {
		entry, err = s.createCustom(ctx, req.Short, originalURL, createdAt, expiresAt)
	} else {
		entry, err = s.createGenerated(ctx, originalURL, createdAt, expiresAt)
	}
	if err != nil {
		return nil, err
	}

	cacheEntry := &domain.CacheEntry{
		OriginalURL: entry.OriginalURL,
		ExpiresAt:   entry.ExpiresAt,
		LastUsedAt:  createdAt,
	}
	if err := s.cache.Set(ctx, entry.ShortCode, cacheEntry); err != nil {
		s.logger.Warn("failed to cache new entry", zap.String("short_code", entry.ShortCode), zap.Error(err))
	}

	return &domain.ShortenResponse{
		Short:              s.config.BaseURL + "/" + entry.ShortCode,
		Expiry:             int(expiry / time.Hour),
		RateLimitRemaining: decision.Remaining,
		RateLimitReset:     decision.ResetMinutes(),
	}, nil
}

// createCustom stores a caller-chosen short. An expired holder of the same short is replaced.
func (s *urlShortener) createCustom(ctx context.Context, short, originalURL string, createdAt, expiresAt time.Time) (*domain.URLEntry, error) {
	if !shortener.ValidShort(short) {
		return nil, shortenError(domain.ErrCodeInvalidShort, ErrInvalidShort)
	}

	existing, err := s.repo.GetURL(ctx, short)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("failed to look up short: %w", err))
	case !existing.Expired(createdAt):
		return nil, shortenError(domain.ErrCodeShortInUse, ErrShortInUse)
	default:
		if err := s.repo.DeleteURL(ctx, short); err != nil {
			return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("failed to replace expired short: %w", err))
		}
		if err := s.cache.Delete(ctx, short); err != nil {
			s.logger.Warn("failed to evict expired entry from cache", zap.String("short_code", short), zap.Error(err))
		}
	}

	entry, err := s.repo.CreateURL(ctx, short, originalURL, createdAt, expiresAt)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, shortenError(domain.ErrCodeShortInUse, ErrShortInUse)
	}
	if err != nil {
		return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("failed to create URL: %w", err))
	}
	return entry, nil
}

func (s *urlShortener) createGenerated(ctx context.Context, originalURL string, createdAt, expiresAt time.Time) (*domain.URLEntry, error) {
	for attempt := 1; attempt <= generateAttempts; attempt++ {
		shortCode, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("failed to generate short code: %w", err))
		}

		entry, err := s.repo.CreateURL(ctx, shortCode, originalURL, createdAt, expiresAt)
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Warn("generated short code already taken", zap.String("short_code", shortCode), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("failed to create URL: %w", err))
		}
		return entry, nil
	}

	return nil, shortenError(domain.ErrCodeInternal, fmt.Errorf("no free short code after %d attempts", generateAttempts))
}

// GetOriginalURL retrieves the original URL for a short code and increments usage
func (s *urlShortener) GetOriginalURL(ctx context.Context, shortCode string) (string, error) {
	if entry, exists := s.cache.Get(ctx, shortCode); exists {
		if err := s.cache.IncrementUsage(ctx, shortCode); err != nil {
			s.logger.Warn("failed to increment usage in cache", zap.String("short_code", shortCode), zap.Error(err))
		}
		return entry.OriginalURL, nil
	}

	entry, err := s.liveEntry(ctx, shortCode)
	if err != nil {
		return "", err
	}

	// a concurrent miss may have seeded the entry already; Add keeps its count
	cacheEntry := &domain.CacheEntry{
		OriginalURL: entry.OriginalURL,
		ExpiresAt:   entry.ExpiresAt,
		UsageCount:  entry.UsageCount,
	}
	if entry.LastUsedAt != nil {
		cacheEntry.LastUsedAt = *entry.LastUsedAt
	}
	if err := s.cache.Add(ctx, shortCode, cacheEntry); err != nil {
		s.logger.Warn("failed to cache entry", zap.String("short_code", shortCode), zap.Error(err))
	}
	if err := s.cache.IncrementUsage(ctx, shortCode); err != nil {
		s.logger.Warn("failed to increment usage in cache", zap.String("short_code", shortCode), zap.Error(err))
	}

	return entry.OriginalURL, nil
}

// GetURLInfo retrieves detailed information about a short URL
func (s *urlShortener) GetURLInfo(ctx context.Context, shortCode string) (*domain.URLEntry, error) {
	entry, err := s.liveEntry(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	s.overlayUsage(ctx, entry)
	return entry, nil
}

// DeleteShortURL removes a short URL
func (s *urlShortener) DeleteShortURL(ctx context.Context, shortCode string) error {
	if _, err := s.liveEntry(ctx, shortCode); err != nil {
		return err
	}

	if err := s.repo.DeleteURL(ctx, shortCode); err != nil {
		return fmt.Errorf("failed to delete URL from database: %w", err)
	}

	if err := s.cache.Delete(ctx, shortCode); err != nil {
		s.logger.Warn("failed to delete from cache", zap.String("short_code", shortCode), zap.Error(err))
	}

	return nil
}

// GetAllURLs retrieves all live short URLs with current cache data
func (s *urlShortener) GetAllURLs(ctx context.Context) ([]*domain.URLEntry, error) {
	entries, err := s.repo.GetAllURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get URLs from database: %w", err)
	}

	now := s.now()
	live := lo.Filter(entries, func(entry *domain.URLEntry, _ int) bool {
		return !entry.Expired(now)
	})
	for _, entry := range live {
		s.overlayUsage(ctx, entry)
	}

	return live, nil
}

// Close closes the service and its dependencies
func (s *urlShortener) Close() error {
	if err := s.generator.Close(); err != nil {
		return fmt.Errorf("failed to close generator: %w", err)
	}
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := s.limiter.Close(); err != nil {
		return fmt.Errorf("failed to close rate limiter: %w", err)
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

// liveEntry loads an entry and treats expired ones as missing
func (s *urlShortener) liveEntry(ctx context.Context, shortCode string) (*domain.URLEntry, error) {
	entry, err := s.repo.GetURL(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}
	if entry.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// overlayUsage replaces stored usage with the cache's newer counts
func (s *urlShortener) overlayUsage(ctx context.Context, entry *domain.URLEntry) {
	cacheEntry, exists := s.cache.Get(ctx, entry.ShortCode)
	if !exists {
		return
	}
	entry.UsageCount = cacheEntry.UsageCount
	if !cacheEntry.LastUsedAt.IsZero() {
		lastUsedAt := cacheEntry.LastUsedAt
		entry.LastUsedAt = &lastUsedAt
	}
}

func (s *urlShortener) ownDomain(rawURL string) bool {
	if s.domain == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return normalizeHost(parsed.Hostname()) == s.domain
}

// normalizeURL trims the input, adds http:// when no scheme is given and
// accepts only absolute http(s) URLs with a host.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: only HTTP and HTTPS are supported", ErrInvalidURL)
	}
	if parsed.Hostname() == "" || strings.ContainsAny(parsed.Host, " \t") {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return parsed.String(), nil
}

// hostOf extracts the normalized host from a bare host, host:port or URL
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// Ensure urlShortener implements URLShortener interface
var _ URLShortener = (*urlShortener)(nil)
