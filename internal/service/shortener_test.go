package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/cache/mocks"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	limiterMocks "github.com/joshdurbin/shortlink/internal/ratelimit/mocks"
	"github.com/joshdurbin/shortlink/internal/repository"
	repoMocks "github.com/joshdurbin/shortlink/internal/repository/mocks"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var testConfig = Config{
	BaseURL:       "http://localhost:3000/",
	DefaultExpiry: 24 * time.Hour,
}

type testDeps struct {
	repo    *repoMocks.URLRepository
	cache   *mocks.SyncableCache
	limiter *limiterMocks.Limiter
}

func newTestShortener(generator *TestGenerator) (URLShortener, *testDeps) {
	deps := &testDeps{
		repo:    &repoMocks.URLRepository{},
		cache:   &mocks.SyncableCache{},
		limiter: &limiterMocks.Limiter{},
	}
	if generator == nil {
		generator = NewTestGenerator()
	}
	s := NewURLShortener(deps.repo, deps.cache, generator, deps.limiter, testConfig,
		WithClock(func() time.Time { return testNow }))
	return s, deps
}

func (d *testDeps) assertExpectations(t *testing.T) {
	d.repo.AssertExpectations(t)
	d.cache.AssertExpectations(t)
	d.limiter.AssertExpectations(t)
}

var allowed = ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 9, ResetIn: 30 * time.Minute}

func storedEntry(shortCode, originalURL string, expiresAt time.Time) *domain.URLEntry {
	return &domain.URLEntry{
		ID:          1,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   testNow,
		ExpiresAt:   expiresAt,
	}
}

func TestURLShortener_Shorten(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		req        domain.ShortenRequest
		generator  *TestGenerator
		setupMocks func(*testDeps)
		want       *domain.ShortenResponse
		wantCode   domain.ErrorCode
		wantErr    error
	}{
		{
			name: "generated short with default expiry",
			req:  domain.ShortenRequest{URL: "example.com"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("CreateURL", ctx, "test0001", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(storedEntry("test0001", "http://example.com", testNow.Add(24*time.Hour)), nil)
				d.cache.On("Set", ctx, "test0001", mock.MatchedBy(func(e *domain.CacheEntry) bool {
					return e.OriginalURL == "http://example.com" && e.ExpiresAt.Equal(testNow.Add(24*time.Hour)) && !e.Dirty
				})).Return(nil)
			},
			want: &domain.ShortenResponse{
				Short:              "http://localhost:3000/test0001",
				Expiry:             24,
				RateLimitRemaining: 9,
				RateLimitReset:     30,
			},
		},
		{
			name: "custom short with explicit expiry",
			req:  domain.ShortenRequest{URL: "https://example.com/path?q=1", Short: "my-link", Expiry: 2},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("GetURL", ctx, "my-link").Return(nil, repository.ErrNotFound)
				d.repo.On("CreateURL", ctx, "my-link", "https://example.com/path?q=1", testNow, testNow.Add(2*time.Hour)).
					Return(storedEntry("my-link", "https://example.com/path?q=1", testNow.Add(2*time.Hour)), nil)
				d.cache.On("Set", ctx, "my-link", mock.AnythingOfType("*domain.CacheEntry")).Return(nil)
			},
			want: &domain.ShortenResponse{
				Short:              "http://localhost:3000/my-link",
				Expiry:             2,
				RateLimitRemaining: 9,
				RateLimitReset:     30,
			},
		},
		{
			name: "rate limited",
			req:  domain.ShortenRequest{URL: "example.com"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").
					Return(ratelimit.Decision{Allowed: false, Limit: 10, ResetIn: 12*time.Minute + time.Second}, nil)
			},
			wantCode: domain.ErrCodeRateLimited,
			wantErr:  ErrRateLimited,
		},
		{
			name: "empty URL",
			req:  domain.ShortenRequest{URL: "   "},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidURL,
			wantErr:  ErrInvalidURL,
		},
		{
			name: "URL with spaces",
			req:  domain.ShortenRequest{URL: "not a url"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidURL,
			wantErr:  ErrInvalidURL,
		},
		{
			name: "unsupported scheme",
			req:  domain.ShortenRequest{URL: "ftp://example.com"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidURL,
			wantErr:  ErrInvalidURL,
		},
		{
			name: "own domain",
			req:  domain.ShortenRequest{URL: "http://www.localhost:3000/abc"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeURLNotAllowed,
			wantErr:  ErrURLNotAllowed,
		},
		{
			name: "negative expiry",
			req:  domain.ShortenRequest{URL: "example.com", Expiry: -1},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidExpiry,
			wantErr:  ErrInvalidExpiry,
		},
		{
			name: "expiry beyond representable duration",
			req:  domain.ShortenRequest{URL: "example.com", Expiry: 3000000},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidExpiry,
			wantErr:  ErrInvalidExpiry,
		},
		{
			name: "longest expiry",
			req:  domain.ShortenRequest{URL: "example.com", Short: "forever", Expiry: int(MaxExpiryHours)},
			setupMocks: func(d *testDeps) {
				expiresAt := testNow.Add(time.Duration(MaxExpiryHours) * time.Hour)
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("GetURL", ctx, "forever").Return(nil, repository.ErrNotFound)
				d.repo.On("CreateURL", ctx, "forever", "http://example.com", testNow, expiresAt).
					Return(storedEntry("forever", "http://example.com", expiresAt), nil)
				d.cache.On("Set", ctx, "forever", mock.AnythingOfType("*domain.CacheEntry")).Return(nil)
			},
			want: &domain.ShortenResponse{
				Short:              "http://localhost:3000/forever",
				Expiry:             int(MaxExpiryHours),
				RateLimitRemaining: 9,
				RateLimitReset:     30,
			},
		},
		{
			name: "invalid custom short",
			req:  domain.ShortenRequest{URL: "example.com", Short: "bad short!"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
			},
			wantCode: domain.ErrCodeInvalidShort,
			wantErr:  ErrInvalidShort,
		},
		{
			name: "custom short held by a live entry",
			req:  domain.ShortenRequest{URL: "example.com", Short: "taken"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("GetURL", ctx, "taken").Return(storedEntry("taken", "https://other.com", testNow.Add(time.Hour)), nil)
			},
			wantCode: domain.ErrCodeShortInUse,
			wantErr:  ErrShortInUse,
		},
		{
			name: "custom short held by an expired entry is replaced",
			req:  domain.ShortenRequest{URL: "example.com", Short: "stale", Expiry: 1},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("GetURL", ctx, "stale").Return(storedEntry("stale", "https://other.com", testNow), nil)
				d.repo.On("DeleteURL", ctx, "stale").Return(nil)
				d.cache.On("Delete", ctx, "stale").Return(nil)
				d.repo.On("CreateURL", ctx, "stale", "http://example.com", testNow, testNow.Add(time.Hour)).
					Return(storedEntry("stale", "http://example.com", testNow.Add(time.Hour)), nil)
				d.cache.On("Set", ctx, "stale", mock.AnythingOfType("*domain.CacheEntry")).Return(nil)
			},
			want: &domain.ShortenResponse{
				Short:              "http://localhost:3000/stale",
				Expiry:             1,
				RateLimitRemaining: 9,
				RateLimitReset:     30,
			},
		},
		{
			name: "custom short taken concurrently",
			req:  domain.ShortenRequest{URL: "example.com", Short: "race"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("GetURL", ctx, "race").Return(nil, repository.ErrNotFound)
				d.repo.On("CreateURL", ctx, "race", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(nil, repository.ErrDuplicate)
			},
			wantCode: domain.ErrCodeShortInUse,
			wantErr:  ErrShortInUse,
		},
		{
			name:      "generated code collision is retried",
			req:       domain.ShortenRequest{URL: "example.com"},
			generator: NewTestGenerator("clash"),
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("CreateURL", ctx, "clash", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(nil, repository.ErrDuplicate)
				d.repo.On("CreateURL", ctx, "test0001", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(storedEntry("test0001", "http://example.com", testNow.Add(24*time.Hour)), nil)
				d.cache.On("Set", ctx, "test0001", mock.AnythingOfType("*domain.CacheEntry")).Return(nil)
			},
			want: &domain.ShortenResponse{
				Short:              "http://localhost:3000/test0001",
				Expiry:             24,
				RateLimitRemaining: 9,
				RateLimitReset:     30,
			},
		},
		{
			name: "repository error",
			req:  domain.ShortenRequest{URL: "example.com"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(allowed, nil)
				d.repo.On("CreateURL", ctx, "test0001", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(nil, assert.AnError)
			},
			wantCode: domain.ErrCodeInternal,
			wantErr:  assert.AnError,
		},
		{
			name: "limiter failure fails open",
			req:  domain.ShortenRequest{URL: "example.com"},
			setupMocks: func(d *testDeps) {
				d.limiter.On("Allow", ctx, "1.2.3.4").Return(ratelimit.Decision{}, errors.New("redis down"))
				d.repo.On("CreateURL", ctx, "test0001", "http://example.com", testNow, testNow.Add(24*time.Hour)).
					Return(storedEntry("test0001", "http://example.com", testNow.Add(24*time.Hour)), nil)
				d.cache.On("Set", ctx, "test0001", mock.AnythingOfType("*domain.CacheEntry")).Return(assert.AnError)
			},
			want: &domain.ShortenResponse{
				Short:  "http://localhost:3000/test0001",
				Expiry: 24,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestShortener(tt.generator)
			tt.setupMocks(deps)

			result, err := s.Shorten(ctx, tt.req, "1.2.3.4")

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Nil(t, result)

				var shortenErr *ShortenError
				require.ErrorAs(t, err, &shortenErr)
				assert.Equal(t, tt.wantCode, shortenErr.Code)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}

			deps.assertExpectations(t)
		})
	}
}

func TestURLShortener_Shorten_RateLimitReset(t *testing.T) {
	ctx := context.Background()
	s, deps := newTestShortener(nil)
	deps.limiter.On("Allow", ctx, "1.2.3.4").
		Return(ratelimit.Decision{Allowed: false, ResetIn: 12*time.Minute + time.Second}, nil)

	_, err := s.Shorten(ctx, domain.ShortenRequest{URL: "example.com"}, "1.2.3.4")

	var shortenErr *ShortenError
	require.ErrorAs(t, err, &shortenErr)
	assert.Equal(t, 13, shortenErr.RateLimitReset)
	assert.Equal(t, domain.ShortenErrorResponse{
		Error:          "Rate limit exceeded",
		Code:           domain.ErrCodeRateLimited,
		RateLimitReset: 13,
	}, shortenErr.Response())
}

func TestURLShortener_GetOriginalURL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		shortCode  string
		setupMocks func(*testDeps)
		wantURL    string
		wantErr    error
	}{
		{
			name:      "found in cache",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.cache.On("Get", ctx, "abc123").
					Return(&domain.CacheEntry{OriginalURL: "https://example.com", UsageCount: 1}, true)
				d.cache.On("IncrementUsage", ctx, "abc123").Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name:      "not in cache, found in database",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.cache.On("Get", ctx, "abc123").Return(nil, false)
				d.repo.On("GetURL", ctx, "abc123").
					Return(storedEntry("abc123", "https://example.com", testNow.Add(time.Hour)), nil)
				d.cache.On("Add", ctx, "abc123", mock.MatchedBy(func(e *domain.CacheEntry) bool {
					return e.OriginalURL == "https://example.com" && e.UsageCount == 0 && !e.Dirty
				})).Return(nil)
				d.cache.On("IncrementUsage", ctx, "abc123").Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name:      "expired in database",
			shortCode: "old",
			setupMocks: func(d *testDeps) {
				d.cache.On("Get", ctx, "old").Return(nil, false)
				d.repo.On("GetURL", ctx, "old").
					Return(storedEntry("old", "https://example.com", testNow.Add(-time.Minute)), nil)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "not found anywhere",
			shortCode: "notfound",
			setupMocks: func(d *testDeps) {
				d.cache.On("Get", ctx, "notfound").Return(nil, false)
				d.repo.On("GetURL", ctx, "notfound").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "repository error",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.cache.On("Get", ctx, "abc123").Return(nil, false)
				d.repo.On("GetURL", ctx, "abc123").Return(nil, assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestShortener(nil)
			tt.setupMocks(deps)

			result, err := s.GetOriginalURL(ctx, tt.shortCode)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, result)
			}

			deps.assertExpectations(t)
		})
	}
}

func TestURLShortener_GetOriginalURL_ConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.URLRepository{}
	repo.On("GetURL", mock.Anything, "hot").
		Return(storedEntry("hot", "https://example.com", testNow.Add(time.Hour)), nil)

	store := memory.New(memory.WithClock(func() time.Time { return testNow }))
	s := NewURLShortener(repo, store, NewTestGenerator(), &limiterMocks.Limiter{}, testConfig,
		WithClock(func() time.Time { return testNow }))

	const redirects = 20
	var wg sync.WaitGroup
	for i := 0; i < redirects; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := s.GetOriginalURL(ctx, "hot")
			assert.NoError(t, err)
			assert.Equal(t, "https://example.com", url)
		}()
	}
	wg.Wait()

	entry, ok := store.Get(ctx, "hot")
	require.True(t, ok)
	assert.Equal(t, redirects, entry.UsageCount)
	assert.True(t, entry.Dirty)
}

func TestURLShortener_DeleteShortURL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		shortCode   string
		setupMocks  func(*testDeps)
		wantErr     error
		errContains string
	}{
		{
			name:      "successful deletion",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.repo.On("GetURL", ctx, "abc123").Return(storedEntry("abc123", "https://example.com", testNow.Add(time.Hour)), nil)
				d.repo.On("DeleteURL", ctx, "abc123").Return(nil)
				d.cache.On("Delete", ctx, "abc123").Return(nil)
			},
		},
		{
			name:      "cache failure is tolerated",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.repo.On("GetURL", ctx, "abc123").Return(storedEntry("abc123", "https://example.com", testNow.Add(time.Hour)), nil)
				d.repo.On("DeleteURL", ctx, "abc123").Return(nil)
				d.cache.On("Delete", ctx, "abc123").Return(assert.AnError)
			},
		},
		{
			name:      "not found",
			shortCode: "missing",
			setupMocks: func(d *testDeps) {
				d.repo.On("GetURL", ctx, "missing").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "expired counts as not found",
			shortCode: "old",
			setupMocks: func(d *testDeps) {
				d.repo.On("GetURL", ctx, "old").Return(storedEntry("old", "https://example.com", testNow), nil)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "database delete error",
			shortCode: "abc123",
			setupMocks: func(d *testDeps) {
				d.repo.On("GetURL", ctx, "abc123").Return(storedEntry("abc123", "https://example.com", testNow.Add(time.Hour)), nil)
				d.repo.On("DeleteURL", ctx, "abc123").Return(assert.AnError)
			},
			wantErr:     assert.AnError,
			errContains: "failed to delete URL from database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestShortener(nil)
			tt.setupMocks(deps)

			err := s.DeleteShortURL(ctx, tt.shortCode)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}

			deps.assertExpectations(t)
		})
	}
}

func TestURLShortener_GetURLInfo(t *testing.T) {
	ctx := context.Background()
	lastUsed := testNow.Add(-time.Minute)

	t.Run("overlays cache usage", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("GetURL", ctx, "abc123").Return(storedEntry("abc123", "https://example.com", testNow.Add(time.Hour)), nil)
		deps.cache.On("Get", ctx, "abc123").Return(&domain.CacheEntry{OriginalURL: "https://example.com", UsageCount: 5, LastUsedAt: lastUsed}, true)

		entry, err := s.GetURLInfo(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, 5, entry.UsageCount)
		require.NotNil(t, entry.LastUsedAt)
		assert.Equal(t, lastUsed, *entry.LastUsedAt)
		deps.assertExpectations(t)
	})

	t.Run("cache miss keeps stored usage", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		stored := storedEntry("abc123", "https://example.com", testNow.Add(time.Hour))
		stored.UsageCount = 2
		deps.repo.On("GetURL", ctx, "abc123").Return(stored, nil)
		deps.cache.On("Get", ctx, "abc123").Return(nil, false)

		entry, err := s.GetURLInfo(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, 2, entry.UsageCount)
		assert.Nil(t, entry.LastUsedAt)
		deps.assertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("GetURL", ctx, "missing").Return(nil, repository.ErrNotFound)

		entry, err := s.GetURLInfo(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, entry)
		deps.assertExpectations(t)
	})
}

func TestURLShortener_GetAllURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("filters expired entries and overlays cache data", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("GetAllURLs", ctx).Return([]*domain.URLEntry{
			storedEntry("live1", "https://one.com", testNow.Add(time.Hour)),
			storedEntry("dead", "https://dead.com", testNow.Add(-time.Hour)),
			storedEntry("live2", "https://two.com", testNow.Add(2*time.Hour)),
		}, nil)
		deps.cache.On("Get", ctx, "live1").Return(&domain.CacheEntry{UsageCount: 7, LastUsedAt: testNow}, true)
		deps.cache.On("Get", ctx, "live2").Return(nil, false)

		entries, err := s.GetAllURLs(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "live1", entries[0].ShortCode)
		assert.Equal(t, 7, entries[0].UsageCount)
		assert.Equal(t, "live2", entries[1].ShortCode)
		deps.assertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("GetAllURLs", ctx).Return(nil, assert.AnError)

		entries, err := s.GetAllURLs(ctx)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, entries)
	})
}

func TestURLShortener_PurgeExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("evicts purged codes from cache", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("DeleteExpired", ctx, testNow).Return([]string{"a", "b"}, nil)
		deps.cache.On("DeleteMany", ctx, []string{"a", "b"}).Return(nil)

		n, err := s.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		deps.assertExpectations(t)
	})

	t.Run("nothing expired", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("DeleteExpired", ctx, testNow).Return([]string(nil), nil)

		n, err := s.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		deps.assertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("DeleteExpired", ctx, testNow).Return(nil, assert.AnError)

		_, err := s.PurgeExpired(ctx)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestURLShortener_CacheOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("InitializeCache", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		data := map[string]*domain.CacheEntry{"abc123": {OriginalURL: "https://example.com"}}
		deps.repo.On("LoadCacheData", ctx).Return(data, nil)
		deps.cache.On("LoadData", ctx, data).Return(nil)

		assert.NoError(t, s.InitializeCache(ctx))
		deps.assertExpectations(t)
	})

	t.Run("InitializeCache repository error", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.repo.On("LoadCacheData", ctx).Return(nil, assert.AnError)

		err := s.InitializeCache(ctx)
		assert.ErrorContains(t, err, "failed to load cache data")
	})

	t.Run("StartCacheSync writes back usage and purges", func(t *testing.T) {
		s, deps := newTestShortener(nil)

		var syncFunc cache.SyncFunc
		deps.cache.On("StartBackgroundSync", ctx, time.Minute, mock.AnythingOfType("cache.SyncFunc")).
			Run(func(args mock.Arguments) {
				syncFunc = args.Get(2).(cache.SyncFunc)
			}).
			Return(nil)

		require.NoError(t, s.StartCacheSync(ctx, time.Minute))
		require.NotNil(t, syncFunc)

		deps.repo.On("UpdateUsage", ctx, "abc123", 4, testNow).Return(nil)
		deps.repo.On("DeleteExpired", ctx, testNow).Return([]string(nil), nil)

		err := syncFunc(ctx, map[string]*domain.CacheEntry{
			"abc123": {OriginalURL: "https://example.com", UsageCount: 4, LastUsedAt: testNow, Dirty: true},
		})
		require.NoError(t, err)
		deps.assertExpectations(t)
	})

	t.Run("sync stops at the first write-back failure", func(t *testing.T) {
		s, deps := newTestShortener(nil)

		var syncFunc cache.SyncFunc
		deps.cache.On("StartBackgroundSync", ctx, time.Minute, mock.AnythingOfType("cache.SyncFunc")).
			Run(func(args mock.Arguments) {
				syncFunc = args.Get(2).(cache.SyncFunc)
			}).
			Return(nil)
		require.NoError(t, s.StartCacheSync(ctx, time.Minute))

		deps.repo.On("UpdateUsage", ctx, "abc123", 1, testNow).Return(assert.AnError)

		err := syncFunc(ctx, map[string]*domain.CacheEntry{
			"abc123": {UsageCount: 1, LastUsedAt: testNow, Dirty: true},
		})
		assert.ErrorContains(t, err, "failed to sync entry abc123")
		deps.repo.AssertNotCalled(t, "DeleteExpired", mock.Anything, mock.Anything)
	})

	t.Run("StopCacheSync", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.cache.On("StopBackgroundSync").Return(nil)

		assert.NoError(t, s.StopCacheSync())
		deps.assertExpectations(t)
	})
}

func TestURLShortener_Close(t *testing.T) {
	t.Run("closes every dependency", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.cache.On("Close").Return(nil)
		deps.limiter.On("Close").Return(nil)
		deps.repo.On("Close").Return(nil)

		assert.NoError(t, s.Close())
		deps.assertExpectations(t)
	})

	t.Run("cache close error stops the chain", func(t *testing.T) {
		s, deps := newTestShortener(nil)
		deps.cache.On("Close").Return(assert.AnError)

		err := s.Close()
		assert.ErrorContains(t, err, "failed to close cache")
		deps.repo.AssertNotCalled(t, "Close")
	})
}

func TestShortenError(t *testing.T) {
	err := shortenError(domain.ErrCodeShortInUse, ErrShortInUse)
	assert.Equal(t, "URL custom short is already in use: custom short already in use", err.Error())
	assert.ErrorIs(t, err, ErrShortInUse)
	assert.Equal(t, domain.ShortenErrorResponse{
		Error: "URL custom short is already in use",
		Code:  domain.ErrCodeShortInUse,
	}, err.Response())

	bare := &ShortenError{Code: domain.ErrCodeInvalidURL}
	assert.Equal(t, "Invalid URL", bare.Error())
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "example.com", want: "http://example.com"},
		{raw: "  https://example.com/a?b=c  ", want: "https://example.com/a?b=c"},
		{raw: "localhost:3000/x", want: "http://localhost:3000/x"},
		{raw: "", wantErr: true},
		{raw: "http://", wantErr: true},
		{raw: "mailto://someone", wantErr: true},
		{raw: "exa mple.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalizeURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "localhost", hostOf("localhost"))
	assert.Equal(t, "localhost", hostOf("localhost:3000"))
	assert.Equal(t, "short.ly", hostOf("https://www.Short.ly/path"))
	assert.Equal(t, "", hostOf(""))
}

type countingObserver struct {
	total int
}

func (c *countingObserver) ObservePurged(n int) {
	c.total += n
}

func TestURLShortener_PurgeObserver(t *testing.T) {
	ctx := context.Background()
	observer := &countingObserver{}

	repo := &repoMocks.URLRepository{}
	syncCache := &mocks.SyncableCache{}
	s := NewURLShortener(repo, syncCache, NewTestGenerator(), &limiterMocks.Limiter{}, testConfig,
		WithClock(func() time.Time { return testNow }),
		WithPurgeObserver(observer))

	repo.On("DeleteExpired", ctx, testNow).Return([]string{"a", "b", "c"}, nil)
	syncCache.On("DeleteMany", ctx, []string{"a", "b", "c"}).Return(nil)

	_, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, observer.total)
}
