package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/repository"
)

const urlColumns = "id, short_code, original_url, created_at, expires_at, last_used_at, usage_count"

// Repository implements repository.URLRepository and repository.CounterStore using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository and brings its schema up to date
func New(databasePath string) (*Repository, error) {
	// Connection-scoped pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", databasePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// CreateURL creates a new short URL entry
func (r *Repository) CreateURL(ctx context.Context, shortCode, originalURL string, createdAt, expiresAt time.Time) (*domain.URLEntry, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO urls (short_code, original_url, created_at, expires_at) VALUES (?, ?, ?, ?)",
		shortCode, originalURL, createdAt.UTC(), expiresAt.Unix())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("failed to create URL: %w", repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	return r.GetURL(ctx, shortCode)
}

// GetURL retrieves a URL entry by its short code
func (r *Repository) GetURL(ctx context.Context, shortCode string) (*domain.URLEntry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+urlColumns+" FROM urls WHERE short_code = ?", shortCode)

	entry, err := scanURL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}

	return entry, nil
}

// GetAllURLs retrieves all URL entries ordered by creation date (desc)
func (r *Repository) GetAllURLs(ctx context.Context) ([]*domain.URLEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+urlColumns+" FROM urls ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get all URLs: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.URLEntry, 0)
	for rows.Next() {
		entry, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get all URLs: %w", err)
	}

	return entries, nil
}

// UpdateUsage updates the usage count and last used timestamp for a URL
func (r *Repository) UpdateUsage(ctx context.Context, shortCode string, usageCount int, lastUsedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE urls SET usage_count = ?, last_used_at = ? WHERE short_code = ?",
		usageCount, lastUsedAt.UTC(), shortCode)
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}
	return nil
}

// DeleteURL removes a URL entry by its short code
func (r *Repository) DeleteURL(ctx context.Context, shortCode string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM urls WHERE short_code = ?", shortCode); err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}
	return nil
}

// DeleteExpired removes every entry expired at now and returns their short codes
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "DELETE FROM urls WHERE expires_at <= ? RETURNING short_code", now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired URLs: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan short code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete expired URLs: %w", err)
	}

	return codes, nil
}

// URLExists checks if a short code exists
func (r *Repository) URLExists(ctx context.Context, shortCode string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls WHERE short_code = ?", shortCode).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check URL existence: %w", err)
	}
	return count > 0, nil
}

// LoadCacheData loads all URL data for cache initialization
func (r *Repository) LoadCacheData(ctx context.Context) (map[string]*domain.CacheEntry, error) {
	entries, err := r.GetAllURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache data: %w", err)
	}

	cache := make(map[string]*domain.CacheEntry, len(entries))
	for _, entry := range entries {
		cacheEntry := &domain.CacheEntry{
			OriginalURL: entry.OriginalURL,
			ExpiresAt:   entry.ExpiresAt,
			UsageCount:  entry.UsageCount,
		}
		if entry.LastUsedAt != nil {
			cacheEntry.LastUsedAt = *entry.LastUsedAt
		}
		cache[entry.ShortCode] = cacheEntry
	}

	return cache, nil
}

// GetCounter returns the stored value for key, 0 when it was never set
func (r *Repository) GetCounter(ctx context.Context, key string) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, "SELECT value FROM counters WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	return value, nil
}

// SetCounter stores value for key
func (r *Repository) SetCounter(ctx context.Context, key string, value int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO counters (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set counter %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanURL(row rowScanner) (*domain.URLEntry, error) {
	var (
		entry      domain.URLEntry
		expiresAt  int64
		lastUsedAt sql.NullTime
	)
	if err := row.Scan(&entry.ID, &entry.ShortCode, &entry.OriginalURL, &entry.CreatedAt, &expiresAt, &lastUsedAt, &entry.UsageCount); err != nil {
		return nil, err
	}

	entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		entry.LastUsedAt = &t
	}

	return &entry, nil
}

// Ensure Repository implements the interfaces
var (
	_ repository.URLRepository = (*Repository)(nil)
	_ repository.CounterStore  = (*Repository)(nil)
)
