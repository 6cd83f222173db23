package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joshdurbin/shortlink/internal/ratelimit"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

// EnvPrefix prefixes every environment override, e.g. SHORTLINK_SERVER_URL
const EnvPrefix = "SHORTLINK"

// Limiter backends
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

// Keys shared by flags, environment and config file
const (
	KeyPort            = "port"
	KeyServerURL       = "server-url"
	KeyDomain          = "domain"
	KeyDefaultExpiry   = "default-expiry"
	KeyTrustProxy      = "trust-proxy"
	KeyCORSOrigins     = "cors-origins"
	KeyDBPath          = "db-path"
	KeySyncInterval    = "sync-interval"
	KeyVerbose         = "verbose"
	KeyCounterStep     = "counter-step"
	KeyLimiter         = "limiter"
	KeyRateLimitQuota  = "rate-limit-quota"
	KeyRateLimitWindow = "rate-limit-window"
	KeyRedisAddr       = "redis-addr"
	KeyRedisPassword   = "redis-password"
	KeyRedisDB         = "redis-db"
	KeyTimeout         = "timeout"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Shortener shortener.Config
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string
	ServerURL     string
	Domain        string
	DefaultExpiry time.Duration
	TrustProxy    bool
	CORSOrigins   []string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	SyncInterval time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Verbose bool
}

// RateLimitConfig selects and configures the shorten quota store
type RateLimitConfig struct {
	Backend string
	ratelimit.Config
	Redis RedisConfig
}

// RedisConfig addresses the redis limiter backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClientConfig holds the settings of the client commands
type ClientConfig struct {
	ServerURL string
	Timeout   time.Duration
	Verbose   bool
}

// NewViper returns a viper instance reading SHORTLINK_* variables, with
// dashes in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindServerFlags registers the server flags and binds them to v
func BindServerFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	rl := ratelimit.DefaultConfig()

	fs.StringP(KeyPort, "p", "8080", "Server port")
	fs.String(KeyServerURL, "http://localhost:8080", "Public base URL prefixed to every short")
	fs.String(KeyDomain, "", "Own domain refused as a shorten target (defaults to the server URL host)")
	fs.Duration(KeyDefaultExpiry, 24*time.Hour, "Expiry applied when a request leaves it at 0")
	fs.Bool(KeyTrustProxy, false, "Take the client address from X-Forwarded-For / X-Real-IP")
	fs.StringSlice(KeyCORSOrigins, nil, "Browser origins allowed to call the API (* for any)")
	fs.String(KeyDBPath, "urls.db", "Database file path")
	fs.Duration(KeySyncInterval, 5*time.Second, "Cache sync and expiry purge interval")
	fs.Int64(KeyCounterStep, shortener.DefaultConfig().CounterStep, "Counter block reserved per database write")
	fs.String(KeyLimiter, LimiterMemory, "Rate limiter backend (memory or redis)")
	fs.Int(KeyRateLimitQuota, rl.Quota, "Shorten requests allowed per client per window")
	fs.Duration(KeyRateLimitWindow, rl.Window, "Rate limit window")
	fs.String(KeyRedisAddr, "localhost:6379", "Redis address for the redis limiter")
	fs.String(KeyRedisPassword, "", "Redis password")
	fs.Int(KeyRedisDB, 0, "Redis database number")
	fs.BoolP(KeyVerbose, "v", false, "Enable verbose logging (HTTP error bodies and debug details)")

	return v.BindPFlags(fs)
}

// BindClientFlags registers the client flags on a persistent flag set and binds them to v
func BindClientFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.StringP(KeyServerURL, "u", "http://localhost:8080", "Server URL")
	fs.Duration(KeyTimeout, 10*time.Second, "Request timeout")
	fs.BoolP(KeyVerbose, "v", false, "Enable verbose logging")

	return v.BindPFlags(fs)
}

// Load reads the server configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          v.GetString(KeyPort),
			ServerURL:     v.GetString(KeyServerURL),
			Domain:        v.GetString(KeyDomain),
			DefaultExpiry: v.GetDuration(KeyDefaultExpiry),
			TrustProxy:    v.GetBool(KeyTrustProxy),
			CORSOrigins: lo.Compact(lo.Map(v.GetStringSlice(KeyCORSOrigins), func(o string, _ int) string {
				return strings.TrimSpace(o)
			})),
		},
		Database: DatabaseConfig{
			Path: v.GetString(KeyDBPath),
		},
		Cache: CacheConfig{
			SyncInterval: v.GetDuration(KeySyncInterval),
		},
		Logging: LoggingConfig{
			Verbose: v.GetBool(KeyVerbose),
		},
		Shortener: shortener.Config{
			CounterStep: v.GetInt64(KeyCounterStep),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(v.GetString(KeyLimiter)),
			Config: ratelimit.Config{
				Quota:  v.GetInt(KeyRateLimitQuota),
				Window: v.GetDuration(KeyRateLimitWindow),
			},
			Redis: RedisConfig{
				Addr:     v.GetString(KeyRedisAddr),
				Password: v.GetString(KeyRedisPassword),
				DB:       v.GetInt(KeyRedisDB),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the client configuration from v
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	cfg := &ClientConfig{
		ServerURL: v.GetString(KeyServerURL),
		Timeout:   v.GetDuration(KeyTimeout),
		Verbose:   v.GetBool(KeyVerbose),
	}

	if err := validateURL(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration: timeout must be positive, got: %v", cfg.Timeout)
	}

	return cfg, nil
}

// validate validates the configuration values
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if err := validateURL(c.Server.ServerURL); err != nil {
		return err
	}

	if c.Server.DefaultExpiry <= 0 {
		return fmt.Errorf("default expiry must be positive, got: %v", c.Server.DefaultExpiry)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.Cache.SyncInterval <= 0 {
		return fmt.Errorf("cache sync interval must be positive, got: %v", c.Cache.SyncInterval)
	}

	if c.Shortener.CounterStep <= 0 {
		return fmt.Errorf("counter step must be positive, got: %d", c.Shortener.CounterStep)
	}

	if c.RateLimit.Quota <= 0 {
		return fmt.Errorf("rate limit quota must be positive, got: %d", c.RateLimit.Quota)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got: %v", c.RateLimit.Window)
	}

	switch c.RateLimit.Backend {
	case LimiterMemory:
	case LimiterRedis:
		if c.RateLimit.Redis.Addr == "" {
			return fmt.Errorf("redis address cannot be empty with the redis limiter")
		}
	default:
		return fmt.Errorf("unknown limiter backend: %q", c.RateLimit.Backend)
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL must be an absolute http(s) URL, got: %q", raw)
	}
	return nil
}
