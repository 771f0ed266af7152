package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// BackendConfig holds settings for the external archive backend RPC endpoint.
type BackendConfig struct {
	URL string
	// Timeout bounds a single RPC call. Zero means no client-imposed timeout.
	Timeout time.Duration
	// MaxReplyBytes caps one reply body. It defaults to a page of full-size inline
	// documents, and never less than 64 MiB.
	MaxReplyBytes int64
}

// CacheConfig controls the query cache in front of the backend.
type CacheConfig struct {
	// Store selects the cache store: "memory" or "redis".
	Store string
	// StaleAfter is how long a cached query result is served before re-fetching.
	StaleAfter time.Duration
}

// RedisConfig holds connection settings for the shared cache store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MinIOConfig holds object storage settings for MinIO.
// An empty Endpoint keeps uploads in inline data URI mode.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RoleCheckConfig tunes the role gate.
type RoleCheckConfig struct {
	Timeout    time.Duration
	Retries    int
	StaleAfter time.Duration
	// IdleAfter drops a caller's gate after this long without requests. Zero uses StaleAfter.
	IdleAfter time.Duration
	MaxGates  int
}

// UploadConfig bounds document uploads.
type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env         string
	AppHost     string
	Port        string
	Location    *time.Location
	PageSize    int
	MetricsMode string
	Backend     BackendConfig
	Cache       CacheConfig
	Redis       RedisConfig
	MinIO       MinIOConfig
	RoleCheck   RoleCheckConfig
	Upload      UploadConfig
}

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	MetricsModeBackend = "backend"
	MetricsModeDerived = "derived"

	CacheStoreMemory = "memory"
	CacheStoreRedis  = "redis"

	defaultPageSize     = 20
	defaultMaxUpload    = 25 << 20
	defaultAllowedTypes = "application/pdf,image/png,image/jpeg"
	defaultMaxGates     = 10000
	minReplyBytes       = 64 << 20
)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	cfg := &AppConfig{
		Env:         getEnv("APP_ENV", EnvLocal),
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		Location:    getEnvLocation("APP_TIMEZONE", time.UTC),
		PageSize:    getEnvInt("PAGE_SIZE", defaultPageSize),
		MetricsMode: getEnv("METRICS_MODE", MetricsModeBackend),
		Backend: BackendConfig{
			URL:           getEnv("BACKEND_URL", "http://localhost:4943"),
			Timeout:       getEnvDuration("BACKEND_TIMEOUT", 0),
			MaxReplyBytes: getEnvInt64("BACKEND_MAX_REPLY_BYTES", 0),
		},
		Cache: CacheConfig{
			Store:      getEnv("CACHE_STORE", CacheStoreMemory),
			StaleAfter: getEnvDuration("CACHE_STALE_AFTER", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		RoleCheck: RoleCheckConfig{
			Timeout:    getEnvDuration("ROLE_CHECK_TIMEOUT", 15*time.Second),
			Retries:    getEnvInt("ROLE_CHECK_RETRIES", 2),
			StaleAfter: getEnvDuration("ROLE_CHECK_STALE_AFTER", 5*time.Minute),
			IdleAfter:  getEnvDuration("ROLE_CHECK_IDLE_AFTER", 0),
			MaxGates:   getEnvInt("ROLE_CHECK_MAX_GATES", defaultMaxGates),
		},
		Upload: UploadConfig{
			MaxBytes:     getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUpload),
			AllowedTypes: getEnvList("UPLOAD_ALLOWED_TYPES", defaultAllowedTypes),
		},
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = defaultMaxUpload
	}
	if cfg.RoleCheck.Retries < 0 {
		cfg.RoleCheck.Retries = 0
	}
	if cfg.Backend.MaxReplyBytes <= 0 {
		cfg.Backend.MaxReplyBytes = defaultReplyBytes(cfg.Upload.MaxBytes, cfg.PageSize)
	}
	return cfg
}

// defaultReplyBytes sizes the reply cap for pageSize documents stored inline: base64
// grows content by 4/3, plus room for the metadata of each record.
func defaultReplyBytes(maxUpload int64, pageSize int) int64 {
	perDoc := maxUpload/3*4 + 4 + 4<<10
	return max(minReplyBytes, perDoc*int64(pageSize))
}

// ObjectStoreEnabled reports whether uploads should go to MinIO instead of inline data URIs.
func (c *AppConfig) ObjectStoreEnabled() bool {
	return c.MinIO.Endpoint != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("15s", "5m").
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key, def string) []string {
	parts := strings.Split(getEnv(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvLocation(key string, def *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		loc, err := time.LoadLocation(v)
		if err == nil {
			return loc
		}
	}
	return def
}
