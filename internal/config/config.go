package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abduss/pinstore/internal/bucket"
)

// Config aggregates runtime configuration for the pinstore API.
type Config struct {
	Server   ServerConfig
	State    StateConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Mirror   MirrorConfig
	Auth     AuthConfig
	Bucket   BucketConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// State backends.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
)

// StateConfig selects where the state is persisted.
type StateConfig struct {
	Backend     string
	LevelDBPath string
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// MirrorConfig controls copying objects to MinIO.
type MirrorConfig struct {
	Enabled bool
	LinkTTL time.Duration
}

// AuthConfig groups bearer token settings.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// BucketConfig describes the bucket created on first start.
type BucketConfig struct {
	Name                  string
	HashAlgorithm         string
	CompressionAlgorithms []string
	MaxTotalSize          *uint64
	MaxObjects            *uint64
	MaxObjectSize         *uint64
	MaxObjectPins         *uint64
	MaxPageSize           *uint32
	DefaultPageSize       *uint32
	InstantiateFile       string
}

// Input converts the settings into a bucket instantiation.
func (b BucketConfig) Input() bucket.InstantiateInput {
	return bucket.InstantiateInput{
		Name:                          b.Name,
		HashAlgorithm:                 b.HashAlgorithm,
		AcceptedCompressionAlgorithms: b.CompressionAlgorithms,
		Limits: bucket.Limits{
			MaxTotalSize:  b.MaxTotalSize,
			MaxObjects:    b.MaxObjects,
			MaxObjectSize: b.MaxObjectSize,
			MaxObjectPins: b.MaxObjectPins,
		},
		MaxPageSize:     b.MaxPageSize,
		DefaultPageSize: b.DefaultPageSize,
	}
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("PINSTORE_API_HOST", "0.0.0.0"),
			Port:         getInt("PINSTORE_API_PORT", 8080),
			ReadTimeout:  getDuration("PINSTORE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("PINSTORE_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("PINSTORE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		State: StateConfig{
			Backend:     strings.ToLower(getString("PINSTORE_STATE_BACKEND", BackendMemory)),
			LevelDBPath: getString("PINSTORE_LEVELDB_PATH", "data/pinstore.db"),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "pinstore_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "pinstore"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "pinstore"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "pinstore"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Mirror: MirrorConfig{
			Enabled: getBool("PINSTORE_MIRROR_ENABLED", false),
			LinkTTL: getDuration("PINSTORE_MIRROR_LINK_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			Secret:   getString("PINSTORE_JWT_SECRET", "change-me-to-a-32-byte-secret"),
			Issuer:   getString("PINSTORE_JWT_ISSUER", "pinstore"),
			TokenTTL: getDuration("PINSTORE_TOKEN_TTL", 24*time.Hour),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("PINSTORE_METRICS_PATH", "/metrics"),
		},
	}

	switch cfg.State.Backend {
	case BackendMemory, BackendLevelDB, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}

	b, err := loadBucketConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Bucket = b

	return cfg, nil
}

func loadBucketConfig() (BucketConfig, error) {
	b := BucketConfig{
		Name:            getString("PINSTORE_BUCKET_NAME", "pinstore"),
		HashAlgorithm:   getString("PINSTORE_HASH_ALGORITHM", ""),
		InstantiateFile: getString("PINSTORE_INSTANTIATE_FILE", ""),
	}
	if list := getString("PINSTORE_COMPRESSION_ALGORITHMS", ""); list != "" {
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				b.CompressionAlgorithms = append(b.CompressionAlgorithms, name)
			}
		}
	}

	var err error
	if b.MaxTotalSize, err = getSize("PINSTORE_BUCKET_MAX_TOTAL_SIZE"); err != nil {
		return BucketConfig{}, err
	}
	if b.MaxObjectSize, err = getSize("PINSTORE_BUCKET_MAX_OBJECT_SIZE"); err != nil {
		return BucketConfig{}, err
	}
	if b.MaxObjects, err = getUint64("PINSTORE_BUCKET_MAX_OBJECTS"); err != nil {
		return BucketConfig{}, err
	}
	if b.MaxObjectPins, err = getUint64("PINSTORE_BUCKET_MAX_OBJECT_PINS"); err != nil {
		return BucketConfig{}, err
	}
	if b.MaxPageSize, err = getUint32("PINSTORE_MAX_PAGE_SIZE"); err != nil {
		return BucketConfig{}, err
	}
	if b.DefaultPageSize, err = getUint32("PINSTORE_DEFAULT_PAGE_SIZE"); err != nil {
		return BucketConfig{}, err
	}
	return b, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getSize reads an optional byte size. A missing or empty variable leaves
// the limit unset; a malformed one is an error.
func getSize(key string) (*uint64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil, nil
	}
	size, err := parseSize(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &size, nil
}

func getUint64(key string) (*uint64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &parsed, nil
}

func getUint32(key string) (*uint32, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	v := uint32(parsed)
	return &v, nil
}

// parseSize accepts plain byte counts as well as humanized sizes like
// "10 MiB" or "1GB".
func parseSize(val string) (uint64, error) {
	if n, err := strconv.ParseUint(val, 10, 64); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(val)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", val, err)
	}
	return n, nil
}
