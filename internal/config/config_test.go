package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, BackendMemory, cfg.State.Backend)
	assert.Equal(t, "pinstore", cfg.Bucket.Name)
	assert.Nil(t, cfg.Bucket.MaxTotalSize)
	assert.Nil(t, cfg.Bucket.MaxPageSize)
	assert.False(t, cfg.Mirror.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.PrometheusPath)
}

func TestLoadBucketFromEnv(t *testing.T) {
	t.Setenv("PINSTORE_STATE_BACKEND", "LevelDB")
	t.Setenv("PINSTORE_BUCKET_NAME", "media")
	t.Setenv("PINSTORE_BUCKET_MAX_TOTAL_SIZE", "1 GiB")
	t.Setenv("PINSTORE_BUCKET_MAX_OBJECT_SIZE", "4096")
	t.Setenv("PINSTORE_BUCKET_MAX_OBJECTS", "100")
	t.Setenv("PINSTORE_BUCKET_MAX_OBJECT_PINS", "3")
	t.Setenv("PINSTORE_MAX_PAGE_SIZE", "50")
	t.Setenv("PINSTORE_COMPRESSION_ALGORITHMS", "zstd, lz4,")
	t.Setenv("PINSTORE_TOKEN_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendLevelDB, cfg.State.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)

	in := cfg.Bucket.Input()
	assert.Equal(t, "media", in.Name)
	assert.Equal(t, []string{"zstd", "lz4"}, in.AcceptedCompressionAlgorithms)
	require.NotNil(t, in.Limits.MaxTotalSize)
	assert.Equal(t, uint64(1<<30), *in.Limits.MaxTotalSize)
	assert.Equal(t, uint64(4096), *in.Limits.MaxObjectSize)
	assert.Equal(t, uint64(100), *in.Limits.MaxObjects)
	assert.Equal(t, uint64(3), *in.Limits.MaxObjectPins)
	assert.Equal(t, uint32(50), *in.MaxPageSize)
	assert.Nil(t, in.DefaultPageSize)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PINSTORE_STATE_BACKEND", "redis"},
		{"PINSTORE_BUCKET_MAX_TOTAL_SIZE", "lots"},
		{"PINSTORE_BUCKET_MAX_OBJECTS", "-1"},
		{"PINSTORE_MAX_PAGE_SIZE", "5000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseInstantiateYAML(t *testing.T) {
	raw := []byte(`
bucket: " archive "
config:
  hash_algorithm: blake3
  accepted_compression_algorithms: [zstd, passthrough]
limits:
  max_total_size: 10 MB
  max_objects: "20"
  max_object_pins: 2
pagination:
  max_page_size: 40
  default_page_size: 20
`)
	doc, err := ParseInstantiate(raw, ".yaml")
	require.NoError(t, err)

	in := doc.Input()
	assert.Equal(t, " archive ", in.Name)
	assert.Equal(t, "blake3", in.HashAlgorithm)
	assert.Equal(t, []string{"zstd", "passthrough"}, in.AcceptedCompressionAlgorithms)
	assert.Equal(t, uint64(10_000_000), *in.Limits.MaxTotalSize)
	assert.Equal(t, uint64(20), *in.Limits.MaxObjects)
	assert.Equal(t, uint64(2), *in.Limits.MaxObjectPins)
	assert.Nil(t, in.Limits.MaxObjectSize)
	assert.Equal(t, uint32(40), *in.MaxPageSize)
	assert.Equal(t, uint32(20), *in.DefaultPageSize)
}

func TestLoadInstantiateJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bucket.jsonc")
	raw := []byte(`{
	// bucket used by the integration environment
	"bucket": "docs",
	"limits": {
		"max_object_size": "1KiB", /* humanized */
		"max_objects": 5,
	},
}`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	doc, err := LoadInstantiate(path)
	require.NoError(t, err)

	in := doc.Input()
	assert.Equal(t, "docs", in.Name)
	assert.Equal(t, uint64(1024), *in.Limits.MaxObjectSize)
	assert.Equal(t, uint64(5), *in.Limits.MaxObjects)
	assert.Nil(t, in.Limits.MaxTotalSize)
	assert.Nil(t, in.AcceptedCompressionAlgorithms)
}

func TestLoadInstantiateMissingFile(t *testing.T) {
	_, err := LoadInstantiate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
