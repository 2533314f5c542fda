package storage

import (
	"context"
	"testing"

	"github.com/abduss/pinstore/internal/config"
)

func TestMirrorEndpoint(t *testing.T) {
	cases := map[string]string{
		"localhost":       "localhost:9000",
		"minio:9100":      "minio:9100",
		"10.0.0.5":        "10.0.0.5:9000",
		"s3.internal:443": "s3.internal:443",
	}
	for in, want := range cases {
		if got := mirrorEndpoint(in); got != want {
			t.Fatalf("mirrorEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenMirrorRequiresBucket(t *testing.T) {
	if _, err := OpenMirror(context.Background(), config.MinIOConfig{Endpoint: "localhost"}); err == nil {
		t.Fatal("expected error for empty bucket name")
	}
}
