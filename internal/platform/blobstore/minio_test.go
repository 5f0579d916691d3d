package blobstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

func TestNewMinioBackend_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  MinioConfig
		want string
	}{
		{"no endpoint", MinioConfig{AccessKey: "a", SecretKey: "b", Bucket: "r"}, "endpoint"},
		{"no credentials", MinioConfig{Endpoint: "localhost:9000", Bucket: "r"}, "credentials"},
		{"no bucket", MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newMinioBackend(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewMinioBackend_EndpointURL(t *testing.T) {
	b, err := newMinioBackend(MinioConfig{
		Endpoint:  "https://s3.example.com",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "reports",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.client.EndpointURL().Host != "s3.example.com" {
		t.Errorf("expected host to be extracted, got %s", b.client.EndpointURL().Host)
	}
	if b.client.EndpointURL().Scheme != "https" {
		t.Errorf("expected https scheme, got %s", b.client.EndpointURL().Scheme)
	}
}

func TestClassifyMinioError(t *testing.T) {
	if classifyMinioError(nil) != nil {
		t.Error("expected nil for nil error")
	}

	notFound := classifyMinioError(minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"})
	if !errors.Is(notFound, errObjectNotFound) {
		t.Errorf("expected NoSuchKey to map to errObjectNotFound, got %v", notFound)
	}

	denied := classifyMinioError(minio.ErrorResponse{Code: "AccessDenied"})
	if errors.Is(denied, errObjectNotFound) || !strings.Contains(denied.Error(), "access denied") {
		t.Errorf("unexpected mapping for AccessDenied: %v", denied)
	}

	other := errors.New("connection refused")
	if classifyMinioError(other) != other {
		t.Error("expected unrelated errors to pass through")
	}
}

// TestMinioBlobStore_Integration exercises a live MinIO server when
// TEST_MINIO_ENDPOINT is set.
func TestMinioBlobStore_Integration(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewMinioBlobStore(ctx, MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		Bucket:    "reportd-test",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	seeded := seedBlob(t, store, "minio-session", "r.json", "application/json", `{"ok":true}`)
	if _, err := store.GetMetadata(ctx, seeded.ID); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if err := store.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetMetadata(ctx, seeded.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}
