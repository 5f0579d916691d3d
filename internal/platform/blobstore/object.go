package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// errObjectNotFound is returned by an objectBackend for a missing key.
var errObjectNotFound = errors.New("object not found")

// objectBackend is a flat key/value object store. Keys use forward slashes.
type objectBackend interface {
	put(ctx context.Context, key string, data []byte, contentType string) error
	get(ctx context.Context, key string) ([]byte, error)
	remove(ctx context.Context, key string) error
	list(ctx context.Context, prefix string) ([]string, error)
}

const (
	contentPrefix  = "blobs/"
	metadataPrefix = "meta/"
)

func contentKey(id string) string  { return contentPrefix + id }
func metadataKey(id string) string { return metadataPrefix + id + ".json" }

// objectBlobStore implements BlobStore on top of an objectBackend. Content
// lives under blobs/<id> and metadata as JSON under meta/<id>.json.
type objectBlobStore struct {
	backend objectBackend
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

func (s *objectBlobStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	meta, data, err := prepare(meta, content)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.backend.put(ctx, contentKey(meta.ID), data, meta.ContentType); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	if err := s.backend.put(ctx, metadataKey(meta.ID), raw, "application/json"); err != nil {
		_ = s.backend.remove(ctx, contentKey(meta.ID))
		return nil, fmt.Errorf("store metadata: %w", err)
	}
	return &meta, nil
}

func (s *objectBlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.backend.get(ctx, contentKey(id))
	if err != nil {
		if errors.Is(err, errObjectNotFound) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("read content: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), meta, nil
}

func (s *objectBlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	if err := s.backend.remove(ctx, contentKey(id)); err != nil && !errors.Is(err, errObjectNotFound) {
		return fmt.Errorf("remove content: %w", err)
	}
	if err := s.backend.remove(ctx, metadataKey(id)); err != nil && !errors.Is(err, errObjectNotFound) {
		return fmt.Errorf("remove metadata: %w", err)
	}
	return nil
}

func (s *objectBlobStore) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	if !validID(id) {
		return nil, ErrBlobNotFound
	}
	raw, err := s.backend.get(ctx, metadataKey(id))
	if err != nil {
		if errors.Is(err, errObjectNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta BlobMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", id, err)
	}
	return &meta, nil
}

func (s *objectBlobStore) Search(ctx context.Context, params SearchParams) ([]*BlobMetadata, int, error) {
	keys, err := s.backend.list(ctx, metadataPrefix)
	if err != nil {
		return nil, 0, fmt.Errorf("list metadata: %w", err)
	}

	all := make([]*BlobMetadata, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(path.Base(key), ".json")
		meta, err := s.GetMetadata(ctx, id)
		if errors.Is(err, ErrBlobNotFound) {
			// Deleted between list and read.
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		all = append(all, meta)
	}
	return searchPage(all, params)
}
