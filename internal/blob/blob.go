// Package blob stores recipe images in a key-addressed blob store.
//
// Two backends are provided: a local directory (FSStorage) and an
// S3-compatible bucket (S3Storage). Blob writes are not transactional with
// the relational store; callers compensate on failure.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage is a key-addressed blob store.
type Storage interface {
	// Put stores data under key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get opens the blob under key. A missing blob yields apperr.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob under key. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key under prefix, partitioned by date, ending in ext.
func NewKey(prefix, ext string) string {
	d := time.Now().UTC()
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return path.Join(prefix, fmt.Sprintf("%04d/%02d/%02d", d.Year(), d.Month(), d.Day()), uuid.NewString()+"."+ext)
}

// validKey rejects empty, absolute and parent-escaping keys.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
