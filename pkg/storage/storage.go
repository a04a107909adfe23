package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored object
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// PresignedURL is a time-limited download link
type PresignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectStore is the object storage used for payout receipts
type ObjectStore interface {
	// Put writes the object, replacing any previous version under key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)

	// Get opens the object for reading. Callers close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// PresignGet returns a download link valid for expiresIn.
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (*PresignedURL, error)
}
