// Package core defines the staging storage abstraction shared by the blob
// facade and its backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem reads a staging directory on local disk.
	DriverFilesystem Driver = "fs"
	// DriverS3 reads staging files from an S3 compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory holds staging files in memory (tests).
	DriverMemory Driver = "memory"
)

// Info describes a stored staging file.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a read-mostly view of one staging area. Keys are slash separated
// paths relative to the staging root.
type Store interface {
	// Get returns the file contents. Missing keys yield an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// List returns files whose key has the prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Put writes a file, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Driver() Driver
}

var (
	// ErrNotFound is wrapped by every backend when a key does not exist.
	ErrNotFound = errors.New("blob: not found")
	// ErrRootMissing is returned when a filesystem staging root does not exist.
	ErrRootMissing = errors.New("blob: staging root does not exist")
	// ErrInvalidKey rejects empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("blob: invalid key")
)
