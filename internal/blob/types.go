// Package blob gives the import pipeline access to staging files regardless
// of where the staging directory lives.
package blob

import (
	"studyloader/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// Info describes staging file metadata.
	Info = core.Info
	// Store is the interface for staging backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrRootMissing reports a staging directory that does not exist.
	ErrRootMissing = core.ErrRootMissing
	// ErrInvalidKey reports a key that cannot address a staging file.
	ErrInvalidKey = core.ErrInvalidKey
)
