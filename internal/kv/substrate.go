// Package kv provides the string-keyed text substrate the history store
// persists into.
//
// The contract mirrors a browser's profile-scoped storage: Get, Set and
// Remove on whole string values, synchronous, no transactions across keys
// and no cross-process locking. Three drivers are available:
//
//   - memory: process memory, for tests and throwaway sessions
//   - sqlite: a single-table SQLite database (WAL mode)
//   - file:   one file per key under a directory, watchable with fsnotify
//
// Drivers may enforce a byte quota (key plus value lengths, summed over all
// entries) and fail Set with ErrQuotaExceeded once it would be exceeded.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// Driver identifies a substrate implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverFile   Driver = "file"
)

var (
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// configured byte quota. Nothing is written.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")

	// ErrInvalidKey is returned for keys a driver cannot store.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Substrate is a synchronous string-keyed text store.
type Substrate interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Driver reports the implementation.
	Driver() Driver
	// Close releases underlying resources.
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver     Driver
	Path       string // sqlite database file or file-driver directory
	QuotaBytes int64  // 0 means unlimited; ignored by the file driver
}

// Open constructs the substrate described by opts.
func Open(opts Options) (Substrate, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(opts.QuotaBytes), nil
	case DriverSQLite:
		return OpenSQLite(opts.Path, opts.QuotaBytes)
	case DriverFile:
		return OpenFile(opts.Path)
	default:
		return nil, fmt.Errorf("unknown kv driver %q", opts.Driver)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
