// Package transfer moves files between paths. A move is a rename when source
// and destination share a filesystem and a verified copy followed by removal
// of the source when they do not.
package transfer

import (
	"errors"
	"time"
)

// Common errors returned by transfer operations
var (
	// ErrSourceNotFound is returned when the source file doesn't exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrDestinationExists is returned when the destination is already taken.
	// Transfers never overwrite.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDestinationNotWritable is returned when the destination is not writable
	ErrDestinationNotWritable = errors.New("destination not writable")

	// ErrSizeMismatch is returned when a cross-device copy is incomplete
	ErrSizeMismatch = errors.New("size mismatch after copy")
)

// TransferOptions configures the behavior of a file transfer operation.
type TransferOptions struct {
	// Progress is called during cross-device copies with bytes copied so far
	// and the total size.
	Progress func(current, total int64)
}

// TransferResult contains details about a completed transfer operation.
type TransferResult struct {
	BytesTotal    int64
	BytesCopied   int64
	Duration      time.Duration
	Renamed       bool // true when a plain rename was enough
	SourceRemoved bool
}

// Transferer is the interface for file transfer implementations.
// Implementations must be safe for concurrent use.
type Transferer interface {
	// Move transfers src to dst and removes src. It returns
	// ErrSourceNotFound when src is missing and ErrDestinationExists when
	// dst is taken.
	Move(src, dst string, opts TransferOptions) (*TransferResult, error)

	// Name returns a human-readable name for this transferer implementation.
	Name() string
}

// New returns the default transferer.
func New() Transferer {
	return NewNativeTransferer(0)
}
