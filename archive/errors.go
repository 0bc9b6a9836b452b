package archive

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrNotFound is returned when the archive file does not exist.
	ErrNotFound = errors.New("archive: file not found")

	// ErrEmpty is returned when the archive file has zero length.
	ErrEmpty = errors.New("archive: file is empty")

	// ErrMapFailed is returned when the archive file cannot be memory-mapped.
	ErrMapFailed = errors.New("archive: mapping failed")

	// ErrOutOfBounds is returned when a read or seek falls outside the archive.
	ErrOutOfBounds = errors.New("archive: out of bounds")

	// ErrClosed is returned when reading from a closed archive.
	ErrClosed = errors.New("archive: closed")
)
