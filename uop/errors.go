package uop

import "errors"

var (
	// ErrInvalidFormat is returned when the magic or block chain is malformed.
	ErrInvalidFormat = errors.New("uop: invalid format")

	// ErrDecompression is returned alongside entry.ErrMissing when a payload
	// fails to inflate.
	ErrDecompression = errors.New("uop: decompression failed")

	// ErrNoArray is returned by SeekByEntryIndex on an archive opened without
	// an expected count.
	ErrNoArray = errors.New("uop: archive not opened in array mode")

	// ErrSizeOverflow is returned when an entry offset does not fit in int64.
	ErrSizeOverflow = errors.New("uop: size overflow")
)
