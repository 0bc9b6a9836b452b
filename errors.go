package uodata

import (
	"errors"

	"github.com/meigma/uodata/anim"
	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/sprite"
	"github.com/meigma/uodata/uop"
)

var (
	// ErrUnknownFamily is returned for a Family value outside the known set.
	ErrUnknownFamily = errors.New("uodata: unknown family")

	// ErrNotLoaded is returned when querying a family that was not
	// requested or failed to load. Registry.Err reports the cause.
	ErrNotLoaded = errors.New("uodata: family not loaded")
)

// Errors re-exported from entry.
var (
	// ErrMissing is returned when an id has no data.
	ErrMissing = entry.ErrMissing

	// ErrOutOfRange is returned when an id is outside a table.
	ErrOutOfRange = entry.ErrOutOfRange
)

// Errors re-exported from archive.
var (
	// ErrNotFound is returned when a required file does not exist.
	ErrNotFound = archive.ErrNotFound

	// ErrEmpty is returned when a required file is empty.
	ErrEmpty = archive.ErrEmpty

	// ErrOutOfBounds is returned when a read runs past its range.
	ErrOutOfBounds = archive.ErrOutOfBounds
)

// Errors re-exported from uop, anim and sprite.
var (
	// ErrInvalidFormat is returned when a UOP archive is malformed.
	ErrInvalidFormat = uop.ErrInvalidFormat

	// ErrDecompression is returned when a UOP entry fails to inflate.
	ErrDecompression = uop.ErrDecompression

	// ErrNoData is returned for an animation direction without frames.
	ErrNoData = anim.ErrNoData

	// ErrCorruptFrame is returned when sprite data is malformed.
	ErrCorruptFrame = sprite.ErrCorruptFrame
)
