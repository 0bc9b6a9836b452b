package mul

import (
	"log/slog"

	"github.com/meigma/uodata/verdata"
)

// Option configures an Archive.
type Option func(*Archive)

// WithExpectedCount sets the minimum number of entries.
//
// Ids between the idx record count and n resolve as missing instead of out of
// range, and verdata patches for them are still applied.
func WithExpectedCount(n int) Option {
	return func(a *Archive) {
		if n < 0 {
			n = 0
		}
		a.expected = n
	}
}

// WithPatches overlays the verdata patches of fileType onto the entry table.
func WithPatches(table *verdata.Table, fileType int32) Option {
	return func(a *Archive) {
		a.patches = table
		a.fileType = fileType
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
