package uodata

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/meigma/uodata/anim"
)

// Option configures a Registry.
type Option func(*Registry) error

// Defaults applied by Open.
const (
	DefaultLoadConcurrency = 4
	DefaultSpriteCacheSize = 4096
)

// WithLogger sets the logger for load and lookup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// WithClientVersion sets the client version used for version-dependent rule
// files. The default is anim.CVLatest.
func WithClientVersion(v anim.ClientVersion) Option {
	return func(r *Registry) error {
		r.version = v
		return nil
	}
}

// WithVerdata enables or disables the verdata.mul overlay. It is enabled by
// default; the file is still optional.
func WithVerdata(enabled bool) Option {
	return func(r *Registry) error {
		r.useVerdata = enabled
		return nil
	}
}

// WithLoadConcurrency bounds how many families load in parallel.
func WithLoadConcurrency(n int) Option {
	return func(r *Registry) error {
		if n < 1 {
			return errors.New("uodata: load concurrency must be at least 1")
		}
		r.concurrency = n
		return nil
	}
}

// WithSpriteCacheSize sets how many decoded art and gump images are kept.
func WithSpriteCacheSize(n int) Option {
	return func(r *Registry) error {
		if n < 1 {
			return errors.New("uodata: sprite cache size must be at least 1")
		}
		r.cacheSize = n
		return nil
	}
}

// WithFamilies restricts loading to the listed families.
func WithFamilies(families ...Family) Option {
	return func(r *Registry) error {
		for _, f := range families {
			if !f.valid() {
				return ErrUnknownFamily
			}
		}
		r.families = slices.Clone(families)
		return nil
	}
}
