package uop

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithPattern sets the fmt pattern of the virtual file name hashed per id in
// array mode, without extension (e.g. "build/artlegacymul/%08d").
// The default is "build/<file base name>/%08d".
func WithPattern(pattern string) Option {
	return func(a *Archive) {
		a.pattern = pattern
	}
}

// WithExtension sets the extension appended to the array-mode file name.
// The default is ".dat".
func WithExtension(ext string) Option {
	return func(a *Archive) {
		a.ext = ext
	}
}

// WithExpectedCount enables array mode with n ids.
func WithExpectedCount(n int) Option {
	return func(a *Archive) {
		if n < 0 {
			n = 0
		}
		a.expected = n
	}
}

// WithExtra marks payloads as carrying a leading (extra1, extra2) int32 pair.
// Gump archives store the image width and height this way.
func WithExtra() Option {
	return func(a *Archive) {
		a.extra = true
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
