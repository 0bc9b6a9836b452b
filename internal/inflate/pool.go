// Package inflate pools zlib readers for UOP payload decompression.
package inflate

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ErrSizeMismatch is returned when a stream inflates to a size other than
// the declared one.
var ErrSizeMismatch = errors.New("inflate: size mismatch")

// Pool manages reusable zlib readers to reduce allocation overhead.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an empty reader pool.
func NewPool() *Pool {
	return &Pool{}
}

// get returns a reader positioned on r.
// The caller must call the returned release function when done.
func (p *Pool) get(r io.Reader) (io.ReadCloser, func(), error) {
	if p == nil {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	}

	if value := p.pool.Get(); value != nil {
		if zr, ok := value.(io.ReadCloser); ok {
			if resetter, ok := zr.(zlib.Resetter); ok {
				if err := resetter.Reset(r, nil); err == nil {
					return zr, func() { p.pool.Put(zr) }, nil
				}
			}
		}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { p.pool.Put(zr) }, nil
}

// Inflate decompresses r into a buffer of exactly size bytes.
func (p *Pool) Inflate(r io.Reader, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrSizeMismatch, size)
	}
	zr, release, err := p.get(r)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: want %d bytes: %w", ErrSizeMismatch, size, err)
	}
	var probe [1]byte
	n, err := zr.Read(probe[:])
	if n != 0 {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeMismatch, size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		_ = zr.Close()
		return nil, err
	}
	release()
	return out, nil
}
