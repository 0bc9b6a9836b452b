// Package archive provides read-only random access to Ultima Online data files.
//
// A [Source] is an immutable byte region (a memory-mapped file or an owned
// byte slice). A [Cursor] reads little-endian primitives from a Source with
// explicit bounds checks: reads past the end return [ErrOutOfBounds] and never
// panic. Sources are safe for concurrent use; cursors are not and should be
// created per reader.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/mmap"
)

// Source provides random access to an immutable byte region.
//
// SourceID must return a stable identifier for the underlying content.
type Source interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}

// Mapped is a memory-mapped, read-only file.
type Mapped struct {
	r      *mmap.ReaderAt
	path   string
	size   int64
	closed atomic.Bool
}

// Interface compliance.
var (
	_ Source    = (*Mapped)(nil)
	_ Source    = (*Bytes)(nil)
	_ io.Closer = (*Mapped)(nil)
)

// Open maps the file at path into memory.
//
// Open fails with ErrNotFound when the file does not exist, ErrEmpty when it
// has zero length and ErrMapFailed when the mapping cannot be created.
func Open(path string) (*Mapped, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMapFailed, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMapFailed, path, err)
	}
	return &Mapped{r: r, path: path, size: int64(r.Len())}, nil
}

// ReadAt implements io.ReaderAt.
func (m *Mapped) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	return m.r.ReadAt(p, off)
}

// Size returns the mapped length in bytes.
func (m *Mapped) Size() int64 {
	return m.size
}

// SourceID returns the path the file was mapped from.
func (m *Mapped) SourceID() string {
	return "file:" + m.path
}

// Path returns the path the file was mapped from.
func (m *Mapped) Path() string {
	return m.path
}

// Close unmaps the file. Close is idempotent.
func (m *Mapped) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.r.Close()
}

// Bytes is a Source backed by an owned byte slice.
type Bytes struct {
	data   []byte
	id     string
	idOnce sync.Once
}

// FromBytes returns a Source over data. The slice is retained and must not be
// modified afterwards. An empty id is replaced with a content hash, computed
// on the first SourceID call.
func FromBytes(id string, data []byte) *Bytes {
	return &Bytes{data: data, id: id}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (b *Bytes) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOutOfBounds
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the length of the backing slice.
func (b *Bytes) Size() int64 {
	return int64(len(b.data))
}

// SourceID returns the identifier given to FromBytes, or a hash of the
// content when none was given.
func (b *Bytes) SourceID() string {
	b.idOnce.Do(func() {
		if b.id == "" {
			sum := sha256.Sum256(b.data)
			b.id = "mem:" + hex.EncodeToString(sum[:8])
		}
	})
	return b.id
}

// Bytes returns the backing slice. Callers must treat it as read-only.
func (b *Bytes) Bytes() []byte {
	return b.data
}
