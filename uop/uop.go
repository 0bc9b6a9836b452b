// Package uop reads Ultima Online UOP (Mythic package) archives.
//
// A UOP file is a directory of 34-byte entries spread over a linked chain of
// blocks, each entry keyed by the hash of a virtual file name. An archive can
// be queried by hash or name, or, when opened with an expected count, as a
// dense id-indexed array whose names follow a fmt pattern.
package uop

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/internal/inflate"
	"github.com/meigma/uodata/internal/sizing"
)

// Magic is the archive signature, "MYP\0" read little-endian.
const Magic = 0x50594D

const (
	entrySize = 34
	extraSize = 8
)

// Entry is one directory record.
type Entry struct {
	// Offset is the absolute offset of the per-file header. Zero marks a hole.
	Offset uint64

	// HeaderLength is the size of the per-file header preceding the payload.
	HeaderLength int32

	CompressedLength   uint32
	DecompressedLength uint32

	// Hash is the HashFileName value of the virtual file name.
	Hash uint64

	// Flag is the compression method; 1 is zlib.
	Flag uint16

	// Extra is extra1<<16 | extra2 for archives opened WithExtra, once the
	// leading extra pair has been consumed.
	Extra int32

	extraDone bool
}

// Compressed reports whether the payload must be inflated.
func (e Entry) Compressed() bool {
	return e.Flag == 1 || e.CompressedLength != e.DecompressedLength
}

// Archive is an opened UOP file. It is immutable after Open and safe for
// concurrent use.
type Archive struct {
	src      *archive.Mapped
	path     string
	pattern  string
	ext      string
	expected int
	extra    bool
	byHash   map[uint64]Entry
	entries  []Entry
	pool     *inflate.Pool
	logger   *slog.Logger
}

var _ entry.Resolver = (*Archive)(nil)

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open maps path and reads its block directory.
//
// A file without the UOP magic or with a broken block chain fails with
// ErrInvalidFormat.
func Open(path string, opts ...Option) (*Archive, error) {
	a := &Archive{
		path:   path,
		ext:    ".dat",
		byHash: make(map[uint64]Entry),
		pool:   inflate.NewPool(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.pattern == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		a.pattern = "build/" + strings.ToLower(base) + "/%08d"
	}

	src, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uop: %w", err)
	}
	a.src = src

	if err := a.readDirectory(); err != nil {
		_ = src.Close()
		return nil, err
	}
	if a.expected > 0 {
		a.buildArray()
	}
	return a, nil
}

func (a *Archive) readDirectory() error {
	c := archive.NewCursor(a.src)
	magic, err := c.ReadU32()
	if err != nil || magic != Magic {
		return fmt.Errorf("%w: bad magic in %s", ErrInvalidFormat, a.path)
	}
	if err := c.Skip(8); err != nil {
		return fmt.Errorf("%w: header: %w", ErrInvalidFormat, err)
	}
	next, err := c.ReadI64()
	if err != nil {
		return fmt.Errorf("%w: header: %w", ErrInvalidFormat, err)
	}

	visited := make(map[int64]struct{})
	holes := 0
	for next != 0 {
		if _, seen := visited[next]; seen {
			return fmt.Errorf("%w: block chain loops at %d", ErrInvalidFormat, next)
		}
		visited[next] = struct{}{}

		if err := c.Seek(next); err != nil {
			return fmt.Errorf("%w: block at %d: %w", ErrInvalidFormat, next, err)
		}
		count, err := c.ReadI32()
		if err != nil {
			return fmt.Errorf("%w: block at %d: %w", ErrInvalidFormat, next, err)
		}
		blockNext, err := c.ReadI64()
		if err != nil {
			return fmt.Errorf("%w: block at %d: %w", ErrInvalidFormat, next, err)
		}
		if count < 0 || int64(count)*entrySize > c.Remaining() {
			return fmt.Errorf("%w: block at %d declares %d entries", ErrInvalidFormat, next, count)
		}

		for range count {
			e, err := readEntry(c)
			if err != nil {
				return fmt.Errorf("%w: block at %d: %w", ErrInvalidFormat, next, err)
			}
			if e.Offset == 0 {
				holes++
				continue
			}
			a.byHash[e.Hash] = e
		}
		next = blockNext
	}

	a.log().Debug("uop directory read",
		"path", a.path,
		"blocks", len(visited),
		"entries", len(a.byHash),
		"holes", holes)
	return nil
}

func readEntry(c *archive.Cursor) (Entry, error) {
	var e Entry
	var err error
	if e.Offset, err = c.ReadU64(); err != nil {
		return e, err
	}
	if e.HeaderLength, err = c.ReadI32(); err != nil {
		return e, err
	}
	if e.CompressedLength, err = c.ReadU32(); err != nil {
		return e, err
	}
	if e.DecompressedLength, err = c.ReadU32(); err != nil {
		return e, err
	}
	if e.Hash, err = c.ReadU64(); err != nil {
		return e, err
	}
	if _, err = c.ReadU32(); err != nil { // data hash
		return e, err
	}
	e.Flag, err = c.ReadU16()
	return e, err
}

// buildArray hashes the virtual name of every id and files the matching
// entries by id. Uncompressed extra pairs are consumed up front so Record
// reports them without reading payloads later.
func (a *Archive) buildArray() {
	a.entries = make([]Entry, a.expected)
	found := 0
	for id := range a.expected {
		e, ok := a.byHash[HashFileName(a.Name(id))]
		if !ok {
			continue
		}
		if a.extra && !e.Compressed() {
			if err := a.consumeExtra(&e); err != nil {
				a.log().Warn("uop entry extra unreadable", "path", a.path, "id", id, "error", err)
				continue
			}
		}
		a.entries[id] = e
		found++
	}
	a.log().Debug("uop array built", "path", a.path, "expected", a.expected, "found", found)
}

func (a *Archive) consumeExtra(e *Entry) error {
	if e.CompressedLength < extraSize {
		return fmt.Errorf("%w: entry of %d bytes has no extra", ErrInvalidFormat, e.CompressedLength)
	}
	start, err := a.dataOffset(*e)
	if err != nil {
		return err
	}
	c, err := archive.NewSectionCursor(a.src, start, extraSize)
	if err != nil {
		return err
	}
	e1, err := c.ReadI32()
	if err != nil {
		return err
	}
	e2, err := c.ReadI32()
	if err != nil {
		return err
	}
	e.Offset += extraSize
	e.CompressedLength -= extraSize
	e.DecompressedLength -= extraSize
	e.Extra = e1<<16 | e2
	e.extraDone = true
	return nil
}

func (a *Archive) dataOffset(e Entry) (int64, error) {
	off, err := sizing.ToInt64(e.Offset, ErrSizeOverflow)
	if err != nil {
		return 0, err
	}
	start, ok := sizing.AddInt64(off, int64(e.HeaderLength))
	if !ok {
		return 0, fmt.Errorf("%w: offset %d header %d", ErrSizeOverflow, e.Offset, e.HeaderLength)
	}
	return start, nil
}

// Name returns the array-mode virtual file name of id.
func (a *Archive) Name(id int) string {
	return fmt.Sprintf(a.pattern, id) + a.ext
}

// Len returns the array-mode id count, or 0 in hash mode.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Count returns the number of non-hole directory entries.
func (a *Archive) Count() int {
	return len(a.byHash)
}

// Source returns the mapped archive.
func (a *Archive) Source() archive.Source {
	return a.src
}

// Lookup returns the directory entry filed under hash.
func (a *Archive) Lookup(hash uint64) (Entry, bool) {
	e, ok := a.byHash[hash]
	return e, ok
}

// Record returns the array-mode entry of id as an entry.Record.
//
// The record describes the bytes on disk: Length is the stored, possibly
// compressed, size at Offset and DecompressedLength the inflated size. For a
// compressed entry whose extra pair is still inside the stream,
// DecompressedLength includes those 8 bytes. Resolve instead reports the
// payload as returned, inflated and without the extra pair.
func (a *Archive) Record(id int) (entry.Record, error) {
	if a.entries == nil {
		return entry.Missing, ErrNoArray
	}
	if err := entry.CheckID(id, len(a.entries)); err != nil {
		return entry.Missing, err
	}
	e := a.entries[id]
	if e.Offset == 0 {
		return entry.Missing, nil
	}
	start, err := a.dataOffset(e)
	if err != nil {
		return entry.Missing, nil
	}
	return entry.Record{
		Offset:             start,
		Length:             int32(e.CompressedLength),
		Extra:              e.Extra,
		DecompressedLength: int32(e.DecompressedLength),
	}, nil
}

// SeekByEntryIndex resolves an array-mode id.
func (a *Archive) SeekByEntryIndex(id int) (entry.Resolved, error) {
	if a.entries == nil {
		return entry.Resolved{}, ErrNoArray
	}
	if err := entry.CheckID(id, len(a.entries)); err != nil {
		return entry.Resolved{}, err
	}
	return a.resolve(a.entries[id], a.Name(id))
}

// Resolve implements entry.Resolver over the array-mode ids.
func (a *Archive) Resolve(id int) (entry.Resolved, error) {
	return a.SeekByEntryIndex(id)
}

// SeekByHash resolves the entry filed under hash.
func (a *Archive) SeekByHash(hash uint64) (entry.Resolved, error) {
	e, ok := a.byHash[hash]
	if !ok {
		return entry.Resolved{}, fmt.Errorf("%w: hash %016x", entry.ErrMissing, hash)
	}
	return a.resolve(e, fmt.Sprintf("%016x", hash))
}

// SeekByName resolves the entry of a virtual file name.
func (a *Archive) SeekByName(name string) (entry.Resolved, error) {
	return a.SeekByHash(HashFileName(strings.ToLower(name)))
}

// Read returns the payload bytes of an array-mode id, inflated if needed.
func (a *Archive) Read(id int) ([]byte, entry.Resolved, error) {
	res, err := a.SeekByEntryIndex(id)
	if err != nil {
		return nil, res, err
	}
	data, err := res.Bytes()
	if err != nil {
		return nil, res, fmt.Errorf("uop: read id %d: %w", id, err)
	}
	return data, res, nil
}

// resolve returns a cursor over the payload of e. Stored payloads are read
// in place; compressed payloads are inflated into memory.
func (a *Archive) resolve(e Entry, label string) (entry.Resolved, error) {
	if e.Offset == 0 {
		return entry.Resolved{}, fmt.Errorf("%w: %s", entry.ErrMissing, label)
	}
	start, err := a.dataOffset(e)
	if err != nil {
		return entry.Resolved{}, fmt.Errorf("%w: %s: %w", entry.ErrMissing, label, err)
	}
	n := int64(e.CompressedLength)
	if !sizing.InRange(start, n, a.src.Size()) {
		return entry.Resolved{}, fmt.Errorf("%w: %s [%d,+%d) past end %d: %w",
			entry.ErrMissing, label, start, n, a.src.Size(), archive.ErrOutOfBounds)
	}
	pendingExtra := a.extra && !e.extraDone

	if !e.Compressed() {
		c := archive.NewCursor(a.src)
		if err := c.Seek(start); err != nil {
			return entry.Resolved{}, fmt.Errorf("%w: %s: %w", entry.ErrMissing, label, err)
		}
		res := entry.Resolved{Cursor: c, Length: int32(n), Extra: e.Extra}
		if pendingExtra {
			if n < extraSize {
				return entry.Resolved{}, fmt.Errorf("%w: %s has no extra", entry.ErrMissing, label)
			}
			e1, _ := c.ReadI32()
			e2, _ := c.ReadI32()
			res.Extra = e1<<16 | e2
			res.Length -= extraSize
		}
		return res, nil
	}

	data, err := a.pool.Inflate(io.NewSectionReader(a.src, start, n), int(e.DecompressedLength))
	if err != nil {
		return entry.Resolved{}, fmt.Errorf("%w: %s: %w: %w", entry.ErrMissing, label, ErrDecompression, err)
	}
	extra := e.Extra
	if pendingExtra {
		if len(data) < extraSize {
			return entry.Resolved{}, fmt.Errorf("%w: %s has no extra", entry.ErrMissing, label)
		}
		ec := archive.NewCursor(archive.FromBytes("", data[:extraSize]))
		e1, _ := ec.ReadI32()
		e2, _ := ec.ReadI32()
		extra = e1<<16 | e2
		data = data[extraSize:]
	}
	return entry.Resolved{
		Cursor:             archive.NewCursor(archive.FromBytes("uop:"+a.path+"#"+label, data)),
		Length:             int32(len(data)),
		Extra:              extra,
		Compressed:         true,
		DecompressedLength: int32(len(data)),
	}, nil
}

// Close unmaps the archive.
func (a *Archive) Close() error {
	return a.src.Close()
}
