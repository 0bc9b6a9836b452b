// Package mul reads classic Ultima Online idx/mul archive pairs.
//
// The idx file is a flat table of 12-byte records {offset, length, extra},
// one per resource id; the mul file holds the resource bytes. An optional
// verdata table overlays individual records after the idx table is read, in
// which case the resource bytes come from verdata.mul instead.
package mul

import (
	"fmt"
	"log/slog"

	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/verdata"
)

// RecordSize is the byte size of one idx record.
const RecordSize = 12

// Archive is an opened idx/mul pair. It is immutable after Open and safe for
// concurrent use.
type Archive struct {
	data     *archive.Mapped
	records  []entry.Record
	idxSize  int64
	patches  *verdata.Table
	fileType int32
	expected int
	patched  int
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

// Open maps dataPath and reads the entry table from idxPath.
//
// Missing or empty files fail with the archive package errors. The idx file
// is unmapped once its records are copied.
func Open(dataPath, idxPath string, opts ...Option) (*Archive, error) {
	a := &Archive{}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.readIndex(idxPath); err != nil {
		return nil, err
	}

	data, err := archive.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("mul: open data: %w", err)
	}
	a.data = data

	a.applyPatches()
	a.log().Debug("mul archive opened",
		"data", dataPath,
		"idx", idxPath,
		"entries", len(a.records),
		"patched", a.patched)
	return a, nil
}

func (a *Archive) readIndex(idxPath string) error {
	idx, err := archive.Open(idxPath)
	if err != nil {
		return fmt.Errorf("mul: open index: %w", err)
	}
	defer idx.Close()

	a.idxSize = idx.Size()
	count := int(a.idxSize / RecordSize)
	if rem := a.idxSize % RecordSize; rem != 0 {
		a.log().Warn("idx has trailing bytes", "path", idxPath, "trailing", rem)
	}

	a.records = make([]entry.Record, max(count, a.expected))
	c := archive.NewCursor(idx)
	for i := range count {
		off, err := c.ReadU32()
		if err != nil {
			return fmt.Errorf("mul: read record %d: %w", i, err)
		}
		length, err := c.ReadU32()
		if err != nil {
			return fmt.Errorf("mul: read record %d: %w", i, err)
		}
		extra, err := c.ReadU32()
		if err != nil {
			return fmt.Errorf("mul: read record %d: %w", i, err)
		}
		a.records[i] = entry.Record{
			Offset: int64(off),
			Length: int32(length),
			Extra:  int32(extra),
		}
	}
	for i := count; i < len(a.records); i++ {
		a.records[i] = entry.Missing
	}
	return nil
}

func (a *Archive) applyPatches() {
	if a.patches.Len() == 0 {
		return
	}
	for _, p := range a.patches.ForFile(a.fileType) {
		if p.Index < 0 || int(p.Index) >= len(a.records) {
			a.log().Warn("verdata patch out of range",
				"file", a.fileType,
				"index", p.Index,
				"entries", len(a.records))
			continue
		}
		a.records[p.Index] = entry.Record{
			Offset: p.Offset,
			Length: p.Length | entry.PatchedFlag,
			Extra:  p.Extra,
		}
		a.patched++
	}
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.records)
}

// IndexSize returns the byte size of the idx file.
func (a *Archive) IndexSize() int64 {
	return a.idxSize
}

// Source returns the mapped mul file.
func (a *Archive) Source() archive.Source {
	return a.data
}

// PatchSource returns the verdata archive patched entries read from, or nil.
func (a *Archive) PatchSource() archive.Source {
	return a.patches.Source()
}

// Record returns the raw entry record for id.
func (a *Archive) Record(id int) (entry.Record, error) {
	if err := entry.CheckID(id, len(a.records)); err != nil {
		return entry.Missing, err
	}
	return a.records[id], nil
}

// SeekByEntry resolves id to a cursor positioned on its bytes.
//
// It returns entry.ErrOutOfRange for ids outside the table and
// entry.ErrMissing for absent slots. Patched entries read from verdata.mul.
func (a *Archive) SeekByEntry(id int) (entry.Resolved, error) {
	rec, err := a.Record(id)
	if err != nil {
		return entry.Resolved{}, err
	}
	if !rec.Valid() {
		return entry.Resolved{}, fmt.Errorf("%w: id %d", entry.ErrMissing, id)
	}

	var src archive.Source = a.data
	if rec.Patched() {
		src = a.PatchSource()
		if src == nil {
			return entry.Resolved{}, fmt.Errorf("%w: id %d patched without verdata", entry.ErrMissing, id)
		}
	}

	size := rec.Size()
	if rec.Offset+int64(size) > src.Size() {
		return entry.Resolved{}, fmt.Errorf("%w: id %d [%d,+%d) past end %d: %w",
			entry.ErrMissing, id, rec.Offset, size, src.Size(), archive.ErrOutOfBounds)
	}

	c := archive.NewCursor(src)
	if err := c.Seek(rec.Offset); err != nil {
		return entry.Resolved{}, fmt.Errorf("%w: id %d: %w", entry.ErrMissing, id, err)
	}
	return entry.Resolved{
		Cursor:  c,
		Length:  size,
		Extra:   rec.Extra,
		Patched: rec.Patched(),
	}, nil
}

// Resolve implements entry.Resolver.
func (a *Archive) Resolve(id int) (entry.Resolved, error) {
	return a.SeekByEntry(id)
}

// Read returns a copy of the bytes of id along with its resolution.
func (a *Archive) Read(id int) ([]byte, entry.Resolved, error) {
	res, err := a.SeekByEntry(id)
	if err != nil {
		return nil, res, err
	}
	data, err := res.Bytes()
	if err != nil {
		return nil, res, fmt.Errorf("mul: read id %d: %w", id, err)
	}
	return data, res, nil
}

// Close unmaps the mul file. The verdata table is owned by the caller.
func (a *Archive) Close() error {
	return a.data.Close()
}
