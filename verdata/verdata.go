// Package verdata loads the legacy verdata.mul patch overlay.
//
// verdata.mul starts with an int32 record count followed by 20-byte records
// {file, index, offset, length, extra}. Each record replaces one slot of a
// classic idx table; the replacement bytes live inside verdata.mul itself.
// The file is optional: a missing verdata.mul yields an empty table.
package verdata

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/uodata/archive"
)

// File type ids used by verdata records.
const (
	FileMap0      int32 = 0
	FileStaIdx0   int32 = 1
	FileStatics0  int32 = 2
	FileArtIdx    int32 = 3
	FileArt       int32 = 4
	FileAnimIdx   int32 = 5
	FileAnim      int32 = 6
	FileSoundIdx  int32 = 7
	FileSound     int32 = 8
	FileTexIdx    int32 = 9
	FileTexMaps   int32 = 10
	FileGumpIdx   int32 = 11
	FileGumpArt   int32 = 12
	FileMultiIdx  int32 = 13
	FileMulti     int32 = 14
	FileSkillsIdx int32 = 15
	FileSkills    int32 = 16
	FileTiledata  int32 = 30
	FileAnimdata  int32 = 31
	FileHues      int32 = 32
)

const recordSize = 20

// Patch is one verdata record.
type Patch struct {
	FileType int32
	Index    int32
	Offset   int64
	Length   int32
	Extra    int32
}

type key struct {
	file  int32
	index int32
}

// Table is an immutable set of patches keyed by (file type, index).
type Table struct {
	src     *archive.Mapped
	patches map[key]Patch
	byFile  map[int32][]Patch
	logger  *slog.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (t *Table) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

// Empty returns a table without patches.
func Empty() *Table {
	return &Table{patches: map[key]Patch{}, byFile: map[int32][]Patch{}}
}

// Load reads the patch list from path.
//
// A missing or empty file yields an empty table and no error. Records past a
// truncated end are dropped with a warning. Later records for the same
// (file, index) replace earlier ones.
func Load(path string, opts ...Option) (*Table, error) {
	t := Empty()
	for _, opt := range opts {
		opt(t)
	}

	src, err := archive.Open(path)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) || errors.Is(err, archive.ErrEmpty) {
			t.log().Debug("verdata not present", "path", path)
			return t, nil
		}
		return nil, fmt.Errorf("verdata: %w", err)
	}

	if err := t.parse(archive.NewCursor(src)); err != nil {
		_ = src.Close()
		return nil, err
	}
	t.src = src
	t.log().Debug("verdata loaded", "path", path, "patches", len(t.patches))
	return t, nil
}

func (t *Table) parse(c *archive.Cursor) error {
	count, err := c.ReadI32()
	if err != nil {
		return fmt.Errorf("verdata: read count: %w", err)
	}
	if count < 0 {
		return fmt.Errorf("verdata: negative record count %d", count)
	}
	if avail := c.Remaining() / recordSize; int64(count) > avail {
		t.log().Warn("verdata truncated", "declared", count, "available", avail)
		count = int32(avail)
	}

	for range count {
		var p Patch
		var off int32
		if p.FileType, err = c.ReadI32(); err != nil {
			return err
		}
		if p.Index, err = c.ReadI32(); err != nil {
			return err
		}
		if off, err = c.ReadI32(); err != nil {
			return err
		}
		if p.Length, err = c.ReadI32(); err != nil {
			return err
		}
		if p.Extra, err = c.ReadI32(); err != nil {
			return err
		}
		p.Offset = int64(off)
		t.add(p)
	}
	return nil
}

func (t *Table) add(p Patch) {
	k := key{p.FileType, p.Index}
	if _, dup := t.patches[k]; dup {
		list := t.byFile[p.FileType]
		for i := range list {
			if list[i].Index == p.Index {
				list[i] = p
			}
		}
	} else {
		t.byFile[p.FileType] = append(t.byFile[p.FileType], p)
	}
	t.patches[k] = p
}

// Find returns the patch for (fileType, index).
func (t *Table) Find(fileType, index int32) (Patch, bool) {
	if t == nil {
		return Patch{}, false
	}
	p, ok := t.patches[key{fileType, index}]
	return p, ok
}

// ForFile returns the patches for one file type in load order.
// The returned slice must not be modified.
func (t *Table) ForFile(fileType int32) []Patch {
	if t == nil {
		return nil
	}
	return t.byFile[fileType]
}

// Len returns the number of distinct patches.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.patches)
}

// Source returns the verdata archive, or nil when no file was loaded.
func (t *Table) Source() archive.Source {
	if t == nil || t.src == nil {
		return nil
	}
	return t.src
}

// Close unmaps verdata.mul.
func (t *Table) Close() error {
	if t == nil || t.src == nil {
		return nil
	}
	return t.src.Close()
}
