// Package entry defines the lookup contract shared by every Ultima Online
// archive format.
//
// Both classic idx/mul pairs and UOP archives resolve a numeric id to an
// [Resolved] value: a cursor positioned on the resource bytes plus its length,
// extra word and patch state. Higher-level asset readers depend only on the
// [Resolver] interface.
package entry

import (
	"errors"
	"fmt"

	"github.com/meigma/uodata/archive"
)

// Sentinel errors for entry resolution.
var (
	// ErrMissing is returned when an id has no data. Callers draw nothing.
	ErrMissing = errors.New("entry: missing")

	// ErrOutOfRange is returned when an id is outside the entry table.
	ErrOutOfRange = errors.New("entry: id out of range")
)

// PatchedFlag is the high bit of Record.Length marking a verdata-patched entry.
const PatchedFlag = int32(-0x80000000)

// Invalid is the on-disk sentinel for an absent offset or length.
const Invalid = uint32(0xFFFFFFFF)

// Record is one slot of an entry table.
type Record struct {
	// Offset is the byte offset of the resource in its data file.
	// Negative values mark a missing entry.
	Offset int64

	// Length is the stored byte length. Bit 31 is PatchedFlag.
	Length int32

	// Extra is the format-specific extra word (for gumps: width<<16 | height).
	Extra int32

	// DecompressedLength is the inflated size of a UOP-resident entry and
	// zero otherwise. Length stays the stored size.
	DecompressedLength int32
}

// Missing is the record used for absent slots.
var Missing = Record{Offset: -1}

// Patched reports whether the record was overlaid from verdata.
func (r Record) Patched() bool {
	return r.Length&PatchedFlag != 0
}

// Size returns the length with the patched flag cleared.
func (r Record) Size() int32 {
	return r.Length &^ PatchedFlag
}

// UOP reports whether the record lives in a UOP archive.
func (r Record) UOP() bool {
	return r.DecompressedLength > 0
}

// Valid reports whether the record points at data.
func (r Record) Valid() bool {
	if r.Offset < 0 || r.Offset == int64(Invalid) {
		return false
	}
	size := r.Size()
	return size > 0 && uint32(r.Length) != Invalid
}

// Resolved is the result of a successful lookup.
type Resolved struct {
	// Cursor is positioned at the first byte of the resource.
	// It spans the whole underlying archive.
	Cursor *archive.Cursor

	// Length is the stored byte length, without the patched flag.
	Length int32

	// Extra is the record's extra word.
	Extra int32

	// Patched reports whether the data comes from verdata.
	Patched bool

	// Compressed reports whether the stored bytes must be inflated
	// before use (UOP only). DecompressedLength is then the inflated size.
	Compressed         bool
	DecompressedLength int32
}

// Section returns a cursor restricted to the resource bytes.
func (r Resolved) Section() (*archive.Cursor, error) {
	if r.Cursor == nil {
		return nil, ErrMissing
	}
	return archive.NewSectionCursor(r.Cursor.Source(), r.Cursor.Base()+r.Cursor.Position(), int64(r.Length))
}

// Bytes copies the resource bytes.
func (r Resolved) Bytes() ([]byte, error) {
	c, err := r.Section()
	if err != nil {
		return nil, err
	}
	return c.ReadSlice(int(r.Length))
}

// Resolver maps numeric ids to resources.
//
// Resolve returns ErrOutOfRange for ids outside [0, Len()) and ErrMissing for
// slots without data. Implementations must be safe for concurrent use.
type Resolver interface {
	Resolve(id int) (Resolved, error)
	Len() int
}

// CheckID returns ErrOutOfRange when id is outside [0, n).
func CheckID(id, n int) error {
	if id < 0 || id >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, id, n)
	}
	return nil
}
