package archive

import (
	"fmt"
	"io"
)

// Cursor reads little-endian values from a window of a Source.
//
// Every read advances the position by the width of the value. Reads and seeks
// that would leave the window return ErrOutOfBounds and leave the position
// unchanged. Multi-byte values are assembled byte by byte, so results do not
// depend on host endianness.
type Cursor struct {
	src    Source
	base   int64
	length int64
	pos    int64
	buf    [8]byte
}

// NewCursor returns a cursor over the whole source, positioned at 0.
func NewCursor(src Source) *Cursor {
	return &Cursor{src: src, length: src.Size()}
}

// NewSectionCursor returns a cursor over length bytes of src starting at off.
func NewSectionCursor(src Source, off, length int64) (*Cursor, error) {
	if off < 0 || length < 0 || off > src.Size() || length > src.Size()-off {
		return nil, fmt.Errorf("%w: section [%d,+%d) of %d", ErrOutOfBounds, off, length, src.Size())
	}
	return &Cursor{src: src, base: off, length: length}, nil
}

// Source returns the source the cursor reads from.
func (c *Cursor) Source() Source {
	return c.src
}

// Base returns the absolute offset of the cursor window within the source.
func (c *Cursor) Base() int64 {
	return c.base
}

// Len returns the length of the cursor window.
func (c *Cursor) Len() int64 {
	return c.length
}

// Position returns the current position relative to the window start.
func (c *Cursor) Position() int64 {
	return c.pos
}

// Remaining returns the number of bytes between the position and the window end.
func (c *Cursor) Remaining() int64 {
	return c.length - c.pos
}

// EOF reports whether the cursor is at the end of its window.
func (c *Cursor) EOF() bool {
	return c.pos >= c.length
}

// Seek moves to an absolute position within the window.
func (c *Cursor) Seek(pos int64) error {
	if pos < 0 || pos > c.length {
		return fmt.Errorf("%w: seek to %d of %d", ErrOutOfBounds, pos, c.length)
	}
	c.pos = pos
	return nil
}

// Skip moves the position by n bytes, which may be negative.
func (c *Cursor) Skip(n int64) error {
	return c.Seek(c.pos + n)
}

// Clone returns an independent cursor over the same window and position.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{src: c.src, base: c.base, length: c.length, pos: c.pos}
}

// Sub returns a cursor over the next n bytes and advances past them.
func (c *Cursor) Sub(n int64) (*Cursor, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: sub-cursor of %d bytes at %d of %d", ErrOutOfBounds, n, c.pos, c.length)
	}
	sub := &Cursor{src: c.src, base: c.base + c.pos, length: n}
	c.pos += n
	return sub, nil
}

// Section returns a zero-copy reader over the next n bytes without moving
// the cursor.
func (c *Cursor) Section(n int64) (*io.SectionReader, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: section of %d bytes at %d of %d", ErrOutOfBounds, n, c.pos, c.length)
	}
	return io.NewSectionReader(c.src, c.base+c.pos, n), nil
}

// ReadInto fills p from the current position.
func (c *Cursor) ReadInto(p []byte) error {
	n := int64(len(p))
	if n > c.Remaining() {
		return fmt.Errorf("%w: read %d bytes at %d of %d", ErrOutOfBounds, n, c.pos, c.length)
	}
	if n == 0 {
		return nil
	}
	got, err := c.src.ReadAt(p, c.base+c.pos)
	if got < len(p) {
		if err == nil || err == io.EOF {
			err = ErrOutOfBounds
		}
		return fmt.Errorf("read %d bytes at %d: %w", n, c.pos, err)
	}
	c.pos += n
	return nil
}

// ReadSlice returns a copy of the next n bytes.
func (c *Cursor) ReadSlice(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfBounds, n)
	}
	p := make([]byte, n)
	if err := c.ReadInto(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Cursor) fill(n int) ([]byte, error) {
	b := c.buf[:n]
	if err := c.ReadInto(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadU8 reads an unsigned byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads a signed byte.
func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

// ReadBool reads a byte and reports whether it is non-zero.
func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadU8()
	return v != 0, err
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.fill(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// ReadI16 reads a little-endian int16.
func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.fill(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.fill(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadI64 reads a little-endian int64.
func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}
