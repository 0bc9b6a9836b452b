// Package sprite decodes Ultima Online bitmap streams into 16-bit ARGB1555
// pixel buffers.
//
// Animation frames use a run-length encoding: each run starts with a 32-bit
// header packing a 12-bit run length and signed 10-bit x and y deltas relative
// to the frame center, followed by one palette index per pixel. The header
// 0x7FFF7FFF ends the frame.
package sprite

import (
	"errors"
	"fmt"

	"github.com/meigma/uodata/archive"
)

var (
	// ErrCorruptFrame is returned when a stream is truncated or writes
	// outside its pixel buffer.
	ErrCorruptFrame = errors.New("sprite: corrupt frame")

	// ErrBadMagic is returned when a UOP animation lacks the AMOU header.
	ErrBadMagic = errors.New("sprite: bad magic")

	// ErrNoPalette is returned when DecodeFrame is called without a palette.
	ErrNoPalette = errors.New("sprite: no palette")
)

// EndOfFrame is the RLE header terminating a frame.
const EndOfFrame = 0x7FFF7FFF

// Alpha is the opaque bit of an ARGB1555 pixel.
const Alpha = 0x8000

const maxRun = 0xFFF

// Palette maps the 256 palette indices of an animation to colors.
type Palette [256]uint16

// ReadPalette reads 256 little-endian colors.
func ReadPalette(c *archive.Cursor) (*Palette, error) {
	var p Palette
	for i := range p {
		v, err := c.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("%w: palette: %w", ErrCorruptFrame, err)
		}
		p[i] = v
	}
	return &p, nil
}

// Frame is one decoded animation frame. A frame with Width or Height <= 0 is
// empty and has no pixels.
type Frame struct {
	CenterX int16
	CenterY int16
	Width   int16
	Height  int16
	Pixels  []uint16
}

// Empty reports whether the frame has no pixels to draw.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// DecodeFrame reads a frame header {i16 centerX, i16 centerY, u16 width,
// u16 height} and its RLE stream from c.
func DecodeFrame(c *archive.Cursor, palette *Palette) (Frame, error) {
	if palette == nil {
		return Frame{}, ErrNoPalette
	}

	var f Frame
	var err error
	if f.CenterX, err = c.ReadI16(); err != nil {
		return Frame{}, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	if f.CenterY, err = c.ReadI16(); err != nil {
		return Frame{}, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	if f.Width, err = c.ReadI16(); err != nil {
		return Frame{}, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	if f.Height, err = c.ReadI16(); err != nil {
		return Frame{}, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	if f.Empty() {
		return f, nil
	}

	width, height := int(f.Width), int(f.Height)
	f.Pixels = make([]uint16, width*height)
	var run [maxRun]byte
	for {
		header, err := c.ReadU32()
		if err != nil {
			return Frame{}, fmt.Errorf("%w: run header: %w", ErrCorruptFrame, err)
		}
		if header == EndOfFrame {
			return f, nil
		}

		n := int(header & maxRun)
		x := signExtend10(header>>22) + int(f.CenterX)
		y := signExtend10(header>>12) + int(f.CenterY) + height
		// Runs are written linearly from y*width+x and may cross row edges.
		start := y*width + x
		if start < 0 || start+n > len(f.Pixels) {
			return Frame{}, fmt.Errorf("%w: run of %d at (%d,%d) outside %dx%d", ErrCorruptFrame, n, x, y, width, height)
		}

		indices := run[:n]
		if err := c.ReadInto(indices); err != nil {
			return Frame{}, fmt.Errorf("%w: run data: %w", ErrCorruptFrame, err)
		}
		for i, idx := range indices {
			if v := palette[idx]; v != 0 {
				f.Pixels[start+i] = v | Alpha
			}
		}
	}
}

// signExtend10 sign-extends the low 10 bits of v.
func signExtend10(v uint32) int {
	v &= 0x3FF
	if v&0x200 != 0 {
		return int(v) - 0x400
	}
	return int(v)
}
