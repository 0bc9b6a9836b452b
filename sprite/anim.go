package sprite

import (
	"fmt"

	"github.com/meigma/uodata/archive"
)

// DecodeClassic decodes an anim*.mul direction block: a 256-color palette,
// a u32 frame count, one u32 offset per frame relative to the count field,
// then the frames.
func DecodeClassic(data []byte) ([]Frame, error) {
	c := archive.NewCursor(archive.FromBytes("", data))
	palette, err := ReadPalette(c)
	if err != nil {
		return nil, err
	}
	return decodeClassicFrames(c, palette)
}

func decodeClassicFrames(c *archive.Cursor, palette *Palette) ([]Frame, error) {
	base := c.Position()
	count, err := c.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: frame count: %w", ErrCorruptFrame, err)
	}
	if int64(count)*4 > c.Remaining() {
		return nil, fmt.Errorf("%w: %d frames exceed %d bytes", ErrCorruptFrame, count, c.Remaining())
	}

	offsets := make([]uint32, count)
	for i := range offsets {
		if offsets[i], err = c.ReadU32(); err != nil {
			return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
		}
	}

	frames := make([]Frame, count)
	for i, off := range offsets {
		if err := c.Seek(base + int64(off)); err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrCorruptFrame, i, err)
		}
		if frames[i], err = DecodeFrame(c, palette); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}

// uopMagic is "AMOU" read little-endian.
const uopMagic = 0x554F4D41

const uopFrameHeaderSize = 16

// UOPFrame is a frame of an AnimationFrame*.uop group payload.
type UOPFrame struct {
	Group uint16

	// FrameID is 1-based and runs across all five directions of the group.
	FrameID uint16

	Frame Frame
}

// DecodeUOP decodes an AnimationFrame*.uop group payload. The frame count
// sits at offset 32 and the frame table start at offset 36; each 16-byte
// table entry {u16 group, u16 frameID, 8 reserved, u32 pixelOffset} points,
// relative to itself, at a palette followed by the frame.
func DecodeUOP(data []byte) ([]UOPFrame, error) {
	c := archive.NewCursor(archive.FromBytes("", data))
	magic, err := c.ReadU32()
	if err != nil || magic != uopMagic {
		return nil, ErrBadMagic
	}
	if err := c.Seek(32); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	dataStart, err := c.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptFrame, err)
	}
	if err := c.Seek(int64(dataStart)); err != nil {
		return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
	}
	if int64(count)*uopFrameHeaderSize > c.Remaining() {
		return nil, fmt.Errorf("%w: %d frames exceed %d bytes", ErrCorruptFrame, count, c.Remaining())
	}

	frames := make([]UOPFrame, count)
	offsets := make([]int64, count)
	for i := range frames {
		start := c.Position()
		if frames[i].Group, err = c.ReadU16(); err != nil {
			return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
		}
		if frames[i].FrameID, err = c.ReadU16(); err != nil {
			return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
		}
		if err := c.Skip(8); err != nil {
			return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
		}
		off, err := c.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("%w: frame table: %w", ErrCorruptFrame, err)
		}
		offsets[i] = start + int64(off)
	}

	for i := range frames {
		if err := c.Seek(offsets[i]); err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrCorruptFrame, i, err)
		}
		palette, err := ReadPalette(c)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if frames[i].Frame, err = DecodeFrame(c, palette); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}

// Directions is the number of stored facing directions per action group.
const Directions = 5

// SplitDirections arranges UOP frames by FrameID into per-direction slices.
// Missing frame ids become empty frames, and the padded sequence is cut into
// five equal parts.
func SplitDirections(frames []UOPFrame) [Directions][]Frame {
	var out [Directions][]Frame
	last := 0
	for _, f := range frames {
		last = max(last, int(f.FrameID))
	}
	seq := make([]Frame, last)
	for _, f := range frames {
		if f.FrameID == 0 {
			continue
		}
		seq[f.FrameID-1] = f.Frame
	}

	per := len(seq) / Directions
	if per == 0 {
		return out
	}
	for d := range out {
		out[d] = seq[d*per : (d+1)*per : (d+1)*per]
	}
	return out
}
