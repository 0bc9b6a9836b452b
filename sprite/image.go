package sprite

import (
	"fmt"

	"github.com/meigma/uodata/archive"
)

// Image is a decoded gump or art tile.
type Image struct {
	Width  int
	Height int
	Pixels []uint16
}

// GumpSize unpacks the width<<16 | height extra word of a gump entry.
func GumpSize(extra int32) (width, height int) {
	return int(uint32(extra) >> 16 & 0xFFFF), int(uint32(extra) & 0xFFFF)
}

// DecodeGump decodes gumpart data: a table of one i32 row offset per row,
// counted in 4-byte units from the start of data, then per row a sequence of
// {u16 color, u16 run} pairs.
func DecodeGump(data []byte, width, height int) (Image, error) {
	img := Image{Width: width, Height: height}
	if width <= 0 || height <= 0 {
		return img, nil
	}
	c := archive.NewCursor(archive.FromBytes("", data))
	if int64(height)*4 > c.Len() {
		return Image{}, fmt.Errorf("%w: %d row offsets exceed %d bytes", ErrCorruptFrame, height, c.Len())
	}

	rows := make([]int64, height+1)
	for y := range height {
		v, err := c.ReadI32()
		if err != nil {
			return Image{}, fmt.Errorf("%w: row table: %w", ErrCorruptFrame, err)
		}
		rows[y] = int64(v)
	}
	rows[height] = c.Len() / 4

	img.Pixels = make([]uint16, width*height)
	for y := range height {
		pairs := rows[y+1] - rows[y]
		if err := c.Seek(rows[y] * 4); err != nil || pairs < 0 {
			return Image{}, fmt.Errorf("%w: row %d at %d", ErrCorruptFrame, y, rows[y])
		}
		pos := y * width
		end := pos + width
		for range pairs {
			color, err := c.ReadU16()
			if err != nil {
				return Image{}, fmt.Errorf("%w: row %d: %w", ErrCorruptFrame, y, err)
			}
			run, err := c.ReadU16()
			if err != nil {
				return Image{}, fmt.Errorf("%w: row %d: %w", ErrCorruptFrame, y, err)
			}
			if pos+int(run) > end {
				return Image{}, fmt.Errorf("%w: row %d overruns width %d", ErrCorruptFrame, y, width)
			}
			if color != 0 {
				color |= Alpha
			}
			for range run {
				img.Pixels[pos] = color
				pos++
			}
		}
	}
	return img, nil
}

// LandSize is the edge length of a land tile diamond.
const LandSize = 44

// DecodeLand decodes a 44x44 land tile: 22 widening rows then 22 narrowing
// rows of raw colors centered on the tile.
func DecodeLand(data []byte) (Image, error) {
	c := archive.NewCursor(archive.FromBytes("", data))
	img := Image{Width: LandSize, Height: LandSize, Pixels: make([]uint16, LandSize*LandSize)}
	const half = LandSize / 2

	row := func(y, start, n int) error {
		pos := y*LandSize + start
		for i := range n {
			v, err := c.ReadU16()
			if err != nil {
				return fmt.Errorf("%w: land row %d: %w", ErrCorruptFrame, y, err)
			}
			img.Pixels[pos+i] = v | Alpha
		}
		return nil
	}
	for i := range half {
		if err := row(i, half-i-1, (i+1)*2); err != nil {
			return Image{}, err
		}
	}
	for i := range half {
		if err := row(half+i, i, (half-i)*2); err != nil {
			return Image{}, err
		}
	}
	return img, nil
}

// DecodeStatic decodes a static art tile: a 4-byte flag, u16 width and
// height, a row table of u16 offsets counted in words from the end of the
// table, then per row {u16 xOffset, u16 run, run colors} until a zero pair.
func DecodeStatic(data []byte) (Image, error) {
	c := archive.NewCursor(archive.FromBytes("", data))
	if err := c.Skip(4); err != nil {
		return Image{}, fmt.Errorf("%w: static header: %w", ErrCorruptFrame, err)
	}
	w, err := c.ReadU16()
	if err != nil {
		return Image{}, fmt.Errorf("%w: static header: %w", ErrCorruptFrame, err)
	}
	h, err := c.ReadU16()
	if err != nil {
		return Image{}, fmt.Errorf("%w: static header: %w", ErrCorruptFrame, err)
	}
	width, height := int(w), int(h)
	img := Image{Width: width, Height: height}
	if width == 0 || height == 0 {
		return img, nil
	}

	lookup := make([]uint16, height)
	for y := range lookup {
		if lookup[y], err = c.ReadU16(); err != nil {
			return Image{}, fmt.Errorf("%w: static row table: %w", ErrCorruptFrame, err)
		}
	}
	start := c.Position()

	img.Pixels = make([]uint16, width*height)
	for y := range height {
		if err := c.Seek(start + int64(lookup[y])*2); err != nil {
			return Image{}, fmt.Errorf("%w: static row %d: %w", ErrCorruptFrame, y, err)
		}
		x := 0
		for {
			xOffset, err := c.ReadU16()
			if err != nil {
				return Image{}, fmt.Errorf("%w: static row %d: %w", ErrCorruptFrame, y, err)
			}
			run, err := c.ReadU16()
			if err != nil {
				return Image{}, fmt.Errorf("%w: static row %d: %w", ErrCorruptFrame, y, err)
			}
			if sum := int(xOffset) + int(run); sum == 0 || sum >= 2048 {
				break
			}
			x += int(xOffset)
			if x+int(run) > width {
				return Image{}, fmt.Errorf("%w: static row %d overruns width %d", ErrCorruptFrame, y, width)
			}
			pos := y*width + x
			for i := range int(run) {
				v, err := c.ReadU16()
				if err != nil {
					return Image{}, fmt.Errorf("%w: static row %d: %w", ErrCorruptFrame, y, err)
				}
				if v != 0 {
					v |= Alpha
				}
				img.Pixels[pos+i] = v
			}
			x += int(run)
		}
	}
	return img, nil
}
