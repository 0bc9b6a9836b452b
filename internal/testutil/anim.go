package testutil

// Frame is a synthetic sprite frame expressed as palette indices.
// Index 0 is transparent and never encoded.
type Frame struct {
	CenterX int16
	CenterY int16
	Width   int16
	Height  int16

	// Indices holds Width*Height palette indices in row-major order.
	Indices []byte
}

// UOPFrame places a Frame inside a UOP animation blob.
type UOPFrame struct {
	Group   uint16
	FrameID uint16
	Palette [256]uint16
	Frame   Frame
}

const rleEnd = 0x7FFF7FFF

// EncodeRLE encodes the non-zero runs of f as RLE headers followed by their
// indices, terminated by the end sentinel.
func EncodeRLE(f Frame) []byte {
	var b Buffer
	w, h := int(f.Width), int(f.Height)
	for y := range h {
		row := f.Indices[y*w : (y+1)*w]
		for x := 0; x < w; {
			if row[x] == 0 {
				x++
				continue
			}
			start := x
			for x < w && row[x] != 0 && x-start < 0xFFF {
				x++
			}
			dx := uint32(start-int(f.CenterX)) & 0x3FF
			dy := uint32(y-int(f.CenterY)-h) & 0x3FF
			b.U32(dx<<22 | dy<<12 | uint32(x-start))
			b.Raw(row[start:x])
		}
	}
	b.U32(rleEnd)
	return b.Bytes()
}

// EncodeFrame encodes the frame header and its RLE stream.
func EncodeFrame(f Frame) []byte {
	var b Buffer
	b.I16(f.CenterX).I16(f.CenterY).I16(f.Width).I16(f.Height)
	if f.Width > 0 && f.Height > 0 {
		b.Raw(EncodeRLE(f))
	}
	return b.Bytes()
}

func writePalette(b *Buffer, palette [256]uint16) {
	for _, v := range palette {
		b.U16(v)
	}
}

// ClassicAnimBlob encodes frames as a classic anim.mul direction block:
// palette, frame count, offset table, frames.
func ClassicAnimBlob(palette [256]uint16, frames []Frame) []byte {
	var b Buffer
	writePalette(&b, palette)

	encoded := make([][]byte, len(frames))
	offset := 4 + 4*len(frames)
	b.U32(uint32(len(frames)))
	for i, f := range frames {
		encoded[i] = EncodeFrame(f)
		b.U32(uint32(offset))
		offset += len(encoded[i])
	}
	for _, e := range encoded {
		b.Raw(e)
	}
	return b.Bytes()
}

// UOPAnimBlob encodes frames as an AnimationFrame*.uop group payload.
func UOPAnimBlob(frames []UOPFrame) []byte {
	const (
		dataStart   = 40
		frameHeader = 16
	)
	var b Buffer
	b.Raw([]byte("AMOU")).U32(5)
	b.Raw(make([]byte, 32-b.Len()))
	b.U32(uint32(len(frames))).U32(dataStart)

	bodies := make([][]byte, len(frames))
	pos := dataStart + frameHeader*len(frames)
	for i, f := range frames {
		var body Buffer
		writePalette(&body, f.Palette)
		body.Raw(EncodeFrame(f.Frame))
		bodies[i] = body.Bytes()

		headerStart := dataStart + frameHeader*i
		b.U16(f.Group).U16(f.FrameID).Raw(make([]byte, 8)).U32(uint32(pos - headerStart))
		pos += len(bodies[i])
	}
	for _, body := range bodies {
		b.Raw(body)
	}
	return b.Bytes()
}

// Expected returns the ARGB1555 pixels a decoder must produce for f.
func Expected(palette [256]uint16, f Frame) []uint16 {
	if f.Width <= 0 || f.Height <= 0 {
		return nil
	}
	out := make([]uint16, int(f.Width)*int(f.Height))
	for i, idx := range f.Indices {
		if idx == 0 {
			continue
		}
		if v := palette[idx]; v != 0 {
			out[i] = v | 0x8000
		}
	}
	return out
}
