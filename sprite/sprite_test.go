package sprite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/internal/testutil"
)

func testPalette() [256]uint16 {
	var p [256]uint16
	for i := range p {
		p[i] = uint16(i * 3)
	}
	p[5] = 0 // a zero color inside an encoded run
	return p
}

func testFrame(w, h int16, cx, cy int16) testutil.Frame {
	f := testutil.Frame{CenterX: cx, CenterY: cy, Width: w, Height: h}
	f.Indices = make([]byte, int(w)*int(h))
	for i := range f.Indices {
		if i%7 == 3 {
			continue
		}
		f.Indices[i] = byte(i%250 + 1)
	}
	return f
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	t.Parallel()

	pal := testPalette()
	p := Palette(pal)
	tests := []struct {
		name  string
		frame testutil.Frame
	}{
		{"centered", testFrame(16, 12, 8, -4)},
		{"negative center", testFrame(9, 30, -3, -40)},
		{"single pixel", testFrame(1, 1, 0, 0)},
		{"wide row", testFrame(300, 2, 150, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := archive.NewCursor(archive.FromBytes("", testutil.EncodeFrame(tt.frame)))
			got, err := DecodeFrame(c, &p)
			require.NoError(t, err)
			assert.Equal(t, tt.frame.CenterX, got.CenterX)
			assert.Equal(t, tt.frame.CenterY, got.CenterY)
			assert.Equal(t, testutil.Expected(pal, tt.frame), got.Pixels)
			assert.True(t, c.EOF())
		})
	}
}

func TestDecodeFrameAlphaOnlyForNonZeroColors(t *testing.T) {
	t.Parallel()

	pal := testPalette()
	p := Palette(pal)
	f := testutil.Frame{Width: 3, Height: 1, Indices: []byte{4, 5, 6}}
	c := archive.NewCursor(archive.FromBytes("", testutil.EncodeFrame(f)))

	got, err := DecodeFrame(c, &p)
	require.NoError(t, err)
	assert.Equal(t, []uint16{12 | Alpha, 0, 18 | Alpha}, got.Pixels)
}

func TestDecodeFrameSentinelFirst(t *testing.T) {
	t.Parallel()

	var b testutil.Buffer
	b.I16(0).I16(0).U16(4).U16(4).U32(EndOfFrame)
	b.U32(0x12345678) // never read

	var p Palette
	c := archive.NewCursor(archive.FromBytes("", b.Bytes()))
	got, err := DecodeFrame(c, &p)
	require.NoError(t, err)
	assert.Equal(t, make([]uint16, 16), got.Pixels)
	assert.Equal(t, int64(4), c.Remaining())
}

func TestDecodeFrameEmpty(t *testing.T) {
	t.Parallel()

	var p Palette
	for _, wh := range [][2]uint16{{0, 5}, {5, 0}, {0x8000, 1}} {
		var b testutil.Buffer
		b.I16(1).I16(2).U16(wh[0]).U16(wh[1])
		got, err := DecodeFrame(archive.NewCursor(archive.FromBytes("", b.Bytes())), &p)
		require.NoError(t, err)
		assert.True(t, got.Empty())
		assert.Nil(t, got.Pixels)
	}
}

func TestDecodeFrameRunWrapsRowStart(t *testing.T) {
	t.Parallel()

	pal := testPalette()
	p := Palette(pal)

	var b testutil.Buffer
	b.I16(0).I16(-2).U16(4).U16(2)
	b.U32(0x3FF<<22 | 1<<12 | 2) // x = -1, y = 1 - 2 + 2 = 1, index 3
	b.Raw([]byte{4, 6})
	b.U32(EndOfFrame)

	got, err := DecodeFrame(archive.NewCursor(archive.FromBytes("", b.Bytes())), &p)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 0, 0, 12 | Alpha, 18 | Alpha, 0, 0, 0}, got.Pixels)

	var before testutil.Buffer
	before.I16(0).I16(0).U16(4).U16(2)
	before.U32(0x3FF<<22 | 0x3FE<<12 | 1) // x = -1, y = 0, index -1
	before.Raw([]byte{4})
	_, err = DecodeFrame(archive.NewCursor(archive.FromBytes("", before.Bytes())), &p)
	require.ErrorIs(t, err, ErrCorruptFrame)
}

func TestDecodeFrameCorrupt(t *testing.T) {
	t.Parallel()

	var p Palette

	var outside testutil.Buffer
	outside.I16(0).I16(0).U16(2).U16(2)
	outside.U32(0<<22 | 0<<12 | 3) // y = 0 + 0 + height = 2, past the last row
	outside.Raw([]byte{1, 1, 1})
	_, err := DecodeFrame(archive.NewCursor(archive.FromBytes("", outside.Bytes())), &p)
	require.ErrorIs(t, err, ErrCorruptFrame)

	var truncated testutil.Buffer
	truncated.I16(0).I16(0).U16(2).U16(2)
	truncated.U32(0x3FE<<12 | 2) // y = -2 + 2 = 0
	truncated.Raw([]byte{1})
	_, err = DecodeFrame(archive.NewCursor(archive.FromBytes("", truncated.Bytes())), &p)
	require.ErrorIs(t, err, ErrCorruptFrame)

	_, err = DecodeFrame(archive.NewCursor(archive.FromBytes("", nil)), nil)
	require.ErrorIs(t, err, ErrNoPalette)
}

func TestSignExtend10(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, signExtend10(0))
	assert.Equal(t, 511, signExtend10(0x1FF))
	assert.Equal(t, -512, signExtend10(0x200))
	assert.Equal(t, -1, signExtend10(0x3FF))
	assert.Equal(t, -1, signExtend10(0xFFFFFFFF))
}

func TestDecodeClassic(t *testing.T) {
	t.Parallel()

	pal := testPalette()
	frames := []testutil.Frame{
		testFrame(10, 10, 5, 0),
		{Width: 0, Height: 0},
		testFrame(4, 7, 0, -7),
	}
	got, err := DecodeClassic(testutil.ClassicAnimBlob(pal, frames))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, f := range frames {
		assert.Equal(t, testutil.Expected(pal, f), got[i].Pixels, "frame %d", i)
	}
	assert.True(t, got[1].Empty())

	_, err = DecodeClassic(make([]byte, 100))
	require.ErrorIs(t, err, ErrCorruptFrame)
}

func TestDecodeUOPAndSplitDirections(t *testing.T) {
	t.Parallel()

	palA := testPalette()
	var palB [256]uint16
	for i := range palB {
		palB[i] = 0x1234
	}

	var frames []testutil.UOPFrame
	for id := uint16(1); id <= 10; id++ {
		if id == 4 {
			continue // gap filled with an empty frame
		}
		pal := palA
		if id%2 == 0 {
			pal = palB
		}
		frames = append(frames, testutil.UOPFrame{Group: 3, FrameID: id, Palette: pal, Frame: testFrame(3, 2, 1, 0)})
	}

	got, err := DecodeUOP(testutil.UOPAnimBlob(frames))
	require.NoError(t, err)
	require.Len(t, got, 9)
	for i, f := range frames {
		assert.Equal(t, f.FrameID, got[i].FrameID)
		assert.Equal(t, uint16(3), got[i].Group)
		assert.Equal(t, testutil.Expected(f.Palette, f.Frame), got[i].Frame.Pixels)
	}

	dirs := SplitDirections(got)
	for d := range dirs {
		require.Len(t, dirs[d], 2, "direction %d", d)
	}
	assert.True(t, dirs[1][1].Empty(), "frame id 4 is the second frame of direction 1")
	assert.False(t, dirs[4][1].Empty())

	_, err = DecodeUOP([]byte("NOPE"))
	require.ErrorIs(t, err, ErrBadMagic)

	assert.Equal(t, [Directions][]Frame{}, SplitDirections(nil))
}

func TestDecodeGump(t *testing.T) {
	t.Parallel()

	// 3x2: row 0 = {0x10 x2, 0 x1}, row 1 = {0x20 x3}
	var b testutil.Buffer
	b.I32(2).I32(4)
	b.U16(0x10).U16(2).U16(0).U16(1)
	b.U16(0x20).U16(3)

	w, h := GumpSize(3<<16 | 2)
	require.Equal(t, 3, w)
	require.Equal(t, 2, h)

	img, err := DecodeGump(b.Bytes(), w, h)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x10 | Alpha, 0x10 | Alpha, 0, 0x20 | Alpha, 0x20 | Alpha, 0x20 | Alpha}, img.Pixels)

	var over testutil.Buffer
	over.I32(1).U16(1).U16(9)
	_, err = DecodeGump(over.Bytes(), 3, 1)
	require.ErrorIs(t, err, ErrCorruptFrame)

	img, err = DecodeGump(nil, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, img.Pixels)
}

func TestDecodeLand(t *testing.T) {
	t.Parallel()

	var b testutil.Buffer
	for i := range 1012 {
		b.U16(uint16(i + 1))
	}
	img, err := DecodeLand(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, LandSize, img.Width)
	assert.Equal(t, uint16(1|Alpha), img.Pixels[21])
	assert.Equal(t, uint16(2|Alpha), img.Pixels[22])
	assert.Equal(t, uint16(0), img.Pixels[0])
	assert.Equal(t, uint16(1012|Alpha), img.Pixels[43*LandSize+22])

	_, err = DecodeLand(b.Bytes()[:100])
	require.ErrorIs(t, err, ErrCorruptFrame)
}

func TestDecodeStatic(t *testing.T) {
	t.Parallel()

	// 4x2 tile: row 0 has pixels at x=1..2, row 1 at x=0 and x=3.
	var b testutil.Buffer
	b.U32(0).U16(4).U16(2)
	b.U16(0).U16(6) // row offsets in words after the table
	b.U16(1).U16(2).U16(0x11).U16(0).U16(0).U16(0)
	b.U16(0).U16(1).U16(0x22).U16(2).U16(1).U16(0x33).U16(0).U16(0)

	img, err := DecodeStatic(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, []uint16{0, 0x11 | Alpha, 0, 0, 0x22 | Alpha, 0, 0, 0x33 | Alpha}, img.Pixels)

	var over testutil.Buffer
	over.U32(0).U16(2).U16(1).U16(0).U16(1).U16(5).U16(1).U16(1).U16(1).U16(1).U16(1).U16(0).U16(0)
	_, err = DecodeStatic(over.Bytes())
	require.ErrorIs(t, err, ErrCorruptFrame)
}
