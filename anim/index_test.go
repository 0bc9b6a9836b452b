package anim

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/internal/testutil"
	"github.com/meigma/uodata/sprite"
	"github.com/meigma/uodata/uop"
	"github.com/meigma/uodata/verdata"
)

var testPalette = func() [256]uint16 {
	var p [256]uint16
	for i := range p {
		p[i] = uint16(i) << 5
	}
	return p
}()

func testFrames(seed byte, n int) []testutil.Frame {
	frames := make([]testutil.Frame, n)
	for i := range frames {
		f := testutil.Frame{CenterX: 2, CenterY: -1, Width: 4, Height: 3}
		f.Indices = make([]byte, 12)
		for j := range f.Indices {
			if (j+i)%4 != 0 {
				f.Indices[j] = seed + byte(j)
			}
		}
		frames[i] = f
	}
	return frames
}

func classicBlob(seed byte) ([]byte, []testutil.Frame) {
	frames := testFrames(seed, 2)
	return testutil.ClassicAnimBlob(testPalette, frames), frames
}

// fixture writes anim files into a temporary directory.
type fixture struct {
	t     *testing.T
	dir   string
	anim  [ClassicFiles][]testutil.MulEntry
	rules map[string]string
	uop   []testutil.UOPEntry
	ver   []testutil.VerdataEntry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, dir: t.TempDir(), rules: map[string]string{}}
	f.anim[0] = make([]testutil.MulEntry, humanBase+humanStride)
	return f
}

func (f *fixture) put(file, block int, data []byte) {
	if f.anim[file] == nil || len(f.anim[file]) <= block {
		grown := make([]testutil.MulEntry, block+1)
		copy(grown, f.anim[file])
		f.anim[file] = grown
	}
	f.anim[file][block] = testutil.MulEntry{Data: data}
}

func (f *fixture) build(version ClientVersion) *Index {
	f.t.Helper()
	for i, entries := range f.anim {
		if entries == nil {
			continue
		}
		dataName, idxName := classicNames(i)
		testutil.WriteMul(f.t, f.dir, dataName, idxName, entries)
	}
	for name, body := range f.rules {
		testutil.WriteFile(f.t, f.dir, name, []byte(body))
	}
	if f.uop != nil {
		testutil.WriteFile(f.t, f.dir, "AnimationFrame1.uop", testutil.BuildUOP(f.t, f.uop, testutil.UOPOptions{}))
	}

	var patches *verdata.Table
	if f.ver != nil {
		path := testutil.WriteFile(f.t, f.dir, "verdata.mul", testutil.BuildVerdata(f.ver))
		var err error
		patches, err = verdata.Load(path)
		require.NoError(f.t, err)
		f.t.Cleanup(func() { _ = patches.Close() })
	}

	x, err := Build(Config{Dir: f.dir, Version: version, Patches: patches})
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = x.Close() })
	return x
}

func requireFrames(t *testing.T, want []testutil.Frame, pal [256]uint16, got []sprite.Frame) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].CenterX, got[i].CenterX, "frame %d", i)
		assert.Equal(t, want[i].Width, got[i].Width, "frame %d", i)
		assert.Equal(t, testutil.Expected(pal, want[i]), got[i].Pixels, "frame %d", i)
	}
}

func TestLayoutArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    int
		typ   GroupType
		block int
	}{
		{0, Monster, 0},
		{199, Monster, 199 * 110},
		{200, Animal, 22000},
		{399, Animal, 199*65 + 22000},
		{400, Human, 35000},
		{401, Human, 35175},
		{2047, Human, 1647*175 + 35000},
	}
	for _, tt := range tests {
		typ, block := BaseBlock(tt.id)
		assert.Equal(t, tt.typ, typ, "id %d", tt.id)
		assert.Equal(t, tt.block, block, "id %d", tt.id)
		assert.Equal(t, tt.typ, Classify(tt.id))
	}

	for _, id := range []int{0, 57, 199, 200, 333, 399, 400, 1000, 2047} {
		typ, start := BaseBlock(id)
		for g := range typ.Groups() {
			for d := range Directions {
				gotID, gotG, gotD, ok := SlotOfBlock(start + g*Directions + d)
				require.True(t, ok)
				require.Equal(t, [3]int{id, g, d}, [3]int{gotID, gotG, gotD})
			}
		}
	}

	_, _, _, ok := SlotOfBlock(-1)
	assert.False(t, ok)
	_, _, _, ok = SlotOfBlock(humanBase + humanStride*(MaxGraphics-400))
	assert.False(t, ok)
}

func TestGroupTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 22, Monster.Groups())
	assert.Equal(t, 22, SeaMonster.Groups())
	assert.Equal(t, 13, Animal.Groups())
	assert.Equal(t, 35, Human.Groups())
	assert.Equal(t, 35, Equipment.Groups())

	assert.Equal(t, [2]int{2, 3}, Monster.DieGroups())
	assert.Equal(t, [2]int{8, 12}, Animal.DieGroups())
	assert.Equal(t, [2]int{21, 22}, Human.DieGroups())

	for _, typ := range []GroupType{Monster, SeaMonster, Animal, Human, Equipment} {
		got, ok := ParseGroupType(strings.ToUpper(typ.String()))
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseGroupType("dragon")
	assert.False(t, ok)
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("7.0.15.1")
	require.NoError(t, err)
	assert.Equal(t, Version(7, 0, 15, 1), v)
	assert.Equal(t, "7.0.15.1", v.String())

	v, err = ParseVersion("5.0.0a")
	require.NoError(t, err)
	assert.Equal(t, Version(5, 0, 0, 1), v)
	assert.GreaterOrEqual(t, v, CV500A)

	v, err = ParseVersion("4.0.11c")
	require.NoError(t, err)
	assert.Less(t, v, CV500A)

	_, err = ParseVersion("seven")
	require.Error(t, err)
}

func TestHumanBoundaryBlock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data, frames := classicBlob(10)
	f.put(0, 35000, data)
	x := f.build(0)

	d, err := x.Direction(400, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), d.Size)
	assert.Equal(t, d.BaseAddress, d.Address)
	assert.Equal(t, 0, d.FileIndex)
	assert.False(t, d.IsUOP)

	info, err := x.Info(400)
	require.NoError(t, err)
	assert.Equal(t, Human, info.Type)

	got, err := x.Frames(400, 0, 0)
	require.NoError(t, err)
	requireFrames(t, frames, testPalette, got)

	d, err = x.Direction(400, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, d.FrameCount)

	_, err = x.Direction(400, 0, 1)
	require.ErrorIs(t, err, entry.ErrMissing)
	_, err = x.Direction(MaxGraphics, 0, 0)
	require.ErrorIs(t, err, entry.ErrOutOfRange)
	_, err = x.Direction(0, 0, Directions)
	require.ErrorIs(t, err, entry.ErrOutOfRange)
}

func TestFramesIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data, _ := classicBlob(3)
	f.put(0, 35000+5, data) // group 1, direction 0
	x := f.build(0)

	const callers = 16
	results := make([][]sprite.Frame, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frames, err := x.Frames(400, 1, 0)
			assert.NoError(t, err)
			results[i] = frames
		}()
	}
	wg.Wait()

	for i := range results {
		require.Len(t, results[i], 2)
		assert.Equal(t, results[0], results[i])
		assert.True(t, &results[0][0] == &results[i][0], "callers share the published slice")
	}
}

func TestUOPTakesPrecedence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	classic, _ := classicBlob(1)
	f.put(0, 35000, classic)
	f.put(0, 35000+5, classic)

	var uframes []testutil.UOPFrame
	for id := uint16(1); id <= 10; id++ {
		uframes = append(uframes, testutil.UOPFrame{Group: 0, FrameID: id, Palette: testPalette, Frame: testFrames(byte(id), 1)[0]})
	}
	f.uop = []testutil.UOPEntry{
		{Hash: uop.HashFileName(UOPName(400, 0)), Data: testutil.UOPAnimBlob(uframes), Compress: true},
		{Hash: uop.HashFileName(UOPName(700, 40)), Data: testutil.UOPAnimBlob(uframes)},
	}
	x := f.build(0)

	d, err := x.Direction(400, 0, 0)
	require.NoError(t, err)
	assert.True(t, d.IsUOP)
	assert.Zero(t, d.BaseAddress)
	assert.Zero(t, d.BaseSize)

	d, err = x.Direction(400, 1, 0)
	require.NoError(t, err)
	assert.False(t, d.IsUOP, "groups without a uop entry stay classic")

	got, err := x.Frames(400, 0, 2)
	require.NoError(t, err)
	requireFrames(t, []testutil.Frame{uframes[4].Frame, uframes[5].Frame}, testPalette, got)

	d, err = x.Direction(400, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, d.FrameCount, "the whole group is published at once")

	assert.Equal(t, 41, x.Groups(700))
	info, err := x.Info(700)
	require.NoError(t, err)
	assert.True(t, info.UOP)
}

func TestVerdataPatchesDirection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	patched, frames := classicBlob(40)
	f.ver = []testutil.VerdataEntry{
		{File: verdata.FileAnim, Index: 110 + 1*Directions + 0, Data: patched},
		{File: verdata.FileAnim, Index: 1 << 30, Data: []byte{1}},
		{File: verdata.FileArt, Index: 110, Data: []byte{1}},
	}
	x := f.build(0)

	d, err := x.Direction(1, 1, 0)
	require.NoError(t, err)
	assert.True(t, d.IsVerdata)

	got, err := x.Frames(1, 1, 0)
	require.NoError(t, err)
	requireFrames(t, frames, testPalette, got)

	_, err = x.Direction(1, 0, 0)
	require.ErrorIs(t, err, ErrNoData)
}

func TestBuildRequiresAnimMul(t *testing.T) {
	t.Parallel()

	_, err := Build(Config{Dir: t.TempDir()})
	require.Error(t, err)
}
