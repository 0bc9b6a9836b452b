package uop

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/internal/testutil"
)

func TestHashFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0xCE7226E617770551), HashFileName("Four score and seven years ago"))
	assert.Equal(t, uint64(0xDEADBEEF)<<32, HashFileName(""))

	a := HashFileName("build/artlegacymul/00000000.tga")
	b := HashFileName("build/artlegacymul/00000001.tga")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashFileName("build/artlegacymul/00000000.tga"))

	// Lengths around the 12-byte block boundary take different tail paths.
	seen := map[uint64]string{}
	for n := 1; n <= 25; n++ {
		s := string(bytes.Repeat([]byte{'a'}, n))
		h := HashFileName(s)
		prev, dup := seen[h]
		require.False(t, dup, "%q collides with %q", s, prev)
		seen[h] = s
	}
}

func writeArchive(t *testing.T, name string, entries []testutil.UOPEntry, opts testutil.UOPOptions) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), name, testutil.BuildUOP(t, entries, opts))
}

func artName(id int) string {
	return fmt.Sprintf("build/artlegacymul/%08d.tga", id)
}

func TestArrayMode(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, "artLegacyMUL.uop", []testutil.UOPEntry{
		{Hash: HashFileName(artName(0)), Data: []byte{1, 2, 3}},
		{Hash: HashFileName(artName(2)), Data: bytes.Repeat([]byte{7}, 64), Compress: true},
		{Hash: HashFileName(artName(3)), Data: []byte{9}, Header: []byte{0xEE, 0xEE, 0xEE, 0xEE}},
		{Hash: HashFileName("build/other/00000000.tga"), Data: []byte{5}},
	}, testutil.UOPOptions{BlockSize: 3})

	a, err := Open(path, WithExpectedCount(5), WithExtension(".tga"))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 5, a.Len())
	assert.Equal(t, 4, a.Count())
	assert.Equal(t, artName(4), a.Name(4))

	data, res, err := a.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.False(t, res.Compressed)

	_, err = a.SeekByEntryIndex(1)
	require.ErrorIs(t, err, entry.ErrMissing)

	data, res, err = a.Read(2)
	require.NoError(t, err)
	assert.True(t, res.Compressed)
	assert.Equal(t, int32(64), res.DecompressedLength)
	assert.Equal(t, bytes.Repeat([]byte{7}, 64), data)

	data, _, err = a.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data, "payload starts after the per-file header")

	rec, err := a.Record(2)
	require.NoError(t, err)
	assert.True(t, rec.UOP())
	stored, ok := a.Lookup(HashFileName(artName(2)))
	require.True(t, ok)
	assert.Equal(t, int32(stored.CompressedLength), rec.Length, "record length is the stored size")
	assert.Less(t, rec.Length, res.Length)
	assert.Equal(t, res.Length, rec.DecompressedLength, "resolved length is the inflated size")

	rec, err = a.Record(1)
	require.NoError(t, err)
	assert.False(t, rec.Valid())

	_, err = a.SeekByEntryIndex(5)
	require.ErrorIs(t, err, entry.ErrOutOfRange)

	data, err = mustBytes(a.SeekByName("BUILD/OTHER/00000000.TGA"))
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, data)
}

func mustBytes(res entry.Resolved, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return res.Bytes()
}

func TestHashModeWithoutArray(t *testing.T) {
	t.Parallel()

	name := "build/animationlegacyframe/000400/00.bin"
	path := writeArchive(t, "AnimationFrame1.uop", []testutil.UOPEntry{
		{Hash: HashFileName(name), Data: []byte("AMOU")},
	}, testutil.UOPOptions{})

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 0, a.Len())
	_, err = a.SeekByEntryIndex(0)
	require.ErrorIs(t, err, ErrNoArray)

	_, ok := a.Lookup(HashFileName(name))
	assert.True(t, ok)

	data, err := mustBytes(a.SeekByHash(HashFileName(name)))
	require.NoError(t, err)
	assert.Equal(t, []byte("AMOU"), data)

	_, err = a.SeekByHash(1)
	require.ErrorIs(t, err, entry.ErrMissing)
}

func TestExtraPair(t *testing.T) {
	t.Parallel()

	gump := func(id int) string { return fmt.Sprintf("build/gumpartlegacymul/%08d.tga", id) }
	withExtra := func(w, h int32, payload []byte) []byte {
		var b testutil.Buffer
		b.I32(w).I32(h).Raw(payload)
		return b.Bytes()
	}

	path := writeArchive(t, "gumpartLegacyMUL.uop", []testutil.UOPEntry{
		{Hash: HashFileName(gump(0)), Data: withExtra(44, 22, []byte{1, 2})},
		{Hash: HashFileName(gump(1)), Data: withExtra(10, 20, bytes.Repeat([]byte{3}, 40)), Compress: true},
	}, testutil.UOPOptions{})

	a, err := Open(path, WithPattern("build/gumpartlegacymul/%08d"), WithExtension(".tga"), WithExpectedCount(2), WithExtra())
	require.NoError(t, err)
	defer a.Close()

	rec, err := a.Record(0)
	require.NoError(t, err)
	assert.Equal(t, int32(44<<16|22), rec.Extra)
	assert.Equal(t, int32(2), rec.Length)

	data, res, err := a.Read(0)
	require.NoError(t, err)
	assert.Equal(t, int32(44<<16|22), res.Extra)
	assert.Equal(t, []byte{1, 2}, data)

	data, res, err = a.Read(1)
	require.NoError(t, err)
	assert.Equal(t, int32(10<<16|20), res.Extra)
	assert.Equal(t, bytes.Repeat([]byte{3}, 40), data)
	assert.Equal(t, int32(40), res.Length)

	rec, err = a.Record(1)
	require.NoError(t, err)
	assert.Equal(t, int32(48), rec.DecompressedLength, "extra pair is still inside the stream")
	assert.Less(t, rec.Length, rec.DecompressedLength)
}

func TestDecompressionFailureIsMissing(t *testing.T) {
	t.Parallel()

	var b testutil.Buffer
	b.U32(Magic).U32(5).U32(0).I64(40).I32(1).I32(1)
	b.Raw([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0, 0, 0, 0, 0}) // bogus payload at 28
	b.I32(1).I64(0)
	b.I64(28).I32(0).I32(12).I32(100).U64(HashFileName("x")).U32(0).U16(1)

	path := testutil.WriteFile(t, t.TempDir(), "bad.uop", b.Bytes())
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.SeekByName("x")
	require.ErrorIs(t, err, entry.ErrMissing)
	require.ErrorIs(t, err, ErrDecompression)
}

func TestOpenInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "none.uop"))
	require.ErrorIs(t, err, archive.ErrNotFound)

	bad := testutil.WriteFile(t, dir, "bad.uop", testutil.BuildUOP(t, nil, testutil.UOPOptions{Magic: 0x12345678}))
	_, err = Open(bad)
	require.ErrorIs(t, err, ErrInvalidFormat)

	var loop testutil.Buffer
	loop.U32(Magic).U32(5).U32(0).I64(28).I32(0).I32(0)
	loop.I32(0).I64(28)
	_, err = Open(testutil.WriteFile(t, dir, "loop.uop", loop.Bytes()))
	require.ErrorIs(t, err, ErrInvalidFormat)

	var overrun testutil.Buffer
	overrun.U32(Magic).U32(5).U32(0).I64(28).I32(0).I32(0)
	overrun.I32(50).I64(0)
	_, err = Open(testutil.WriteFile(t, dir, "overrun.uop", overrun.Bytes()))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestHolesAreSkipped(t *testing.T) {
	t.Parallel()

	entries := make([]testutil.UOPEntry, 5)
	for i := range entries {
		entries[i] = testutil.UOPEntry{Hash: HashFileName(artName(i)), Data: []byte{byte(i + 1)}}
	}
	// Five entries in blocks of four leave three hole slots in the last block.
	path := writeArchive(t, "artLegacyMUL.uop", entries, testutil.UOPOptions{BlockSize: 4})

	a, err := Open(path, WithPattern("build/artlegacymul/%08d"), WithExtension(".tga"), WithExpectedCount(8))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 5, a.Count())
	for id := range 8 {
		data, _, err := a.Read(id)
		if id >= 5 {
			require.ErrorIs(t, err, entry.ErrMissing)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(id + 1)}, data)
	}
}
