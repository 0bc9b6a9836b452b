// Package testutil builds synthetic Ultima Online data files for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// Buffer is a little-endian byte builder.
type Buffer struct {
	bytes.Buffer
}

// U8 appends a byte.
func (b *Buffer) U8(v uint8) *Buffer { b.WriteByte(v); return b }

// U16 appends a little-endian uint16.
func (b *Buffer) U16(v uint16) *Buffer {
	b.Write(binary.LittleEndian.AppendUint16(nil, v))
	return b
}

// I16 appends a little-endian int16.
func (b *Buffer) I16(v int16) *Buffer { return b.U16(uint16(v)) }

// U32 appends a little-endian uint32.
func (b *Buffer) U32(v uint32) *Buffer {
	b.Write(binary.LittleEndian.AppendUint32(nil, v))
	return b
}

// I32 appends a little-endian int32.
func (b *Buffer) I32(v int32) *Buffer { return b.U32(uint32(v)) }

// U64 appends a little-endian uint64.
func (b *Buffer) U64(v uint64) *Buffer {
	b.Write(binary.LittleEndian.AppendUint64(nil, v))
	return b
}

// I64 appends a little-endian int64.
func (b *Buffer) I64(v int64) *Buffer { return b.U64(uint64(v)) }

// Raw appends p.
func (b *Buffer) Raw(p []byte) *Buffer { b.Write(p); return b }

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// IdxRecord is one 12-byte classic index record.
type IdxRecord struct {
	Offset uint32
	Length uint32
	Extra  uint32
}

// AbsentRecord is an idx record with the 0xFFFFFFFF offset sentinel.
var AbsentRecord = IdxRecord{Offset: 0xFFFFFFFF, Length: 0xFFFFFFFF}

// BuildIdx encodes idx records.
func BuildIdx(records []IdxRecord) []byte {
	var b Buffer
	for _, r := range records {
		b.U32(r.Offset).U32(r.Length).U32(r.Extra)
	}
	return b.Bytes()
}

// MulEntry is one resource of a synthetic mul file. Nil Data produces an
// absent idx record.
type MulEntry struct {
	Data  []byte
	Extra uint32
}

// BuildMul concatenates entry data and returns the mul and idx contents.
func BuildMul(entries []MulEntry) (mul, idx []byte) {
	var data Buffer
	records := make([]IdxRecord, len(entries))
	for i, e := range entries {
		if e.Data == nil {
			records[i] = AbsentRecord
			continue
		}
		records[i] = IdxRecord{Offset: uint32(data.Len()), Length: uint32(len(e.Data)), Extra: e.Extra}
		data.Raw(e.Data)
	}
	return data.Bytes(), BuildIdx(records)
}

// WriteMul writes a mul/idx pair into dir and returns their paths.
func WriteMul(tb testing.TB, dir, mulName, idxName string, entries []MulEntry) (mulPath, idxPath string) {
	tb.Helper()
	mul, idx := BuildMul(entries)
	if len(mul) == 0 {
		mul = []byte{0}
	}
	return WriteFile(tb, dir, mulName, mul), WriteFile(tb, dir, idxName, idx)
}

// VerdataEntry is one patch written into a synthetic verdata.mul.
type VerdataEntry struct {
	File  int32
	Index int32
	Data  []byte
	Extra int32
}

// BuildVerdata encodes a verdata.mul with the patch payloads appended after
// the record table.
func BuildVerdata(entries []VerdataEntry) []byte {
	var b Buffer
	b.I32(int32(len(entries)))
	offset := 4 + 20*len(entries)
	for _, e := range entries {
		b.I32(e.File).I32(e.Index).I32(int32(offset)).I32(int32(len(e.Data))).I32(e.Extra)
		offset += len(e.Data)
	}
	for _, e := range entries {
		b.Raw(e.Data)
	}
	return b.Bytes()
}

// Deflate compresses data with zlib.
func Deflate(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("zlib close: %v", err)
	}
	return out.Bytes()
}
