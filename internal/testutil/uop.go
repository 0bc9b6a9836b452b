package testutil

import "testing"

const (
	uopMagic     = 0x50594D
	uopVersion   = 5
	uopSignature = 0xFD23EC43
	uopHeaderLen = 28
	uopEntryLen  = 34
)

// UOPEntry is one file stored in a synthetic UOP archive.
type UOPEntry struct {
	// Hash is the path hash the entry is filed under.
	Hash uint64

	// Data is the uncompressed payload.
	Data []byte

	// Compress stores Data zlib-compressed with flag 1.
	Compress bool

	// Header is an optional per-file header written before the payload.
	Header []byte
}

// UOPOptions controls the layout of a synthetic UOP archive.
type UOPOptions struct {
	// BlockSize is the number of entry slots per block. Unused slots are
	// written as holes. Zero puts every entry in one block.
	BlockSize int

	// Magic overrides the archive magic when non-zero.
	Magic uint32
}

// BuildUOP encodes entries as a UOP archive: header, payloads, then the
// block chain.
func BuildUOP(tb testing.TB, entries []UOPEntry, opts UOPOptions) []byte {
	tb.Helper()

	magic := opts.Magic
	if magic == 0 {
		magic = uopMagic
	}
	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = max(len(entries), 1)
	}
	blocks := (len(entries) + blockSize - 1) / blockSize
	if blocks == 0 {
		blocks = 1
	}

	type stored struct {
		offset    int64
		headerLen int32
		compLen   int32
		decompLen int32
		flag      uint16
		payload   []byte
		hdr       []byte
		hash      uint64
	}
	files := make([]stored, len(entries))
	offset := int64(uopHeaderLen)
	for i, e := range entries {
		payload := e.Data
		var flag uint16
		if e.Compress {
			payload = Deflate(tb, e.Data)
			flag = 1
		}
		files[i] = stored{
			offset:    offset,
			headerLen: int32(len(e.Header)),
			compLen:   int32(len(payload)),
			decompLen: int32(len(e.Data)),
			flag:      flag,
			payload:   payload,
			hdr:       e.Header,
			hash:      e.Hash,
		}
		offset += int64(len(e.Header) + len(payload))
	}

	var b Buffer
	b.U32(magic).U32(uopVersion).U32(uopSignature).I64(offset).I32(int32(blockSize)).I32(int32(len(entries)))
	for _, f := range files {
		b.Raw(f.hdr).Raw(f.payload)
	}

	blockLen := int64(12 + uopEntryLen*blockSize)
	for blk := range blocks {
		next := int64(0)
		if blk < blocks-1 {
			next = offset + blockLen*int64(blk+1)
		}
		b.I32(int32(blockSize)).I64(next)
		for slot := range blockSize {
			i := blk*blockSize + slot
			if i >= len(files) {
				b.Raw(make([]byte, uopEntryLen))
				continue
			}
			f := files[i]
			b.I64(f.offset).I32(f.headerLen).I32(f.compLen).I32(f.decompLen).U64(f.hash).U32(0).U16(f.flag)
		}
	}
	return b.Bytes()
}
