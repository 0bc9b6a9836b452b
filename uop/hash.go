package uop

// HashFileName returns the 64-bit path hash UOP directories are keyed by.
//
// It is Bob Jenkins' lookup3 hashlittle2 seeded with 0xDEADBEEF + len(s),
// returning the secondary result in the high word. Names are hashed as
// given; UOP paths are stored lower-case.
func HashFileName(s string) uint64 {
	var a, b, c uint32
	a = uint32(len(s)) + 0xDEADBEEF
	b, c = a, a

	i := 0
	for ; i+12 < len(s); i += 12 {
		a += le32(s[i:])
		b += le32(s[i+4:])
		c += le32(s[i+8:])

		a -= c
		a ^= rot(c, 4)
		c += b
		b -= a
		b ^= rot(a, 6)
		a += c
		c -= b
		c ^= rot(b, 8)
		b += a
		a -= c
		a ^= rot(c, 16)
		c += b
		b -= a
		b ^= rot(a, 19)
		a += c
		c -= b
		c ^= rot(b, 4)
		b += a
	}

	rem := len(s) - i
	if rem == 0 {
		// Only the empty name gets here; the final mix is skipped.
		return uint64(c) << 32
	}

	tail := s[i:]
	switch rem {
	case 12:
		c += uint32(tail[11]) << 24
		fallthrough
	case 11:
		c += uint32(tail[10]) << 16
		fallthrough
	case 10:
		c += uint32(tail[9]) << 8
		fallthrough
	case 9:
		c += uint32(tail[8])
		fallthrough
	case 8:
		b += uint32(tail[7]) << 24
		fallthrough
	case 7:
		b += uint32(tail[6]) << 16
		fallthrough
	case 6:
		b += uint32(tail[5]) << 8
		fallthrough
	case 5:
		b += uint32(tail[4])
		fallthrough
	case 4:
		a += uint32(tail[3]) << 24
		fallthrough
	case 3:
		a += uint32(tail[2]) << 16
		fallthrough
	case 2:
		a += uint32(tail[1]) << 8
		fallthrough
	case 1:
		a += uint32(tail[0])
	}

	c ^= b
	c -= rot(b, 14)
	a ^= c
	a -= rot(c, 11)
	b ^= a
	b -= rot(a, 25)
	c ^= b
	c -= rot(b, 16)
	a ^= c
	a -= rot(c, 4)
	b ^= a
	b -= rot(a, 14)
	c ^= b
	c -= rot(b, 24)

	return uint64(b)<<32 | uint64(c)
}

func le32(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

func rot(x uint32, k uint) uint32 {
	return x<<k | x>>(32-k)
}
