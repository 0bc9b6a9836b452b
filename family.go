package uodata

import (
	"strconv"

	"github.com/meigma/uodata/verdata"
)

// Family identifies one asset family of a client directory.
type Family uint8

// Asset families.
const (
	Animations Family = iota
	Art
	Gumps
	TexMaps
	Multis

	familyCount
)

// AllFamilies lists every family Open loads by default.
var AllFamilies = []Family{Animations, Art, Gumps, TexMaps, Multis}

func (f Family) String() string {
	switch f {
	case Animations:
		return "animations"
	case Art:
		return "art"
	case Gumps:
		return "gumps"
	case TexMaps:
		return "texmaps"
	case Multis:
		return "multis"
	default:
		return "Family(" + strconv.Itoa(int(f)) + ")"
	}
}

func (f Family) valid() bool {
	return f < familyCount
}

// layout describes where a static family lives on disk.
type layout struct {
	// uop is the UOP archive preferred over the mul pair, or "" when the
	// family has none worth indexing.
	uop     string
	pattern string
	ext     string
	extra   bool

	data, idx   string
	verdataType int32

	// count is the number of ids the family addresses.
	count int
}

var layouts = [familyCount]layout{
	Art: {
		uop:         "artLegacyMUL.uop",
		pattern:     "build/artlegacymul/%08d",
		ext:         ".tga",
		data:        "art.mul",
		idx:         "artidx.mul",
		verdataType: verdata.FileArt,
		count:       0x14000,
	},
	Gumps: {
		uop:         "gumpartLegacyMUL.uop",
		pattern:     "build/gumpartlegacymul/%08d",
		ext:         ".tga",
		extra:       true,
		data:        "gumpart.mul",
		idx:         "gumpidx.mul",
		verdataType: verdata.FileGumpArt,
		count:       0x10000,
	},
	TexMaps: {
		data:        "texmaps.mul",
		idx:         "texidx.mul",
		verdataType: verdata.FileTexMaps,
		count:       0x4000,
	},
	// MultiCollection.uop stores multis by a different scheme and is not
	// indexed here.
	Multis: {
		data:        "multi.mul",
		idx:         "multi.idx",
		verdataType: verdata.FileMulti,
		count:       0x2200,
	},
}

// landTiles is the number of art ids holding land tiles; higher ids are
// statics.
const landTiles = 0x4000
