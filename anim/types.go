package anim

import (
	"fmt"
	"strconv"
	"strings"
)

// Table dimensions.
const (
	MaxGraphics = 2048
	MaxGroups   = 100
	Directions  = 5
)

// GroupType is the action-group layout of a body.
type GroupType uint8

// Group types.
const (
	Monster GroupType = iota
	SeaMonster
	Animal
	Human
	Equipment
)

func (t GroupType) String() string {
	switch t {
	case Monster:
		return "monster"
	case SeaMonster:
		return "sea_monster"
	case Animal:
		return "animal"
	case Human:
		return "human"
	case Equipment:
		return "equipment"
	default:
		return "GroupType(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseGroupType parses a mobtypes.txt type name, ignoring case.
func ParseGroupType(s string) (GroupType, bool) {
	switch strings.ToLower(s) {
	case "monster":
		return Monster, true
	case "sea_monster":
		return SeaMonster, true
	case "animal":
		return Animal, true
	case "human":
		return Human, true
	case "equipment":
		return Equipment, true
	}
	return 0, false
}

// Groups returns the number of action groups stored per body of type t.
func (t GroupType) Groups() int {
	switch t {
	case Animal:
		return 13
	case Human, Equipment:
		return 35
	default:
		return 22
	}
}

// DieGroups returns the death action groups of type t. Body.def and
// Corpse.def copies leave these slots untouched.
func (t GroupType) DieGroups() [2]int {
	switch t {
	case Animal:
		return [2]int{8, 12}
	case Human, Equipment:
		return [2]int{21, 22}
	default:
		return [2]int{2, 3}
	}
}

func (t GroupType) isDieGroup(g int) bool {
	d := t.DieGroups()
	return g == d[0] || g == d[1]
}

// Layout base blocks inside anim.idx. Each block is one 12-byte record
// describing one direction of one action group.
const (
	monsterStride = 110
	animalStride  = 65
	humanStride   = 175
	animalBase    = 22000
	humanBase     = 35000
)

// Classify returns the group type implied by a body id's numeric range.
func Classify(id int) GroupType {
	switch {
	case id < 200:
		return Monster
	case id < 400:
		return Animal
	default:
		return Human
	}
}

// BaseBlock returns the first anim.idx block of id and its layout type.
func BaseBlock(id int) (GroupType, int) {
	switch t := Classify(id); t {
	case Monster:
		return t, id * monsterStride
	case Animal:
		return t, (id-200)*animalStride + animalBase
	default:
		return t, (id-400)*humanStride + humanBase
	}
}

// SlotOfBlock maps an anim.idx block number back to (id, group, direction).
func SlotOfBlock(block int) (id, group, dir int, ok bool) {
	var rem int
	switch {
	case block < 0:
		return 0, 0, 0, false
	case block < animalBase:
		id, rem = block/monsterStride, block%monsterStride
	case block < humanBase:
		id, rem = (block-animalBase)/animalStride+200, (block-animalBase)%animalStride
	default:
		id, rem = (block-humanBase)/humanStride+400, (block-humanBase)%humanStride
	}
	if id >= MaxGraphics {
		return 0, 0, 0, false
	}
	return id, rem / Directions, rem % Directions, true
}

// ClientVersion packs a client version as major<<24 | minor<<16 | build<<8 | revision.
type ClientVersion uint32

// Version builds a ClientVersion.
func Version(major, minor, build, revision uint8) ClientVersion {
	return ClientVersion(uint32(major)<<24 | uint32(minor)<<16 | uint32(build)<<8 | uint32(revision))
}

// Client versions that change how rule files are read.
var (
	// CV500A is the first client reading mobtypes.txt.
	CV500A = Version(5, 0, 0, 0)

	// CVLatest is the default version, newer than every threshold.
	CVLatest = Version(7, 0, 0, 0)
)

// ParseVersion parses "7.0.15.1" or the letter-revision form "5.0.0a".
func ParseVersion(s string) (ClientVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 4 {
		return 0, fmt.Errorf("anim: bad client version %q", s)
	}

	var nums [4]uint8
	for i, p := range parts {
		if i == 2 && len(parts) == 3 {
			if n := strings.TrimRight(p, "abcdefghijklmnopqrstuvwxyz"); n != p && len(p)-len(n) == 1 {
				nums[3] = p[len(p)-1] - 'a' + 1
				p = n
			}
		}
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("anim: bad client version %q: %w", s, err)
		}
		nums[i] = uint8(v)
	}
	return Version(nums[0], nums[1], nums[2], nums[3]), nil
}

func (v ClientVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v))
}
