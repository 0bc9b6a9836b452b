package anim

import (
	"errors"
	"os"

	"github.com/meigma/uodata/defs"
	"github.com/meigma/uodata/internal/pathutil"
)

// Rule files, in the order they are applied.
const (
	MobTypesFile  = "mobtypes.txt"
	BodyFile      = "Body.def"
	BodyConvFile  = "Bodyconv.def"
	CorpseFile    = "Corpse.def"
	EquipConvFile = "Equipconv.def"
	Anim1File     = "Anim1.def"
	Anim2File     = "Anim2.def"
)

func (x *Index) loadRules(dir string) {
	if x.version >= CV500A {
		x.eachLine(dir, MobTypesFile, 3, x.mobType)
	}
	x.eachLine(dir, BodyFile, 2, func(r *defs.Reader) error { return x.copyBody(r, false) })
	x.eachLine(dir, BodyConvFile, 2, x.bodyConv)
	x.eachLine(dir, CorpseFile, 2, func(r *defs.Reader) error { return x.copyBody(r, true) })
	x.eachLine(dir, EquipConvFile, 4, x.equipConv)
	x.eachLine(dir, Anim1File, 2, func(r *defs.Reader) error { return x.groupReplace(r, 0) })
	x.eachLine(dir, Anim2File, 2, func(r *defs.Reader) error { return x.groupReplace(r, 1) })
}

var errRange = errors.New("id out of range")

// eachLine feeds every line of an optional rule file with at least
// minFields fields to fn. Failing lines are logged and skipped.
func (x *Index) eachLine(dir, name string, minFields int, fn func(*defs.Reader) error) {
	path, ok := pathutil.Find(dir, name)
	if !ok {
		return
	}
	r, err := defs.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			x.log().Warn("rule file unreadable", "file", name, "error", err)
		}
		return
	}
	defer r.Close()

	applied, skipped := 0, 0
	for r.Next() {
		if r.Len() < minFields {
			x.log().Warn("rule line too short", "file", name, "line", r.Line(), "fields", r.Len())
			skipped++
			continue
		}
		if err := fn(r); err != nil {
			x.log().Warn("rule line skipped", "file", name, "line", r.Line(), "error", err)
			skipped++
			continue
		}
		applied++
	}
	if err := r.Err(); err != nil {
		x.log().Warn("rule file malformed", "file", name, "error", err)
	}
	x.log().Debug("rule file applied", "file", name, "applied", applied, "skipped", skipped)
}

func inRange(id int) bool {
	return id >= 0 && id < MaxGraphics
}

// mobType applies "id type flags" from mobtypes.txt.
func (x *Index) mobType(r *defs.Reader) error {
	id, err := r.Int(0)
	if err != nil {
		return err
	}
	if !inRange(id) {
		return errRange
	}
	typ, ok := ParseGroupType(r.String(1))
	if !ok {
		return defs.ErrField
	}
	flags, err := r.Hex(2)
	if err != nil {
		return err
	}
	info := &x.graphics[id].info
	info.Type = typ
	info.Flags = flags
	return nil
}

// copyBody applies "id {donors} color" from Body.def or Corpse.def. The
// donor is the third listed id when present, else the first. Every donor
// group except its die groups is copied onto id.
func (x *Index) copyBody(r *defs.Reader, corpse bool) error {
	id, err := r.Int(0)
	if err != nil {
		return err
	}
	donors, err := r.Group(1)
	if err != nil {
		return err
	}
	color := 0
	if r.Len() > 2 {
		if color, err = r.Int(2); err != nil {
			return err
		}
	}

	donor := donors[0]
	if len(donors) >= 3 {
		donor = donors[2]
	}
	if !inRange(id) || !inRange(donor) {
		return errRange
	}

	src := &x.graphics[donor]
	dst := &x.graphics[id]
	typ := src.info.Type
	for g := range src.groups {
		if typ.isDieGroup(g) {
			continue
		}
		dst.groupAt(g).dirs = src.groups[g].dirs
	}
	dst.info.Type = typ
	dst.info.Flags = src.info.Flags
	if corpse {
		dst.info.CorpseGraphic = donor
		dst.info.CorpseColor = uint16(color)
	} else {
		dst.info.Graphic = donor
		dst.info.Color = uint16(color)
	}
	return nil
}

// convTarget returns where a Bodyconv.def id lives inside anim file fi
// (1..4 for anim2..anim5). Each file has its own historical layout.
func convTarget(fi, conv int) (typ GroupType, start, resolved int, mounted int8) {
	switch fi {
	case 1:
		if conv == 68 {
			conv = 122
		}
		if conv == 0xC0 || conv == 793 {
			mounted = -9
		}
		if conv >= 200 {
			return Animal, (conv-200)*animalStride + animalBase, conv, mounted
		}
		return Monster, conv * monsterStride, conv, mounted
	case 2:
		switch {
		case conv >= 400:
			return Human, (conv-400)*humanStride + humanBase, conv, 0
		case conv >= 200:
			return Monster, (conv-200)*monsterStride + animalBase, conv, 0
		default:
			return Animal, conv*animalStride + 9000, conv, 0
		}
	case 4:
		mounted = -9
	}
	typ, start = BaseBlock(conv)
	return typ, start, conv, mounted
}

// bodyConv applies "id anim2 anim3 anim4 anim5" from Bodyconv.def. The
// first column that is not -1 and whose file is present selects the file.
func (x *Index) bodyConv(r *defs.Reader) error {
	id, err := r.Int(0)
	if err != nil {
		return err
	}
	if !inRange(id) {
		return errRange
	}

	fi, conv := 0, -1
	for col := 1; col < ClassicFiles && col < r.Len(); col++ {
		v, err := r.Int(col)
		if err != nil {
			return err
		}
		if v == -1 || x.classic[col] == nil {
			continue
		}
		fi, conv = col, v
		break
	}
	if fi == 0 || conv < 0 {
		return nil
	}

	typ, start, conv, mounted := convTarget(fi, conv)
	if int64(start)*12 >= x.classic[fi].IndexSize() {
		return errRange
	}

	gr := &x.graphics[id]
	gr.info.Type = typ
	gr.info.ConvertedGraphic = conv
	gr.info.FileIndex = fi
	gr.info.MountedHeightOffset = mounted
	for g := range typ.Groups() {
		grp := gr.groupAt(g)
		for d := range Directions {
			pos, size, _ := x.readBlock(fi, start+g*Directions+d)
			dir := &grp.dirs[d]
			dir.PatchedAddress, dir.PatchedSize = pos, size
			dir.FileIndex = fi
			dir.IsVerdata = false
		}
	}
	return nil
}

// equipConv applies "body graphic newGraphic gump color" from Equipconv.def.
// A gump of 0 means the worn graphic's own gump, 0xFFFF the new graphic's.
// A newGraphic outside the table keeps the worn graphic.
func (x *Index) equipConv(r *defs.Reader) error {
	var vals [5]int
	for i := range 4 {
		v, err := r.Int(i)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	if r.Len() > 4 {
		v, err := r.Int(4)
		if err != nil {
			return err
		}
		vals[4] = v
	}

	body, graphic, newGraphic, gump, color := vals[0], vals[1], vals[2], vals[3], vals[4]
	if !inRange(body) || !inRange(graphic) {
		return errRange
	}
	if !inRange(newGraphic) {
		newGraphic = graphic
	}
	switch gump {
	case 0:
		gump = graphic
	case 0xFFFF:
		gump = newGraphic
	}

	byGraphic := x.equip[body]
	if byGraphic == nil {
		byGraphic = make(map[int]EquipConversion)
		x.equip[body] = byGraphic
	}
	byGraphic[graphic] = EquipConversion{Graphic: newGraphic, Gump: gump, Color: uint16(color)}
	return nil
}

// groupReplace applies "group {replacement}" from Anim1.def or Anim2.def.
func (x *Index) groupReplace(r *defs.Reader, table int) error {
	from, err := r.Int(0)
	if err != nil {
		return err
	}
	to, err := r.Group(1)
	if err != nil {
		return err
	}
	if from < 0 || from >= MaxGroups || to[0] < 0 || to[0] >= MaxGroups {
		return errRange
	}
	x.replace[table][from] = to[0]
	return nil
}
