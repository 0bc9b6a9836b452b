// Package anim builds the animation address table of an Ultima Online
// client.
//
// The table maps every (body, action group, direction) to the bytes of its
// frames. It is assembled once by Build from the fixed anim.idx layout,
// verdata patches, the body rule files and the AnimationFrame*.uop
// archives, and is read-only afterwards. Frames are decoded lazily on first
// request and shared between callers.
package anim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/internal/pathutil"
	"github.com/meigma/uodata/mul"
	"github.com/meigma/uodata/uop"
	"github.com/meigma/uodata/verdata"
)

// ClassicFiles is the number of anim*.mul files: anim.mul then anim2..anim5.
const ClassicFiles = 5

// UOPFiles is the number of AnimationFrame*.uop archives.
const UOPFiles = 4

// Direction locates the frames of one (body, group, direction).
type Direction struct {
	// BaseAddress and BaseSize come from the body's own anim.idx blocks, or
	// from verdata when IsVerdata is set.
	BaseAddress uint32
	BaseSize    uint32

	// PatchedAddress and PatchedSize come from a Bodyconv.def remap into
	// anim file FileIndex.
	PatchedAddress uint32
	PatchedSize    uint32

	// Address and Size are the range frames are read from.
	Address uint32
	Size    uint32

	// FileIndex selects anim.mul (0) or anim2..anim5.mul (1..4).
	FileIndex int

	IsUOP     bool
	IsVerdata bool

	// FrameCount is the number of decoded frames, or 0 before the first
	// Frames call.
	FrameCount int
}

// Valid reports whether the direction has frame data.
func (d Direction) Valid() bool {
	return d.IsUOP || d.Size > 0
}

func (d *Direction) settle() {
	if d.FileIndex > 0 {
		d.Address, d.Size = d.PatchedAddress, d.PatchedSize
		return
	}
	d.Address, d.Size = d.BaseAddress, d.BaseSize
}

type group struct {
	dirs [Directions]Direction

	// uopFile is the AnimationFrame archive index holding the group, or -1.
	uopFile int
	uopHash uint64
}

// Info describes how one body id is drawn.
type Info struct {
	Type GroupType

	// Flags is the mobtypes.txt flag column.
	Flags uint32

	// Graphic is the body whose directions were copied in by Body.def, or
	// the id itself.
	Graphic int

	// Color is the hue Body.def applies to the donor graphic.
	Color uint16

	// ConvertedGraphic is the Bodyconv.def id inside anim file FileIndex,
	// or -1 without a conversion.
	ConvertedGraphic int
	FileIndex        int

	MountedHeightOffset int8

	// CorpseGraphic and CorpseColor come from Corpse.def; CorpseGraphic is
	// -1 without an entry.
	CorpseGraphic int
	CorpseColor   uint16

	// UOP reports whether any group is served from AnimationFrame*.uop.
	UOP bool
}

type graphic struct {
	info   Info
	groups []group
	frames atomic.Pointer[frameArena]
}

// groupAt returns group g, growing the table as needed.
func (gr *graphic) groupAt(g int) *group {
	for len(gr.groups) <= g {
		gr.groups = append(gr.groups, group{uopFile: -1})
	}
	return &gr.groups[g]
}

// EquipConversion is one Equipconv.def override.
type EquipConversion struct {
	Graphic int
	Gump    int
	Color   uint16
}

// Config configures Build.
type Config struct {
	// Dir is the client data directory.
	Dir string

	// Version selects version-dependent rule handling. Zero means CVLatest.
	Version ClientVersion

	// Patches supplies verdata anim.idx patches; nil means none.
	Patches *verdata.Table

	Logger *slog.Logger
}

// Index is the resolved animation table. It is safe for concurrent use.
type Index struct {
	graphics [MaxGraphics]graphic
	classic  [ClassicFiles]*mul.Archive
	uops     [UOPFiles]*uop.Archive
	patches  *verdata.Table
	equip    map[int]map[int]EquipConversion
	replace  [2]map[int]int
	version  ClientVersion
	decodes  singleflight.Group
	logger   *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (x *Index) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

// Build opens the animation files in cfg.Dir and resolves the table.
//
// anim.mul/anim.idx are required. anim2..anim5, the rule files and the
// AnimationFrame*.uop archives are optional.
func Build(cfg Config) (*Index, error) {
	x := &Index{
		patches: cfg.Patches,
		equip:   make(map[int]map[int]EquipConversion),
		version: cfg.Version,
		logger:  cfg.Logger,
	}
	if x.version == 0 {
		x.version = CVLatest
	}
	x.replace[0] = make(map[int]int)
	x.replace[1] = make(map[int]int)

	if err := x.openFiles(cfg.Dir); err != nil {
		_ = x.Close()
		return nil, err
	}

	x.staticPass()
	x.verdataPass()
	x.loadRules(cfg.Dir)
	x.uopPass()

	for id := range x.graphics {
		gr := &x.graphics[id]
		for g := range gr.groups {
			for d := range gr.groups[g].dirs {
				gr.groups[g].dirs[d].settle()
			}
		}
	}
	return x, nil
}

func classicNames(i int) (data, idx string) {
	if i == 0 {
		return "anim.mul", "anim.idx"
	}
	return fmt.Sprintf("anim%d.mul", i+1), fmt.Sprintf("anim%d.idx", i+1)
}

func (x *Index) openFiles(dir string) error {
	for i := range x.classic {
		dataName, idxName := classicNames(i)
		dataPath, dataOK := pathutil.Find(dir, dataName)
		idxPath, idxOK := pathutil.Find(dir, idxName)
		if i > 0 && (!dataOK || !idxOK) {
			continue
		}
		a, err := mul.Open(dataPath, idxPath, mul.WithLogger(x.logger))
		if err != nil {
			if i == 0 {
				return fmt.Errorf("anim: %w", err)
			}
			x.log().Warn("optional anim file skipped", "file", dataName, "error", err)
			continue
		}
		x.classic[i] = a
	}

	for i := range x.uops {
		name := fmt.Sprintf("AnimationFrame%d.uop", i+1)
		path, ok := pathutil.Find(dir, name)
		if !ok {
			continue
		}
		a, err := uop.Open(path, uop.WithLogger(x.logger))
		if err != nil {
			x.log().Warn("animation uop skipped", "file", name, "error", err)
			continue
		}
		x.uops[i] = a
	}
	return nil
}

// readBlock returns the position and size of block in anim file fi, with
// ok false for absent records.
func (x *Index) readBlock(fi, block int) (pos, size uint32, ok bool) {
	a := x.classic[fi]
	if a == nil {
		return 0, 0, false
	}
	rec, err := a.Record(block)
	if err != nil {
		return 0, 0, false
	}
	pos, size = uint32(rec.Offset), uint32(rec.Length)
	if size == 0 || pos == entry.Invalid || size == entry.Invalid {
		return 0, 0, false
	}
	return pos, size, true
}

func (x *Index) staticPass() {
	loaded := 0
	for id := range x.graphics {
		gr := &x.graphics[id]
		typ, start := BaseBlock(id)
		gr.info = Info{Type: typ, Graphic: id, ConvertedGraphic: -1, CorpseGraphic: -1}

		for g := range typ.Groups() {
			for d := range Directions {
				pos, size, ok := x.readBlock(0, start+g*Directions+d)
				if !ok {
					continue
				}
				dir := &gr.groupAt(g).dirs[d]
				dir.BaseAddress, dir.BaseSize = pos, size
				loaded++
			}
		}
	}
	x.log().Debug("anim static pass", "directions", loaded)
}

func (x *Index) verdataPass() {
	applied := 0
	for _, p := range x.patches.ForFile(verdata.FileAnim) {
		id, g, d, ok := SlotOfBlock(int(p.Index))
		if !ok || p.Offset < 0 || p.Length <= 0 {
			x.log().Warn("verdata anim patch skipped", "index", p.Index)
			continue
		}
		dir := &x.graphics[id].groupAt(g).dirs[d]
		dir.BaseAddress, dir.BaseSize = uint32(p.Offset), uint32(p.Length)
		dir.IsVerdata = true
		applied++
	}
	if applied > 0 {
		x.log().Debug("anim verdata pass", "patches", applied)
	}
}

// UOPName returns the virtual file name of a body's action group inside
// AnimationFrame*.uop.
func UOPName(id, group int) string {
	return fmt.Sprintf("build/animationlegacyframe/%06d/%02d.bin", id, group)
}

func (x *Index) uopPass() {
	present := false
	for _, a := range x.uops {
		present = present || a != nil
	}
	if !present {
		return
	}

	hits := 0
	for id := range x.graphics {
		gr := &x.graphics[id]
		for g := range MaxGroups {
			hash := uop.HashFileName(UOPName(id, g))
			for fi, a := range x.uops {
				if a == nil {
					continue
				}
				if _, ok := a.Lookup(hash); !ok {
					continue
				}
				grp := gr.groupAt(g)
				grp.uopFile, grp.uopHash = fi, hash
				for d := range grp.dirs {
					grp.dirs[d] = Direction{IsUOP: true}
				}
				gr.info.UOP = true
				hits++
				break
			}
		}
	}
	x.log().Debug("anim uop pass", "groups", hits)
}

// ErrNoData is returned for a group or direction without frames. It wraps
// entry.ErrMissing.
var ErrNoData = fmt.Errorf("anim: no data: %w", entry.ErrMissing)

func checkSlot(id, g, d int) error {
	if err := entry.CheckID(id, MaxGraphics); err != nil {
		return fmt.Errorf("anim: graphic: %w", err)
	}
	if err := entry.CheckID(g, MaxGroups); err != nil {
		return fmt.Errorf("anim: group: %w", err)
	}
	if err := entry.CheckID(d, Directions); err != nil {
		return fmt.Errorf("anim: direction: %w", err)
	}
	return nil
}

// Direction returns the resolved entry of (graphic, group, dir).
func (x *Index) Direction(graphic, group, dir int) (Direction, error) {
	if err := checkSlot(graphic, group, dir); err != nil {
		return Direction{}, err
	}
	gr := &x.graphics[graphic]
	if group >= len(gr.groups) {
		return Direction{}, fmt.Errorf("%w: %d/%d/%d", ErrNoData, graphic, group, dir)
	}
	d := gr.groups[group].dirs[dir]
	if !d.Valid() {
		return Direction{}, fmt.Errorf("%w: %d/%d/%d", ErrNoData, graphic, group, dir)
	}
	if list := x.published(graphic, group, dir); list != nil {
		d.FrameCount = len(list.frames)
	}
	return d, nil
}

// Info returns the rule-derived description of a body.
func (x *Index) Info(graphic int) (Info, error) {
	if err := entry.CheckID(graphic, MaxGraphics); err != nil {
		return Info{}, fmt.Errorf("anim: graphic: %w", err)
	}
	return x.graphics[graphic].info, nil
}

// Groups returns the number of action group slots stored for graphic.
func (x *Index) Groups(graphic int) int {
	if graphic < 0 || graphic >= MaxGraphics {
		return 0
	}
	return len(x.graphics[graphic].groups)
}

// EquipConversion returns the Equipconv.def override of an item graphic
// worn by body.
func (x *Index) EquipConversion(body, graphic int) (EquipConversion, bool) {
	conv, ok := x.equip[body][graphic]
	return conv, ok
}

// GroupReplacement returns the Anim1.def (table 0) or Anim2.def (table 1)
// replacement of an action group.
func (x *Index) GroupReplacement(table, group int) (int, bool) {
	if table < 0 || table >= len(x.replace) {
		return 0, false
	}
	g, ok := x.replace[table][group]
	return g, ok
}

// Version returns the client version the table was built for.
func (x *Index) Version() ClientVersion {
	return x.version
}

// Close closes every opened animation file.
func (x *Index) Close() error {
	var errs []error
	for i, a := range x.classic {
		if a != nil {
			errs = append(errs, a.Close())
			x.classic[i] = nil
		}
	}
	for i, a := range x.uops {
		if a != nil {
			errs = append(errs, a.Close())
			x.uops[i] = nil
		}
	}
	return errors.Join(errs...)
}
