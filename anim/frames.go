package anim

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/sprite"
)

// frameList is one published decode result.
type frameList struct {
	frames []sprite.Frame
}

// frameArena holds the published frames of one graphic. Slots are written
// once with compare-and-swap and never replaced.
type frameArena struct {
	slots [MaxGroups * Directions]atomic.Pointer[frameList]
}

func (x *Index) arena(graphic int) *frameArena {
	gr := &x.graphics[graphic]
	if a := gr.frames.Load(); a != nil {
		return a
	}
	gr.frames.CompareAndSwap(nil, &frameArena{})
	return gr.frames.Load()
}

func (x *Index) published(graphic, group, dir int) *frameList {
	a := x.graphics[graphic].frames.Load()
	if a == nil {
		return nil
	}
	return a.slots[group*Directions+dir].Load()
}

// publish stores frames for a slot unless another caller got there first,
// and returns whichever list is now published.
func (x *Index) publish(graphic, group, dir int, frames []sprite.Frame) *frameList {
	slot := &x.arena(graphic).slots[group*Directions+dir]
	slot.CompareAndSwap(nil, &frameList{frames: frames})
	return slot.Load()
}

// Frames returns the decoded frames of (graphic, group, dir).
//
// The first call decodes and publishes the frames; later calls return the
// published slice, which callers must not modify. Concurrent first calls
// for the same slot share one decode.
func (x *Index) Frames(graphic, group, dir int) ([]sprite.Frame, error) {
	d, err := x.Direction(graphic, group, dir)
	if err != nil {
		return nil, err
	}
	if list := x.published(graphic, group, dir); list != nil {
		return list.frames, nil
	}

	key := strconv.Itoa(graphic) + "/" + strconv.Itoa(group)
	if !d.IsUOP {
		key += "/" + strconv.Itoa(dir)
	}
	_, err, _ = x.decodes.Do(key, func() (any, error) {
		if x.published(graphic, group, dir) != nil {
			return nil, nil
		}
		if d.IsUOP {
			return nil, x.decodeUOP(graphic, group)
		}
		frames, err := x.decodeClassic(graphic, group, dir, d)
		if err != nil {
			return nil, err
		}
		x.publish(graphic, group, dir, frames)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return x.published(graphic, group, dir).frames, nil
}

func (x *Index) decodeClassic(graphic, group, dir int, d Direction) ([]sprite.Frame, error) {
	var src archive.Source
	switch {
	case d.IsVerdata && d.FileIndex == 0:
		src = x.patches.Source()
	case x.classic[d.FileIndex] != nil:
		src = x.classic[d.FileIndex].Source()
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %d/%d/%d file %d not open", ErrNoData, graphic, group, dir, d.FileIndex)
	}

	c, err := archive.NewSectionCursor(src, int64(d.Address), int64(d.Size))
	if err != nil {
		return nil, fmt.Errorf("%w: %d/%d/%d: %w", ErrNoData, graphic, group, dir, err)
	}
	data, err := c.ReadSlice(int(d.Size))
	if err != nil {
		return nil, fmt.Errorf("anim: read %d/%d/%d: %w", graphic, group, dir, err)
	}
	frames, err := sprite.DecodeClassic(data)
	if err != nil {
		return nil, fmt.Errorf("anim: decode %d/%d/%d: %w", graphic, group, dir, err)
	}
	return frames, nil
}

// decodeUOP decodes a whole UOP action group and publishes all five
// directions at once.
func (x *Index) decodeUOP(graphic, group int) error {
	grp := &x.graphics[graphic].groups[group]
	a := x.uops[grp.uopFile]
	if a == nil {
		return fmt.Errorf("%w: %d/%d uop file %d not open", ErrNoData, graphic, group, grp.uopFile)
	}
	res, err := a.SeekByHash(grp.uopHash)
	if err != nil {
		return fmt.Errorf("anim: %d/%d: %w", graphic, group, err)
	}
	data, err := res.Bytes()
	if err != nil {
		return fmt.Errorf("anim: read %d/%d: %w", graphic, group, err)
	}
	frames, err := sprite.DecodeUOP(data)
	if err != nil {
		return fmt.Errorf("anim: decode %d/%d: %w", graphic, group, err)
	}
	for dir, list := range sprite.SplitDirections(frames) {
		x.publish(graphic, group, dir, list)
	}
	x.log().Debug("uop group decoded", "graphic", graphic, "group", group, "frames", len(frames))
	return nil
}
