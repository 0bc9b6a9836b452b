package uodata

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/uodata/anim"
	"github.com/meigma/uodata/archive"
	"github.com/meigma/uodata/entry"
	"github.com/meigma/uodata/internal/pathutil"
	"github.com/meigma/uodata/mul"
	"github.com/meigma/uodata/sprite"
	"github.com/meigma/uodata/uop"
	"github.com/meigma/uodata/verdata"
)

// VerdataFile is the patch overlay file name.
const VerdataFile = "verdata.mul"

// staticArchive is a loaded art, gump, texmap or multi table.
type staticArchive interface {
	entry.Resolver
	Close() error
}

type spriteKey struct {
	family Family
	id     int
}

// Registry holds every loaded table of one client directory.
//
// It is immutable after Open apart from its internal caches and is safe for
// concurrent use.
type Registry struct {
	dir         string
	version     anim.ClientVersion
	useVerdata  bool
	concurrency int
	cacheSize   int
	families    []Family

	patches   *verdata.Table
	anim      *anim.Index
	archives  [familyCount]staticArchive
	errs      [familyCount]error
	requested [familyCount]bool

	sprites *arc.ARCCache[spriteKey, sprite.Image]
	fills   singleflight.Group
	logger  *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Open loads the client directory dir.
//
// Open fails only when dir is unusable, an option is invalid or verdata.mul
// is present but unreadable. Individual families that fail to load are
// recorded and reported by Err.
func Open(dir string, opts ...Option) (*Registry, error) {
	r := &Registry{
		dir:         dir,
		version:     anim.CVLatest,
		useVerdata:  true,
		concurrency: DefaultLoadConcurrency,
		cacheSize:   DefaultSpriteCacheSize,
		families:    AllFamilies,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("uodata: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("uodata: %s is not a directory", dir)
	}

	r.sprites, err = arc.NewARC[spriteKey, sprite.Image](r.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("uodata: sprite cache: %w", err)
	}

	r.patches = verdata.Empty()
	if r.useVerdata {
		if path, ok := pathutil.Find(dir, VerdataFile); ok {
			if r.patches, err = verdata.Load(path, verdata.WithLogger(r.logger)); err != nil {
				return nil, fmt.Errorf("uodata: %w", err)
			}
		}
	}

	r.load()
	return r, nil
}

// load opens the requested families in parallel. Each goroutine writes only
// its own family's slots.
func (r *Registry) load() {
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, f := range r.families {
		if r.requested[f] {
			continue
		}
		r.requested[f] = true
		g.Go(func() error {
			start := time.Now()
			source, err := r.loadFamily(f)
			if err != nil {
				r.errs[f] = err
				r.log().Warn("family not loaded", "family", f, "error", err)
				return nil
			}
			r.log().Debug("family loaded", "family", f, "source", source, "elapsed", time.Since(start))
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) loadFamily(f Family) (string, error) {
	if f == Animations {
		x, err := anim.Build(anim.Config{
			Dir:     r.dir,
			Version: r.version,
			Patches: r.patches,
			Logger:  r.logger,
		})
		if err != nil {
			return "", err
		}
		r.anim = x
		return "anim", nil
	}

	l := layouts[f]
	if l.uop != "" {
		if path, ok := pathutil.Find(r.dir, l.uop); ok {
			opts := []uop.Option{
				uop.WithPattern(l.pattern),
				uop.WithExtension(l.ext),
				uop.WithExpectedCount(l.count),
				uop.WithLogger(r.logger),
			}
			if l.extra {
				opts = append(opts, uop.WithExtra())
			}
			a, err := uop.Open(path, opts...)
			if err == nil {
				r.archives[f] = a
				return l.uop, nil
			}
			r.log().Warn("uop archive unusable, falling back to mul", "family", f, "error", err)
		}
	}

	dataPath, _ := pathutil.Find(r.dir, l.data)
	idxPath, _ := pathutil.Find(r.dir, l.idx)
	a, err := mul.Open(dataPath, idxPath,
		mul.WithExpectedCount(l.count),
		mul.WithPatches(r.patches, l.verdataType),
		mul.WithLogger(r.logger),
	)
	if err != nil {
		return "", err
	}
	r.archives[f] = a
	return l.data, nil
}

// Dir returns the client directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Err returns why family f failed to load, or nil.
func (r *Registry) Err(f Family) error {
	if !f.valid() {
		return ErrUnknownFamily
	}
	return r.errs[f]
}

// Loaded reports whether family f is available for queries.
func (r *Registry) Loaded(f Family) bool {
	if f == Animations {
		return r.anim != nil
	}
	return f.valid() && r.archives[f] != nil
}

func (r *Registry) notLoaded(f Family) error {
	if err := r.errs[f]; err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotLoaded, f, err)
	}
	return fmt.Errorf("%w: %s", ErrNotLoaded, f)
}

func (r *Registry) static(f Family) (staticArchive, error) {
	if !f.valid() || f == Animations {
		return nil, fmt.Errorf("%w: %s has no static entries", ErrUnknownFamily, f)
	}
	if a := r.archives[f]; a != nil {
		return a, nil
	}
	return nil, r.notLoaded(f)
}

// Animations returns the animation table.
func (r *Registry) Animations() (*anim.Index, error) {
	if r.anim == nil {
		return nil, r.notLoaded(Animations)
	}
	return r.anim, nil
}

// ResolveStaticEntry returns the stored length, extra word and patch state
// of id in family f.
func (r *Registry) ResolveStaticEntry(f Family, id int) (length, extra int32, patched bool, err error) {
	a, err := r.static(f)
	if err != nil {
		return 0, 0, false, err
	}
	res, err := a.Resolve(id)
	if err != nil {
		return 0, 0, false, fmt.Errorf("uodata: %s %d: %w", f, id, err)
	}
	return res.Length, res.Extra, res.Patched, nil
}

// ResolveAnimationDirection returns the resolved entry of
// (graphic, group, dir).
func (r *Registry) ResolveAnimationDirection(graphic, group, dir int) (anim.Direction, error) {
	x, err := r.Animations()
	if err != nil {
		return anim.Direction{}, err
	}
	return x.Direction(graphic, group, dir)
}

// AnimationFrames returns the decoded frames of (graphic, group, dir). The
// slice is shared between callers and must not be modified.
func (r *Registry) AnimationFrames(graphic, group, dir int) ([]sprite.Frame, error) {
	x, err := r.Animations()
	if err != nil {
		return nil, err
	}
	return x.Frames(graphic, group, dir)
}

// Art returns the decoded art tile id. Ids below 0x4000 are land tiles,
// the rest statics. The image is shared and must not be modified.
func (r *Registry) Art(id int) (sprite.Image, error) {
	return r.image(Art, id)
}

// Gump returns the decoded gump id. The image is shared and must not be
// modified.
func (r *Registry) Gump(id int) (sprite.Image, error) {
	return r.image(Gumps, id)
}

func (r *Registry) image(f Family, id int) (sprite.Image, error) {
	a, err := r.static(f)
	if err != nil {
		return sprite.Image{}, err
	}
	key := spriteKey{family: f, id: id}
	if img, ok := r.sprites.Get(key); ok {
		r.log().Debug("sprite cache hit", "family", f, "id", id)
		return img, nil
	}

	v, err, _ := r.fills.Do(f.String()+"/"+strconv.Itoa(id), func() (any, error) {
		if img, ok := r.sprites.Get(key); ok {
			return img, nil
		}
		res, err := a.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("uodata: %s %d: %w", f, id, err)
		}
		data, err := res.Bytes()
		if err != nil {
			return nil, fmt.Errorf("uodata: read %s %d: %w", f, id, err)
		}
		img, err := decodeImage(f, id, data, res.Extra)
		if err != nil {
			return nil, fmt.Errorf("uodata: decode %s %d: %w", f, id, err)
		}
		r.sprites.Add(key, img)
		return img, nil
	})
	if err != nil {
		return sprite.Image{}, err
	}
	return v.(sprite.Image), nil
}

func decodeImage(f Family, id int, data []byte, extra int32) (sprite.Image, error) {
	if f == Gumps {
		w, h := sprite.GumpSize(extra)
		return sprite.DecodeGump(data, w, h)
	}
	if id < landTiles {
		return sprite.DecodeLand(data)
	}
	return sprite.DecodeStatic(data)
}

// DecodeFrame decodes one animation frame record ({cx, cy, w, h} followed
// by its RLE stream) with palette.
func DecodeFrame(data []byte, palette *sprite.Palette) (sprite.Frame, error) {
	return sprite.DecodeFrame(archive.NewCursor(archive.FromBytes("frame", data)), palette)
}

// Close releases every loaded file.
func (r *Registry) Close() error {
	var errs []error
	if r.anim != nil {
		errs = append(errs, r.anim.Close())
		r.anim = nil
	}
	for i, a := range r.archives {
		if a != nil {
			errs = append(errs, a.Close())
			r.archives[i] = nil
		}
	}
	errs = append(errs, r.patches.Close())
	r.sprites.Purge()
	return errors.Join(errs...)
}
