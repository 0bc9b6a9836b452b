// Package uodata reads the asset files of an Ultima Online client
// directory.
//
// A [Registry] opens the animation table and the static asset families
// (art, gumps, texmaps, multis) of one directory. Each family prefers its
// UOP archive and falls back to the classic idx/mul pair, with the optional
// verdata.mul overlay applied to both the mul families and anim.idx.
//
// # Quick Start
//
//	reg, err := uodata.Open("/games/uo")
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
//
//	frames, err := reg.AnimationFrames(400, 0, 1)
//	if errors.Is(err, uodata.ErrMissing) {
//	    // draw nothing
//	}
//
// # Families
//
// Families load in parallel. A family that fails to load does not fail
// Open; its queries return [ErrNotLoaded] and [Registry.Err] reports the
// cause. Restrict loading with [WithFamilies].
//
// # Lower Level Access
//
// The archive formats are usable on their own: [github.com/meigma/uodata/mul]
// for idx/mul pairs, [github.com/meigma/uodata/uop] for UOP archives,
// [github.com/meigma/uodata/anim] for the animation table and
// [github.com/meigma/uodata/sprite] for the pixel decoders.
package uodata
