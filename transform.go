package gridcube

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
)

// PointTransformer maps batches of world coordinates from one CRS to another.
// PROJ-class libraries are adapted to this interface. Implementations may
// return NaN components for points outside the CRS's valid domain; the ROI
// machinery folds those into "no overlap" rather than treating them as
// errors. Calls may block (FFI, I/O) and are always batched, never issued per
// point in a hot loop.
type PointTransformer interface {
	Transform(pts []orb.Point) ([]orb.Point, error)
}

// TransformerSource constructs forward and backward point transformers for a
// CRS pair.
type TransformerSource interface {
	Between(src, dst *CRS) (fwd, bwd PointTransformer, err error)
}

// PixelTransform is a bidirectional point mapping between the pixel spaces of
// two grids. Forward maps source pixels to destination pixels, Back the
// reverse. When the grids share a CRS (or both have none) the mapping is an
// exact affine composition and Linear holds the destination->source pixel
// affine; cross-CRS mappings leave Linear nil and go through an external
// point transformer, accurate only to that transformer's precision.
type PixelTransform struct {
	Forward func(pts []orb.Point) ([]orb.Point, error)
	Back    func(pts []orb.Point) ([]orb.Point, error)
	Linear  *Affine
}

func applyAffineBatch(a Affine, pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = a.ApplyPoint(p)
	}
	return out
}

func newLinearPixelTransform(src, dst GeoBox) *PixelTransform {
	// dst pixel -> world -> src pixel
	linear := src.Transform().Invert().Mul(dst.Transform())
	inv := linear.Invert()
	return &PixelTransform{
		Forward: func(pts []orb.Point) ([]orb.Point, error) {
			return applyAffineBatch(inv, pts), nil
		},
		Back: func(pts []orb.Point) ([]orb.Point, error) {
			return applyAffineBatch(linear, pts), nil
		},
		Linear: &linear,
	}
}

func newProjPixelTransform(src, dst GeoBox, fwd, bwd PointTransformer) *PixelTransform {
	srcPix2World := src.Transform()
	dstPix2World := dst.Transform()
	srcWorld2Pix := srcPix2World.Invert()
	dstWorld2Pix := dstPix2World.Invert()

	through := func(pix2World Affine, tr PointTransformer, world2Pix Affine) func([]orb.Point) ([]orb.Point, error) {
		return func(pts []orb.Point) ([]orb.Point, error) {
			world, err := tr.Transform(applyAffineBatch(pix2World, pts))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrExternalTransform, err)
			}
			return applyAffineBatch(world2Pix, world), nil
		}
	}

	return &PixelTransform{
		Forward: through(srcPix2World, fwd, dstWorld2Pix),
		Back:    through(dstPix2World, bwd, srcWorld2Pix),
	}
}

// PixelTransformBetween builds the pixel-space transform between two grids
// using the built-in transformer set. Components that plan repeatedly across
// CRS pairs should hold a TransformCache instead.
func PixelTransformBetween(src, dst GeoBox) (*PixelTransform, error) {
	return pixelTransform(src, dst, DefaultTransforms, nil)
}

func pixelTransform(src, dst GeoBox, source TransformerSource, memo *lru.Cache[string, transformerPair]) (*PixelTransform, error) {
	if src.CRS().Equal(dst.CRS()) {
		return newLinearPixelTransform(src, dst), nil
	}
	if src.CRS() == nil || dst.CRS() == nil {
		return nil, fmt.Errorf("cannot transform between %q and %q: %w",
			src.CRS().String(), dst.CRS().String(), ErrInvalidGeometry)
	}

	key := src.CRS().String() + "->" + dst.CRS().String()
	if memo != nil {
		if pair, ok := memo.Get(key); ok {
			return newProjPixelTransform(src, dst, pair.fwd, pair.bwd), nil
		}
	}
	fwd, bwd, err := source.Between(src.CRS(), dst.CRS())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalTransform, err)
	}
	if memo != nil {
		memo.Add(key, transformerPair{fwd: fwd, bwd: bwd})
	}
	return newProjPixelTransform(src, dst, fwd, bwd), nil
}

type transformerPair struct {
	fwd, bwd PointTransformer
}

// TransformCache owns transformer construction for components that build
// PixelTransforms repeatedly for the same CRS pairs. The memo is bounded; the
// cache's lifetime is explicit, owned by whoever plans reads, rather than a
// package-level singleton. Safe for concurrent use.
type TransformCache struct {
	source TransformerSource
	memo   *lru.Cache[string, transformerPair]
}

// NewTransformCache creates a cache over the given transformer source holding
// at most size CRS pairs. A nil source uses the built-in transformer set; a
// non-positive size defaults to 32 pairs.
func NewTransformCache(source TransformerSource, size int) (*TransformCache, error) {
	if source == nil {
		source = DefaultTransforms
	}
	if size <= 0 {
		size = 32
	}
	memo, err := lru.New[string, transformerPair](size)
	if err != nil {
		return nil, err
	}
	return &TransformCache{source: source, memo: memo}, nil
}

// PixelTransform builds the pixel-space transform between two grids, reusing
// memoised CRS transformers where possible.
func (tc *TransformCache) PixelTransform(src, dst GeoBox) (*PixelTransform, error) {
	return pixelTransform(src, dst, tc.source, tc.memo)
}
