package gridcube

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ResampleWarper is the built-in Warper: it back-maps destination pixel
// centres into source pixel space through a PixelTransform and samples with a
// nearest-neighbour or bilinear kernel. It handles the same-CRS and cross-CRS
// cases uniformly; plug a GDAL-class library into the Warper interface when
// higher-order kernels are needed.
type ResampleWarper struct {
	cache *TransformCache
}

// NewResampleWarper builds a warper; a nil cache uses the built-in
// transformer set without memoisation.
func NewResampleWarper(cache *TransformCache) *ResampleWarper {
	return &ResampleWarper{cache: cache}
}

func (w *ResampleWarper) Warp(ctx context.Context, src *Raster, srcBox GeoBox, dst *Raster, dstBox GeoBox, resampling Resampling) error {
	if src.Width != srcBox.Width() || src.Height != srcBox.Height() {
		return fmt.Errorf("source buffer %dx%d does not match grid %dx%d: %w",
			src.Width, src.Height, srcBox.Width(), srcBox.Height(), ErrInvalidGeometry)
	}
	if dst.Width != dstBox.Width() || dst.Height != dstBox.Height() {
		return fmt.Errorf("destination buffer %dx%d does not match grid %dx%d: %w",
			dst.Width, dst.Height, dstBox.Width(), dstBox.Height(), ErrInvalidGeometry)
	}

	var tr *PixelTransform
	var err error
	if w.cache != nil {
		tr, err = w.cache.PixelTransform(srcBox, dstBox)
	} else {
		tr, err = PixelTransformBetween(srcBox, dstBox)
	}
	if err != nil {
		return err
	}

	// One batched back-mapping per destination row keeps external transform
	// calls out of the per-pixel loop.
	row := getPoints(dst.Width)
	defer putPoints(row)

	for y := 0; y < dst.Height; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < dst.Width; x++ {
			row[x] = orb.Point{float64(x) + 0.5, float64(y) + 0.5}
		}
		srcPts, err := tr.Back(row)
		if err != nil {
			return err
		}
		for x := 0; x < dst.Width; x++ {
			p := srcPts[x]
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
				continue
			}
			var v float64
			var ok bool
			switch resampling {
			case ResampleBilinear:
				v, ok = sampleBilinear(src, p)
			default:
				v, ok = sampleNearest(src, p)
			}
			if ok {
				dst.Set(x, y, v)
			}
		}
	}
	return nil
}

func sampleNearest(src *Raster, p orb.Point) (float64, bool) {
	x := int(math.Floor(p[0]))
	y := int(math.Floor(p[1]))
	if x < 0 || x >= src.Width || y < 0 || y >= src.Height {
		return 0, false
	}
	v := src.Data[src.Index(x, y)]
	if v == src.Nodata || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func sampleBilinear(src *Raster, p orb.Point) (float64, bool) {
	// Shift from pixel-edge to pixel-centre coordinates.
	gx := p[0] - 0.5
	gy := p[1] - 0.5
	x0 := int(math.Floor(gx))
	y0 := int(math.Floor(gy))
	fx := gx - float64(x0)
	fy := gy - float64(y0)

	var sum, weight float64
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			x, y := x0+dx, y0+dy
			if x < 0 || x >= src.Width || y < 0 || y >= src.Height {
				continue
			}
			v := src.Data[src.Index(x, y)]
			if v == src.Nodata || math.IsNaN(v) {
				continue
			}
			wx := 1 - fx
			if dx == 1 {
				wx = fx
			}
			wy := 1 - fy
			if dy == 1 {
				wy = fy
			}
			sum += v * wx * wy
			weight += wx * wy
		}
	}
	if weight <= 0 {
		return 0, false
	}
	return sum / weight, true
}
