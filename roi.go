package gridcube

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Span is a half-open integer interval [Start, Stop) along one pixel axis.
type Span struct {
	Start, Stop int
}

// Len returns the number of pixels covered.
func (s Span) Len() int {
	if s.Stop <= s.Start {
		return 0
	}
	return s.Stop - s.Start
}

// IsEmpty reports whether the interval covers no pixels.
func (s Span) IsEmpty() bool { return s.Stop <= s.Start }

// PixelROI is a rectangular pixel region: half-open row and column intervals.
type PixelROI struct {
	Rows, Cols Span
}

// IsEmpty reports whether the region covers no pixels on either axis.
func (r PixelROI) IsEmpty() bool { return r.Rows.IsEmpty() || r.Cols.IsEmpty() }

// Shape returns (rows, cols) of the region.
func (r PixelROI) Shape() (int, int) { return r.Rows.Len(), r.Cols.Len() }

// Center returns the pixel-space centre point (x=col, y=row) of the region.
func (r PixelROI) Center() orb.Point {
	return orb.Point{
		float64(r.Cols.Start+r.Cols.Stop) / 2,
		float64(r.Rows.Start+r.Rows.Stop) / 2,
	}
}

func (r PixelROI) String() string {
	return fmt.Sprintf("ROI[%d:%d, %d:%d]", r.Rows.Start, r.Rows.Stop, r.Cols.Start, r.Cols.Stop)
}

// emptyROI is the normal form for regions with no coverage.
var emptyROI = PixelROI{}

// ROIFromPoints returns the integer bounding box of a pixel-space point set
// (x=col, y=row), padded by padding pixels per side, with each edge rounded
// outward to a multiple of align when align > 1, finally clamped to the grid
// shape. NaN points (outside the CRS domain) are skipped. An empty point set,
// or one entirely outside the grid, yields an empty ROI, never an error.
func ROIFromPoints(points []orb.Point, rows, cols, padding, align int) PixelROI {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			continue
		}
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	if math.IsInf(minX, 1) {
		return emptyROI
	}

	c := Span{int(math.Floor(minX)) - padding, int(math.Ceil(maxX)) + padding}
	r := Span{int(math.Floor(minY)) - padding, int(math.Ceil(maxY)) + padding}
	if align > 1 {
		c = alignSpan(c, align)
		r = alignSpan(r, align)
	}
	c = clampSpan(c, cols)
	r = clampSpan(r, rows)
	if c.IsEmpty() || r.IsEmpty() {
		return emptyROI
	}
	return PixelROI{Rows: r, Cols: c}
}

func alignSpan(s Span, align int) Span {
	return Span{
		Start: int(math.Floor(float64(s.Start)/float64(align))) * align,
		Stop:  int(math.Ceil(float64(s.Stop)/float64(align))) * align,
	}
}

func clampSpan(s Span, n int) Span {
	return Span{Start: max(s.Start, 0), Stop: min(s.Stop, n)}
}

// axisOverlap solves the 1D overlap problem for grids related by the linear
// map x_src = s*x_dst + t: given nSrc source and nDst destination pixels it
// returns the overlapping intervals in both grids. A negative s is reflected
// into an equivalent positive-scale problem over the flipped source axis and
// the result reflected back. Boundaries are biased with floor/ceil so the
// source interval always fully covers the rounded destination footprint
// (except where clipped by the source domain itself).
func axisOverlap(nSrc, nDst int, s, t float64) (src, dst Span) {
	flipped := s < 0
	if flipped {
		// x_src' = nSrc - x_src = (-s)*x_dst + (nSrc - t)
		s, t = -s, float64(nSrc)-t
	}

	// Inverse map: x_dst = si*x_src + ti.
	si := 1.0 / s
	ti := -t * si

	if t < 0 {
		// Destination starts before the source origin.
		src.Start = 0
		dst.Start = min(int(math.Floor(ti)), nDst)
	} else {
		src.Start = min(int(math.Floor(t)), nSrc)
		dst.Start = 0
	}

	srcEnd := int(math.Ceil(float64(nDst)*s + t))
	if srcEnd <= nSrc {
		src.Stop = srcEnd
		dst.Stop = nDst
	} else {
		src.Stop = nSrc
		dst.Stop = min(int(math.Ceil(float64(nSrc)*si+ti)), nDst)
	}

	if src.IsEmpty() || dst.IsEmpty() {
		return Span{}, Span{}
	}
	if flipped {
		src = Span{nSrc - src.Stop, nSrc - src.Start}
	}
	return src, dst
}

// ReprojectPlan is the output of ComputeReprojectROI: the overlapping regions
// of both grids, the shrink factor for pre-warp downsampling (Scale > 1 means
// the source can be shrunk before warping), and the pixel transform used to
// derive them.
type ReprojectPlan struct {
	ROISrc PixelROI
	ROIDst PixelROI

	// ScaleXY is the per-axis ratio of source pixels per destination pixel.
	ScaleXY [2]float64
	// Scale is the conservative (smaller) component of ScaleXY.
	Scale float64

	// IsScaleTranslate reports that the grids are related by an axis-aligned
	// scale plus translation with no rotation or shear.
	IsScaleTranslate bool

	Transform *PixelTransform
}

// Boundary sampling budgets: exact affine relations need only the corners,
// curved (cross-CRS) mappings get extra points per side. Tuned for accuracy
// versus cost; pathological high-curvature projections may need more.
const (
	affineBoundaryPoints = 2
	projBoundaryPoints   = 5
)

// PlanOption adjusts ComputeReprojectROI behaviour.
type PlanOption func(*planConfig)

type planConfig struct {
	padding int // -1 when unset
	align   int // -1 when unset
	cache   *TransformCache
}

// WithPadding pads the source ROI by the given number of pixels per side.
func WithPadding(px int) PlanOption {
	return func(c *planConfig) { c.padding = px }
}

// WithAlign rounds the source ROI edges outward to multiples of the given
// pixel count.
func WithAlign(px int) PlanOption {
	return func(c *planConfig) { c.align = px }
}

// WithTransformCache routes pixel-transform construction through the given
// cache instead of the built-in transformer set.
func WithTransformCache(tc *TransformCache) PlanOption {
	return func(c *planConfig) { c.cache = tc }
}

// ComputeReprojectROI computes the minimal overlapping pixel regions of the
// source and destination grids along with the downsampling factor appropriate
// before warping.
//
// Grids related by a pure scale+translate affine, with no padding or
// alignment requested, take an exact per-axis integer path. Other affine
// relations sample the destination boundary and map it through the affine.
// Cross-CRS relations sample more boundary points through the external
// transform, defaulting to 1 pixel of padding to absorb curvature, and
// estimate scale locally at the source ROI centre. Points the CRS transform
// sends outside its domain count as no overlap, not as errors.
func ComputeReprojectROI(src, dst GeoBox, opts ...PlanOption) (*ReprojectPlan, error) {
	cfg := planConfig{padding: -1, align: -1}
	for _, o := range opts {
		o(&cfg)
	}

	var tr *PixelTransform
	var err error
	if cfg.cache != nil {
		tr, err = cfg.cache.PixelTransform(src, dst)
	} else {
		tr, err = PixelTransformBetween(src, dst)
	}
	if err != nil {
		return nil, err
	}

	plan := &ReprojectPlan{Transform: tr, Scale: 1, ScaleXY: [2]float64{1, 1}}

	if tr.Linear != nil {
		a := *tr.Linear // destination pixel -> source pixel
		plan.IsScaleTranslate = a.IsScaleTranslate()

		if plan.IsScaleTranslate && cfg.padding < 0 && cfg.align < 0 {
			colSrc, colDst := axisOverlap(src.Width(), dst.Width(), a.A, a.C)
			rowSrc, rowDst := axisOverlap(src.Height(), dst.Height(), a.E, a.F)
			plan.ROISrc = PixelROI{Rows: rowSrc, Cols: colSrc}
			plan.ROIDst = PixelROI{Rows: rowDst, Cols: colDst}
		} else {
			if err := sampledROIs(plan, tr, src, dst, affineBoundaryPoints, max(cfg.padding, 0), cfg.align); err != nil {
				return nil, err
			}
		}

		sx, sy, err := ScaleOfLinear(a)
		if err != nil {
			return nil, err
		}
		plan.ScaleXY = [2]float64{sx, sy}
	} else {
		padding := cfg.padding
		if padding < 0 {
			padding = 1
		}
		if err := sampledROIs(plan, tr, src, dst, projBoundaryPoints, padding, cfg.align); err != nil {
			return nil, err
		}

		if !plan.ROISrc.IsEmpty() {
			// Forward maps src->dst, so the local scale is destination pixels
			// per source pixel; the shrink convention wants the reciprocal.
			fx, fy, err := ScaleAtPoint(plan.ROISrc.Center(), tr.Forward, 1.0)
			switch {
			case errors.Is(err, ErrInsufficientPoints):
				// Too many centre samples fell outside the CRS domain to fit a
				// local affine; keep the default scale of 1 rather than fail a
				// plan whose overlap is already established.
			case err != nil:
				return nil, err
			case fx > 0 && fy > 0:
				plan.ScaleXY = [2]float64{1 / fx, 1 / fy}
			}
		}
	}

	if plan.ROISrc.IsEmpty() || plan.ROIDst.IsEmpty() {
		plan.ROISrc, plan.ROIDst = emptyROI, emptyROI
	}
	plan.Scale = math.Min(plan.ScaleXY[0], plan.ScaleXY[1])
	return plan, nil
}

// sampledROIs fills in the plan's regions by boundary sampling: destination
// boundary points are mapped back into source pixel space and boxed (with
// padding and alignment), then the source box boundary is mapped forward to
// bound the destination region.
func sampledROIs(plan *ReprojectPlan, tr *PixelTransform, src, dst GeoBox, pointsPerSide, padding, align int) error {
	back, err := tr.Back(boundaryPoints(dst.ROI(), pointsPerSide))
	if err != nil {
		return err
	}
	plan.ROISrc = ROIFromPoints(back, src.Height(), src.Width(), padding, align)
	if plan.ROISrc.IsEmpty() {
		plan.ROIDst = emptyROI
		return nil
	}

	fwd, err := tr.Forward(boundaryPoints(plan.ROISrc, pointsPerSide))
	if err != nil {
		return err
	}
	plan.ROIDst = ROIFromPoints(fwd, dst.Height(), dst.Width(), 0, 0)
	return nil
}

// boundaryPoints samples n points per side along the edges of a pixel region,
// in pixel-edge coordinates (x=col, y=row). Corners are included; n < 2 is
// raised to 2.
func boundaryPoints(roi PixelROI, n int) []orb.Point {
	if n < 2 {
		n = 2
	}
	x0, x1 := float64(roi.Cols.Start), float64(roi.Cols.Stop)
	y0, y1 := float64(roi.Rows.Start), float64(roi.Rows.Stop)

	pts := make([]orb.Point, 0, 4*n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n-1)
		x := x0 + f*(x1-x0)
		y := y0 + f*(y1-y0)
		pts = append(pts,
			orb.Point{x, y0}, orb.Point{x, y1},
			orb.Point{x0, y}, orb.Point{x1, y},
		)
	}
	return pts
}

// downsampleTol is the snap distance when rounding a continuous shrink factor
// to a whole number.
const downsampleTol = 1e-3

// PickDownsampleScale converts a continuous shrink factor into the integer
// pre-downsampling factor applied to the source before warping: factors below
// 1 (upsampling) never shrink, near-integer factors snap, anything else
// floors so the warp always has at least the resolution it needs.
func PickDownsampleScale(scale float64) int {
	if scale < 1 {
		return 1
	}
	rounded := math.Round(scale)
	if math.Abs(scale-rounded) < downsampleTol {
		return int(rounded)
	}
	return max(int(math.Floor(scale)), 1)
}
