package gridcube

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// GeoBox describes a rectangular pixel grid anchored in world space: a pixel
// shape, an affine transform mapping pixel-edge coordinates (col, row) to
// world coordinates, and an optional CRS. GeoBoxes are immutable values; all
// derived methods return new instances.
type GeoBox struct {
	width, height int
	transform     Affine
	crs           *CRS
}

// NewGeoBox validates and constructs a GeoBox. Non-positive shapes and
// degenerate (zero determinant) transforms are rejected with
// ErrInvalidGeometry.
func NewGeoBox(width, height int, transform Affine, crs *CRS) (GeoBox, error) {
	if width <= 0 || height <= 0 {
		return GeoBox{}, fmt.Errorf("geobox %dx%d: %w", width, height, ErrInvalidGeometry)
	}
	if !transform.IsInvertible() {
		return GeoBox{}, fmt.Errorf("geobox transform %v is degenerate: %w", transform, ErrInvalidGeometry)
	}
	return GeoBox{width: width, height: height, transform: transform, crs: crs}, nil
}

// Width returns the number of pixel columns.
func (g GeoBox) Width() int { return g.width }

// Height returns the number of pixel rows.
func (g GeoBox) Height() int { return g.height }

// Shape returns (rows, cols).
func (g GeoBox) Shape() (int, int) { return g.height, g.width }

// Transform returns the pixel-to-world affine transform.
func (g GeoBox) Transform() Affine { return g.transform }

// CRS returns the coordinate reference system, or nil when unset.
func (g GeoBox) CRS() *CRS { return g.crs }

// ROI returns the full-extent pixel region of the grid.
func (g GeoBox) ROI() PixelROI {
	return PixelROI{Rows: Span{0, g.height}, Cols: Span{0, g.width}}
}

// Extent returns the footprint polygon: the four grid corners mapped through
// the transform, as a closed ring.
func (g GeoBox) Extent() orb.Polygon {
	w, h := float64(g.width), float64(g.height)
	corners := [4]orb.Point{
		g.transform.ApplyPoint(orb.Point{0, 0}),
		g.transform.ApplyPoint(orb.Point{w, 0}),
		g.transform.ApplyPoint(orb.Point{w, h}),
		g.transform.ApplyPoint(orb.Point{0, h}),
	}
	ring := orb.Ring{corners[0], corners[1], corners[2], corners[3], corners[0]}
	return orb.Polygon{ring}
}

// Bound returns the axis-aligned world bounding box of the extent.
func (g GeoBox) Bound() orb.Bound {
	return g.Extent().Bound()
}

// Coordinates returns per-axis pixel-centre world coordinates: xs along the
// first row, ys along the first column. For axis-aligned grids these are the
// usual coordinate arrays of each axis.
func (g GeoBox) Coordinates() (xs, ys []float64) {
	xs = make([]float64, g.width)
	ys = make([]float64, g.height)
	for i := range xs {
		x, _ := g.transform.Apply(float64(i)+0.5, 0.5)
		xs[i] = x
	}
	for j := range ys {
		_, y := g.transform.Apply(0.5, float64(j)+0.5)
		ys[j] = y
	}
	return xs, ys
}

// Slice returns the sub-grid covering the given pixel region. The translation
// is composed into the transform so the sub-grid stays anchored in world
// space; the CRS is preserved. Constant time.
func (g GeoBox) Slice(roi PixelROI) GeoBox {
	rows, cols := roi.Shape()
	return GeoBox{
		width:     cols,
		height:    rows,
		transform: g.transform.Mul(Translation(float64(roi.Cols.Start), float64(roi.Rows.Start))),
		crs:       g.crs,
	}
}

// Buffered expands the grid by dy/dx world units per side, rounded up to
// whole pixels.
func (g GeoBox) Buffered(dy, dx float64) GeoBox {
	resx, resy := g.transform.Resolution()
	nx := int(math.Ceil(math.Abs(dx) / resx))
	ny := int(math.Ceil(math.Abs(dy) / resy))
	return GeoBox{
		width:     g.width + 2*nx,
		height:    g.height + 2*ny,
		transform: g.transform.Mul(Translation(float64(-nx), float64(-ny))),
		crs:       g.crs,
	}
}

// ZoomOut returns a grid covering the same footprint at 1/factor the
// resolution. This is the GeoBox-only pre-shrink used before warping; no
// pixels are touched.
func (g GeoBox) ZoomOut(factor float64) GeoBox {
	if factor <= 1 {
		return g
	}
	return GeoBox{
		width:     int(math.Ceil(float64(g.width) / factor)),
		height:    int(math.Ceil(float64(g.height) / factor)),
		transform: g.transform.Mul(Scale(factor, factor)),
		crs:       g.crs,
	}
}

// Equal reports value equality: same shape, coefficient-wise identical
// transform, equal CRS.
func (g GeoBox) Equal(o GeoBox) bool {
	return g.width == o.width && g.height == o.height &&
		g.transform == o.transform && g.crs.Equal(o.crs)
}

func (g GeoBox) String() string {
	return fmt.Sprintf("GeoBox(%dx%d, %v, %q)", g.width, g.height, g.transform, g.crs.String())
}
