package gridcube

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Affine is a 2D affine map
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
//
// using the rasterio coefficient layout. For a north-up grid A is the pixel
// width, E the (negative) pixel height and (C, F) the world coordinates of
// the top-left corner.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translation returns a transform that shifts by (tx, ty).
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scale returns a transform that scales by (sx, sy) about the origin.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// FromGDAL converts a GDAL GeoTransform array into an Affine.
func FromGDAL(gt [6]float64) Affine {
	return Affine{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}
}

// ToGDAL converts the Affine into GDAL GeoTransform order.
func (a Affine) ToGDAL() [6]float64 {
	return [6]float64{a.C, a.A, a.B, a.F, a.D, a.E}
}

// Apply maps the point (x, y) through the transform.
func (a Affine) Apply(x, y float64) (float64, float64) {
	return a.A*x + a.B*y + a.C, a.D*x + a.E*y + a.F
}

// ApplyPoint maps an orb.Point through the transform.
func (a Affine) ApplyPoint(p orb.Point) orb.Point {
	x, y := a.Apply(p[0], p[1])
	return orb.Point{x, y}
}

// Mul composes two transforms: (a.Mul(b)).Apply(p) == a.Apply(b.Apply(p)).
func (a Affine) Mul(b Affine) Affine {
	return Affine{
		A: a.A*b.A + a.B*b.D,
		B: a.A*b.B + a.B*b.E,
		C: a.A*b.C + a.B*b.F + a.C,
		D: a.D*b.A + a.E*b.D,
		E: a.D*b.B + a.E*b.E,
		F: a.D*b.C + a.E*b.F + a.F,
	}
}

// Det returns the determinant of the linear part.
func (a Affine) Det() float64 {
	return a.A*a.E - a.B*a.D
}

// IsInvertible reports whether the transform has an inverse.
func (a Affine) IsInvertible() bool {
	det := a.Det()
	return det != 0 && !math.IsNaN(det) && !math.IsInf(det, 0)
}

// Invert returns the inverse transform. The caller is expected to have
// validated invertibility; grids with degenerate transforms are rejected at
// GeoBox construction.
func (a Affine) Invert() Affine {
	idet := 1.0 / a.Det()
	inv := Affine{
		A: a.E * idet,
		B: -a.B * idet,
		D: -a.D * idet,
		E: a.A * idet,
	}
	inv.C = -a.C*inv.A - a.F*inv.B
	inv.F = -a.C*inv.D - a.F*inv.E
	return inv
}

// Resolution returns the absolute per-axis scale magnitudes. Exact for
// axis-aligned transforms; for rotated or sheared ones use ScaleOfLinear.
func (a Affine) Resolution() (float64, float64) {
	return math.Abs(a.A), math.Abs(a.E)
}

// stTol bounds the off-diagonal terms below which a transform counts as pure
// scale+translate, and translation remainders below which a scale-1 transform
// counts as pixel-aligned.
const stTol = 1e-10

// IsScaleTranslate reports whether the transform has no rotation or shear
// component within tolerance.
func (a Affine) IsScaleTranslate() bool {
	return math.Abs(a.B) < stTol && math.Abs(a.D) < stTol
}

func (a Affine) String() string {
	return fmt.Sprintf("Affine(%g, %g, %g, %g, %g, %g)", a.A, a.B, a.C, a.D, a.E, a.F)
}
