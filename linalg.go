package gridcube

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// DecomposeRWS factors the linear part of a into rotation * shear * scale:
//
//	a_linear == R * W * S
//
// where R is a proper rotation (det +1), W an upper-triangular unit-diagonal
// shear and S a diagonal scale. The diagonal entries of S may be negative;
// callers take the absolute value to obtain axis scale magnitudes. The
// translation terms of all three results are zero.
//
// The factorisation Cholesky-decomposes aᵀa to obtain the upper-triangular
// W*S product, then recovers R = a * (W*S)⁻¹, flipping signs when needed to
// keep R a proper rotation.
func DecomposeRWS(a Affine) (r, w, s Affine, err error) {
	g := mat.NewSymDense(2, []float64{
		a.A*a.A + a.D*a.D, a.A*a.B + a.D*a.E,
		a.A*a.B + a.D*a.E, a.B*a.B + a.E*a.E,
	})

	var chol mat.Cholesky
	if !chol.Factorize(g) {
		return r, w, s, fmt.Errorf("decompose: non-positive-definite gram matrix: %w", ErrInvalidGeometry)
	}
	var u mat.TriDense
	chol.UTo(&u)
	u11, u12, u22 := u.At(0, 0), u.At(0, 1), u.At(1, 1)

	// R = a_linear * U⁻¹ with U upper triangular.
	i12 := -u12 / (u11 * u22)
	r11 := a.A / u11
	r12 := a.A*i12 + a.B/u22
	r21 := a.D / u11
	r22 := a.D*i12 + a.E/u22

	if r11*r22-r12*r21 < 0 {
		// Improper rotation: flip the last row of U and the last column of R.
		u22 = -u22
		r12 = -r12
		r22 = -r22
	}

	r = Affine{A: r11, B: r12, D: r21, E: r22}
	w = Affine{A: 1, B: u12 / u22, E: 1}
	s = Affine{A: u11, E: u22}
	return r, w, s, nil
}

// AffineFromPoints fits the affine transform mapping src onto dst by ordinary
// least squares. At least 3 correspondences are required; with exactly 3
// non-collinear pairs the fit is exact.
func AffineFromPoints(src, dst []orb.Point) (Affine, error) {
	if len(src) < 3 || len(dst) != len(src) {
		return Affine{}, fmt.Errorf("affine fit with %d/%d points: %w", len(src), len(dst), ErrInsufficientPoints)
	}

	n := len(src)
	design := mat.NewDense(n, 3, nil)
	rhs := mat.NewDense(n, 2, nil)
	for i, p := range src {
		design.Set(i, 0, p[0])
		design.Set(i, 1, p[1])
		design.Set(i, 2, 1)
		rhs.Set(i, 0, dst[i][0])
		rhs.Set(i, 1, dst[i][1])
	}

	var sol mat.Dense
	if err := sol.Solve(design, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return Affine{}, fmt.Errorf("affine fit: %v: %w", err, ErrInvalidGeometry)
		}
		// Ill-conditioned but solved; accept the estimate.
	}

	return Affine{
		A: sol.At(0, 0), B: sol.At(1, 0), C: sol.At(2, 0),
		D: sol.At(0, 1), E: sol.At(1, 1), F: sol.At(2, 1),
	}, nil
}

// ScaleOfLinear returns the per-axis scale magnitudes of the linear part of a.
func ScaleOfLinear(a Affine) (sx, sy float64, err error) {
	_, _, s, err := DecomposeRWS(a)
	if err != nil {
		return 0, 0, err
	}
	return math.Abs(s.A), math.Abs(s.E), nil
}

// ScaleAtPoint estimates the local per-axis scale of an arbitrary point
// mapping at pt by sampling pt and its four axis neighbours at the given
// radius, fitting an affine to the correspondences and reading its scale.
// Samples the mapping sends outside its domain (NaN results) are dropped.
// Used for cross-CRS transforms where no global linear form exists.
func ScaleAtPoint(pt orb.Point, fn func([]orb.Point) ([]orb.Point, error), radius float64) (sx, sy float64, err error) {
	if radius <= 0 {
		radius = 1.0
	}
	in := []orb.Point{
		pt,
		{pt[0] + radius, pt[1]},
		{pt[0] - radius, pt[1]},
		{pt[0], pt[1] + radius},
		{pt[0], pt[1] - radius},
	}
	out, err := fn(in)
	if err != nil {
		return 0, 0, err
	}
	if len(out) != len(in) {
		return 0, 0, fmt.Errorf("scale estimate: transform returned %d of %d points: %w", len(out), len(in), ErrExternalTransform)
	}

	var fitSrc, fitDst []orb.Point
	for i, p := range out {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			continue
		}
		fitSrc = append(fitSrc, in[i])
		fitDst = append(fitDst, p)
	}
	fitted, err := AffineFromPoints(fitSrc, fitDst)
	if err != nil {
		return 0, 0, err
	}
	return ScaleOfLinear(fitted)
}
