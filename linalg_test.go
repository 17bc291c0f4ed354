package gridcube

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func TestDecomposeRWSRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		a := Affine{
			A: rng.Float64()*20 - 10,
			B: rng.Float64()*20 - 10,
			D: rng.Float64()*20 - 10,
			E: rng.Float64()*20 - 10,
		}
		if math.Abs(a.Det()) < 1e-3 {
			continue // near-singular draws are not interesting here
		}

		r, w, s, err := DecomposeRWS(a)
		if err != nil {
			t.Fatalf("matrix %d: decompose failed: %v", i, err)
		}

		// R must be a proper rotation.
		if det := r.Det(); !almostEqual(det, 1, 1e-6) {
			t.Fatalf("matrix %d: det(R) = %g, want 1", i, det)
		}
		if !almostEqual(r.A*r.A+r.D*r.D, 1, 1e-6) || !almostEqual(r.B*r.B+r.E*r.E, 1, 1e-6) {
			t.Fatalf("matrix %d: R columns not unit length: %v", i, r)
		}

		// W is unit-diagonal upper triangular, S diagonal.
		if w.A != 1 || w.E != 1 || w.D != 0 {
			t.Fatalf("matrix %d: malformed shear %v", i, w)
		}
		if s.B != 0 || s.D != 0 {
			t.Fatalf("matrix %d: malformed scale %v", i, s)
		}

		// Product reconstructs the input.
		got := r.Mul(w).Mul(s)
		if !affinesAlmostEqual(got, a, 1e-6*math.Max(1, math.Abs(a.Det()))) {
			t.Fatalf("matrix %d: R*W*S = %v, want %v", i, got, a)
		}
	}
}

func TestDecomposeRWSAxisAligned(t *testing.T) {
	a := Affine{A: 10, E: -10}
	_, w, s, err := DecomposeRWS(a)
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}
	if !almostEqual(w.B, 0, 1e-12) {
		t.Errorf("axis-aligned input produced shear %g", w.B)
	}
	if !almostEqual(math.Abs(s.A), 10, 1e-9) || !almostEqual(math.Abs(s.E), 10, 1e-9) {
		t.Errorf("scale = (%g, %g), want magnitudes (10, 10)", s.A, s.E)
	}
}

func TestDecomposeRWSDegenerate(t *testing.T) {
	if _, _, _, err := DecomposeRWS(Affine{A: 1, B: 2, D: 2, E: 4}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("degenerate decompose error = %v, want ErrInvalidGeometry", err)
	}
}

func TestAffineFromPointsRecovers(t *testing.T) {
	want := Affine{A: 2.5, B: -0.3, C: 17, D: 0.1, E: -2.5, F: -42}

	rng := rand.New(rand.NewSource(7))
	src := make([]orb.Point, 12)
	dst := make([]orb.Point, 12)
	for i := range src {
		src[i] = orb.Point{rng.Float64() * 100, rng.Float64() * 100}
		dst[i] = want.ApplyPoint(src[i])
	}

	got, err := AffineFromPoints(src, dst)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if !affinesAlmostEqual(got, want, 1e-5) {
		t.Errorf("fitted %v, want %v", got, want)
	}
}

func TestAffineFromPointsExactWithThree(t *testing.T) {
	want := Affine{A: 1, C: 5, E: 1, F: -5}
	src := []orb.Point{{0, 0}, {10, 0}, {0, 10}}
	dst := []orb.Point{{5, -5}, {15, -5}, {5, 5}}

	got, err := AffineFromPoints(src, dst)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if !affinesAlmostEqual(got, want, 1e-9) {
		t.Errorf("fitted %v, want %v", got, want)
	}
}

func TestAffineFromPointsTooFew(t *testing.T) {
	_, err := AffineFromPoints(
		[]orb.Point{{0, 0}, {1, 1}},
		[]orb.Point{{0, 0}, {1, 1}},
	)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Errorf("error = %v, want ErrInsufficientPoints", err)
	}
}

func TestScaleOfLinear(t *testing.T) {
	sx, sy, err := ScaleOfLinear(Affine{A: 3, E: -7})
	if err != nil {
		t.Fatalf("ScaleOfLinear failed: %v", err)
	}
	if !almostEqual(sx, 3, 1e-9) || !almostEqual(sy, 7, 1e-9) {
		t.Errorf("scale = (%g, %g), want (3, 7)", sx, sy)
	}

	// Rotation does not change scale magnitudes.
	cos, sin := math.Cos(0.3), math.Sin(0.3)
	rotScaled := Affine{A: 3 * cos, B: -5 * sin, D: 3 * sin, E: 5 * cos}
	sx, sy, err = ScaleOfLinear(rotScaled)
	if err != nil {
		t.Fatalf("ScaleOfLinear failed: %v", err)
	}
	if !almostEqual(sx, 3, 1e-9) || !almostEqual(sy, 5, 1e-9) {
		t.Errorf("rotated scale = (%g, %g), want (3, 5)", sx, sy)
	}
}

func TestScaleAtPointAffineMapping(t *testing.T) {
	a := Affine{A: 0.5, C: 100, E: 2, F: -30}
	fn := func(pts []orb.Point) ([]orb.Point, error) {
		return applyAffineBatch(a, pts), nil
	}

	sx, sy, err := ScaleAtPoint(orb.Point{50, 50}, fn, 1.0)
	if err != nil {
		t.Fatalf("ScaleAtPoint failed: %v", err)
	}
	if !almostEqual(sx, 0.5, 1e-6) || !almostEqual(sy, 2, 1e-6) {
		t.Errorf("local scale = (%g, %g), want (0.5, 2)", sx, sy)
	}
}

func TestScaleAtPointDropsNaNSamples(t *testing.T) {
	// One neighbour lands outside the domain; the fit still succeeds on the
	// remaining four correspondences.
	fn := func(pts []orb.Point) ([]orb.Point, error) {
		out := make([]orb.Point, len(pts))
		for i, p := range pts {
			if p[1] > 50.5 {
				out[i] = orb.Point{math.NaN(), math.NaN()}
				continue
			}
			out[i] = orb.Point{p[0] * 2, p[1] * 2}
		}
		return out, nil
	}

	sx, sy, err := ScaleAtPoint(orb.Point{50, 50}, fn, 1.0)
	if err != nil {
		t.Fatalf("ScaleAtPoint failed: %v", err)
	}
	if !almostEqual(sx, 2, 1e-6) || !almostEqual(sy, 2, 1e-6) {
		t.Errorf("local scale = (%g, %g), want (2, 2)", sx, sy)
	}
}
