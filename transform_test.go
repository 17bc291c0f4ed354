package gridcube

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func TestLinearPixelTransformRoundTrip(t *testing.T) {
	src := northUpBox(t, 100, 100, 10, 0, 1000, EPSG(32633))
	dst := northUpBox(t, 50, 50, 20, 300, 700, EPSG(32633))

	tr, err := PixelTransformBetween(src, dst)
	if err != nil {
		t.Fatalf("PixelTransformBetween: %v", err)
	}
	if tr.Linear == nil {
		t.Fatal("same-CRS transform should be linear")
	}

	rng := rand.New(rand.NewSource(3))
	pts := make([]orb.Point, 100)
	for i := range pts {
		pts[i] = orb.Point{rng.Float64() * 100, rng.Float64() * 100}
	}

	fwd, err := tr.Forward(pts)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	back, err := tr.Back(fwd)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	for i := range pts {
		if !almostEqual(back[i][0], pts[i][0], 1e-9) || !almostEqual(back[i][1], pts[i][1], 1e-9) {
			t.Fatalf("point %d round trip %v -> %v", i, pts[i], back[i])
		}
	}

	// Linear holds the destination to source direction.
	got := tr.Linear.ApplyPoint(orb.Point{0, 0})
	wx, wy := dst.Transform().Apply(0, 0)
	want := src.Transform().Invert().ApplyPoint(orb.Point{wx, wy})
	if !almostEqual(got[0], want[0], 1e-9) || !almostEqual(got[1], want[1], 1e-9) {
		t.Errorf("Linear(0,0) = %v, want %v", got, want)
	}
}

func TestNoCRSPixelTransform(t *testing.T) {
	// Two plain pixel grids with no CRS still relate linearly.
	src := northUpBox(t, 10, 10, 1, 0, 10, nil)
	dst := northUpBox(t, 10, 10, 1, 5, 10, nil)

	tr, err := PixelTransformBetween(src, dst)
	if err != nil {
		t.Fatalf("PixelTransformBetween: %v", err)
	}
	if tr.Linear == nil {
		t.Fatal("CRS-less grids should take the linear path")
	}
}

func TestCrossCRSPixelTransformRoundTrip(t *testing.T) {
	src := northUpBox(t, 360, 170, 1, -180, 85, EPSG(4326))
	dst := northUpBox(t, 256, 256, 100000, -12800000, 12800000, EPSG(3857))

	tr, err := PixelTransformBetween(src, dst)
	if err != nil {
		t.Fatalf("PixelTransformBetween: %v", err)
	}
	if tr.Linear != nil {
		t.Fatal("cross-CRS transform should not be linear")
	}

	rng := rand.New(rand.NewSource(11))
	pts := make([]orb.Point, 100)
	for i := range pts {
		// Interior source pixels, away from the projection's edge.
		pts[i] = orb.Point{20 + rng.Float64()*320, 20 + rng.Float64()*130}
	}

	fwd, err := tr.Forward(pts)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	back, err := tr.Back(fwd)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	for i := range pts {
		if !almostEqual(back[i][0], pts[i][0], 1e-6) || !almostEqual(back[i][1], pts[i][1], 1e-6) {
			t.Fatalf("point %d round trip %v -> %v", i, pts[i], back[i])
		}
	}
}

func TestMercatorDomain(t *testing.T) {
	out, err := wgs84ToMercator{}.Transform([]orb.Point{{0, 0}, {0, 90}, {0, -95}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out[0][0] != 0 || !almostEqual(out[0][1], 0, 1e-9) {
		t.Errorf("origin mapped to %v", out[0])
	}
	if !math.IsNaN(out[1][0]) || !math.IsNaN(out[2][1]) {
		t.Errorf("poles should map to NaN, got %v, %v", out[1], out[2])
	}

	// Antimeridian hits the mercator bound.
	out, err = wgs84ToMercator{}.Transform([]orb.Point{{180, 0}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !almostEqual(out[0][0], maxMercator, 1e-6) {
		t.Errorf("lon 180 mapped to x = %g, want %g", out[0][0], maxMercator)
	}
}

// identityTransformer passes world coordinates through unchanged, standing in
// for a real CRS library in tests.
type identityTransformer struct{}

func (identityTransformer) Transform(pts []orb.Point) ([]orb.Point, error) {
	out := make([]orb.Point, len(pts))
	copy(out, pts)
	return out, nil
}

// countingSource wraps the built-in transformers and counts constructions.
type countingSource struct {
	calls int
}

func (c *countingSource) Between(src, dst *CRS) (PointTransformer, PointTransformer, error) {
	c.calls++
	return builtinTransforms{}.Between(src, dst)
}

func TestTransformCacheMemoises(t *testing.T) {
	src := northUpBox(t, 10, 10, 1, 0, 10, EPSG(4326))
	dst := northUpBox(t, 10, 10, 100000, 0, 1000000, EPSG(3857))

	counting := &countingSource{}
	cache, err := NewTransformCache(counting, 4)
	if err != nil {
		t.Fatalf("NewTransformCache: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := cache.PixelTransform(src, dst); err != nil {
			t.Fatalf("PixelTransform: %v", err)
		}
	}
	if counting.calls != 1 {
		t.Errorf("transformer constructed %d times, want 1", counting.calls)
	}

	// Same-CRS lookups never touch the source.
	if _, err := cache.PixelTransform(src, src); err != nil {
		t.Fatalf("PixelTransform same CRS: %v", err)
	}
	if counting.calls != 1 {
		t.Errorf("same-CRS lookup constructed a transformer")
	}
}

func TestTransformUnknownPair(t *testing.T) {
	src := northUpBox(t, 10, 10, 1, 0, 10, EPSG(4326))
	dst := northUpBox(t, 10, 10, 1, 0, 10, EPSG(27700))

	if _, err := PixelTransformBetween(src, dst); err == nil {
		t.Error("expected error for an unsupported CRS pair")
	}
}
