package gridcube

import (
	"testing"

	"github.com/paulmach/orb"
)

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}
}

func TestPolygonsIntersect(t *testing.T) {
	cases := []struct {
		name string
		a, b orb.Polygon
		want bool
	}{
		{"overlapping", square(0, 0, 10, 10), square(5, 5, 15, 15), true},
		{"disjoint", square(0, 0, 10, 10), square(20, 20, 30, 30), false},
		{"contained", square(0, 0, 10, 10), square(2, 2, 8, 8), true},
		{"containing", square(2, 2, 8, 8), square(0, 0, 10, 10), true},
		{"touching edge", square(0, 0, 10, 10), square(10, 0, 20, 10), true},
		{"empty", orb.Polygon{}, square(0, 0, 1, 1), false},
		{
			// Cross shapes: edges cross but no vertex of either lies inside
			// the other.
			"crossing without contained vertices",
			square(-1, 4, 11, 6),
			square(4, -1, 6, 11),
			true,
		},
	}
	for _, tc := range cases {
		if got := polygonsIntersect(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: polygonsIntersect = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGeometryPolygons(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 2}}
	polys := geometryPolygons(b)
	if len(polys) != 1 || len(polys[0]) != 1 || len(polys[0][0]) != 5 {
		t.Fatalf("bound polygons = %v, want one closed ring", polys)
	}

	// Every member of a MultiPolygon survives.
	mp := orb.MultiPolygon{square(0, 0, 1, 1), square(10, 10, 11, 11)}
	polys = geometryPolygons(mp)
	if len(polys) != 2 {
		t.Fatalf("multipolygon reduced to %d members, want 2", len(polys))
	}

	// A line string falls back to its bounding box.
	ls := orb.LineString{{0, 0}, {10, 5}}
	polys = geometryPolygons(ls)
	if len(polys) != 1 {
		t.Fatalf("line polygons = %v", polys)
	}
	if got := polys[0].Bound(); got.Min != ls.Bound().Min || got.Max != ls.Bound().Max {
		t.Errorf("line fallback bound = %v, want %v", got, ls.Bound())
	}
}

func TestMultiPolygonIntersects(t *testing.T) {
	mp := orb.MultiPolygon{square(0, 0, 10, 10), square(100, 100, 110, 110)}
	if !multiPolygonIntersects(mp, square(105, 105, 115, 115)) {
		t.Error("intersection with a later member was missed")
	}
	if multiPolygonIntersects(mp, square(50, 50, 60, 60)) {
		t.Error("polygon between the members reported intersecting")
	}
	if multiPolygonIntersects(orb.MultiPolygon{}, square(0, 0, 1, 1)) {
		t.Error("empty multipolygon reported intersecting")
	}
}

func TestPolygonFromBoundEmpty(t *testing.T) {
	empty := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{0, 0}}
	if p := PolygonFromBound(empty); len(p) != 0 {
		t.Errorf("empty bound gave polygon %v", p)
	}
}
