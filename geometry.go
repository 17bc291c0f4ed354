package gridcube

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PolygonFromBound creates a closed polygon from a bounding box.
func PolygonFromBound(bound orb.Bound) orb.Polygon {
	if bound.IsEmpty() {
		return orb.Polygon{}
	}
	ring := orb.Ring{
		{bound.Min[0], bound.Min[1]},
		{bound.Max[0], bound.Min[1]},
		{bound.Max[0], bound.Max[1]},
		{bound.Min[0], bound.Max[1]},
		{bound.Min[0], bound.Min[1]},
	}
	return orb.Polygon{ring}
}

// geometryPolygons reduces a geometry to the set of polygons used for
// intersection testing. MultiPolygons keep every member. Non-areal geometries
// fall back to their bounding box.
func geometryPolygons(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Ring:
		return orb.MultiPolygon{orb.Polygon{v}}
	case orb.Bound:
		return orb.MultiPolygon{PolygonFromBound(v)}
	default:
		return orb.MultiPolygon{PolygonFromBound(g.Bound())}
	}
}

// multiPolygonIntersects reports whether any member polygon intersects p.
func multiPolygonIntersects(mp orb.MultiPolygon, p orb.Polygon) bool {
	for _, member := range mp {
		if polygonsIntersect(member, p) {
			return true
		}
	}
	return false
}

// polygonsIntersect reports whether two polygons share any area or boundary.
// orb ships point-in-polygon containment but no polygon-intersects-polygon
// predicate, so this combines a bound pre-filter, mutual vertex containment
// and pairwise edge crossing.
func polygonsIntersect(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, p := range a[0] {
		if planar.PolygonContains(b, p) {
			return true
		}
	}
	for _, p := range b[0] {
		if planar.PolygonContains(a, p) {
			return true
		}
	}
	for _, ra := range a {
		for _, rb := range b {
			if ringsCross(ra, rb) {
				return true
			}
		}
	}
	return false
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
