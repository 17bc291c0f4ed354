package gridcube

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Built-in spherical Web Mercator support so the cross-CRS planning path is
// exercisable without an external PROJ-class library. Anything beyond the
// EPSG:4326 <-> EPSG:3857 pair must come from a caller-supplied
// TransformerSource.

const maxMercator = 20037508.342789244

type wgs84ToMercator struct{}

func (wgs84ToMercator) Transform(pts []orb.Point) ([]orb.Point, error) {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		lon, lat := p[0], p[1]
		if math.Abs(lat) >= 90 {
			// Poles are outside the mercator domain.
			out[i] = orb.Point{math.NaN(), math.NaN()}
			continue
		}
		x := lon / 180.0 * maxMercator
		y := math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / math.Pi * maxMercator
		out[i] = orb.Point{x, y}
	}
	return out, nil
}

type mercatorToWGS84 struct{}

func (mercatorToWGS84) Transform(pts []orb.Point) ([]orb.Point, error) {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		lon := p[0] / maxMercator * 180.0
		lat := math.Atan(math.Exp(p[1]*math.Pi/maxMercator))*360.0/math.Pi - 90.0
		out[i] = orb.Point{lon, lat}
	}
	return out, nil
}

type builtinTransforms struct{}

// Between returns transformers for the supported EPSG pairs.
func (builtinTransforms) Between(src, dst *CRS) (PointTransformer, PointTransformer, error) {
	s, sok := src.Code()
	d, dok := dst.Code()
	if !sok || !dok {
		return nil, nil, fmt.Errorf("no transformer for %q -> %q", src.String(), dst.String())
	}
	switch {
	case s == 4326 && d == 3857:
		return wgs84ToMercator{}, mercatorToWGS84{}, nil
	case s == 3857 && d == 4326:
		return mercatorToWGS84{}, wgs84ToMercator{}, nil
	default:
		return nil, nil, fmt.Errorf("no transformer for EPSG:%d -> EPSG:%d", s, d)
	}
}

// DefaultTransforms is the built-in transformer set covering the Web Mercator
// pair. Replace it per cache via NewTransformCache to plug in a full CRS
// library.
var DefaultTransforms TransformerSource = builtinTransforms{}
