package gridcube

import (
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// GeoboxTiles partitions a base GeoBox into a regular grid of sub-GeoBoxes.
// All tiles share the tile shape except the bottom/right edge tiles, which
// are truncated to the remaining pixels. Tile GeoBoxes are memoised; the memo
// is guarded so concurrent lookups of the same tile do not duplicate work.
type GeoboxTiles struct {
	base     GeoBox
	tileRows int
	tileCols int
	gridRows int
	gridCols int

	mu   sync.Mutex
	memo map[[2]int]GeoBox
}

// NewGeoboxTiles partitions base into tiles of tileRows x tileCols pixels.
func NewGeoboxTiles(base GeoBox, tileRows, tileCols int) (*GeoboxTiles, error) {
	if tileRows <= 0 || tileCols <= 0 {
		return nil, fmt.Errorf("tile shape %dx%d: %w", tileRows, tileCols, ErrInvalidGeometry)
	}
	return &GeoboxTiles{
		base:     base,
		tileRows: tileRows,
		tileCols: tileCols,
		gridRows: (base.Height() + tileRows - 1) / tileRows,
		gridCols: (base.Width() + tileCols - 1) / tileCols,
		memo:     make(map[[2]int]GeoBox),
	}, nil
}

// Base returns the partitioned GeoBox.
func (t *GeoboxTiles) Base() GeoBox { return t.base }

// GridShape returns the number of tile rows and columns.
func (t *GeoboxTiles) GridShape() (int, int) { return t.gridRows, t.gridCols }

func (t *GeoboxTiles) inRange(r, c int) bool {
	return r >= 0 && r < t.gridRows && c >= 0 && c < t.gridCols
}

func (t *GeoboxTiles) roiFor(r, c int) PixelROI {
	return PixelROI{
		Rows: Span{r * t.tileRows, min((r+1)*t.tileRows, t.base.Height())},
		Cols: Span{c * t.tileCols, min((c+1)*t.tileCols, t.base.Width())},
	}
}

// ChunkShape returns the pixel shape (rows, cols) of tile (r, c) without
// materialising its GeoBox.
func (t *GeoboxTiles) ChunkShape(r, c int) (int, int, error) {
	if !t.inRange(r, c) {
		return 0, 0, fmt.Errorf("tile (%d, %d) of %dx%d grid: %w", r, c, t.gridRows, t.gridCols, ErrIndexOutOfRange)
	}
	rows, cols := t.roiFor(r, c).Shape()
	return rows, cols, nil
}

// Tile returns the GeoBox of tile (r, c).
func (t *GeoboxTiles) Tile(r, c int) (GeoBox, error) {
	if !t.inRange(r, c) {
		return GeoBox{}, fmt.Errorf("tile (%d, %d) of %dx%d grid: %w", r, c, t.gridRows, t.gridCols, ErrIndexOutOfRange)
	}
	key := [2]int{r, c}
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.memo[key]; ok {
		return g, nil
	}
	g := t.base.Slice(t.roiFor(r, c))
	t.memo[key] = g
	return g, nil
}

// TilesOverlapping yields the indices (r, c) of tiles whose pixel footprint
// overlaps the given world bounding box. The box is mapped through the base
// transform into tile-index space and clamped to the grid; iteration is lazy.
func (t *GeoboxTiles) TilesOverlapping(bound orb.Bound) iter.Seq2[int, int] {
	inv := t.base.Transform().Invert()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4]orb.Point{
		{bound.Min[0], bound.Min[1]},
		{bound.Max[0], bound.Min[1]},
		{bound.Max[0], bound.Max[1]},
		{bound.Min[0], bound.Max[1]},
	} {
		x, y := inv.Apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	r0 := max(int(math.Floor(minY/float64(t.tileRows))), 0)
	r1 := min(int(math.Ceil(maxY/float64(t.tileRows))), t.gridRows)
	c0 := max(int(math.Floor(minX/float64(t.tileCols))), 0)
	c1 := min(int(math.Ceil(maxX/float64(t.tileCols))), t.gridCols)

	return func(yield func(int, int) bool) {
		for r := r0; r < r1; r++ {
			for c := c0; c < c1; c++ {
				if !yield(r, c) {
					return
				}
			}
		}
	}
}

// TilesIntersecting yields the tiles whose extent polygon actually intersects
// the geometry, filtering out the bounding-box false positives of
// TilesOverlapping with an exact polygon test.
func (t *GeoboxTiles) TilesIntersecting(g orb.Geometry) iter.Seq2[int, int] {
	polys := geometryPolygons(g)
	return func(yield func(int, int) bool) {
		for r, c := range t.TilesOverlapping(g.Bound()) {
			tile, err := t.Tile(r, c)
			if err != nil {
				continue
			}
			if !multiPolygonIntersects(polys, tile.Extent()) {
				continue
			}
			if !yield(r, c) {
				return
			}
		}
	}
}

// MapTileGeoBox returns the Web Mercator GeoBox of a slippy-map tile at the
// given pixel size (256 when size <= 0), so map tiles feed the same planning
// machinery as any other grid.
func MapTileGeoBox(tile maptile.Tile, size int) (GeoBox, error) {
	if size <= 0 {
		size = 256
	}
	bound := tile.Bound()
	corners, err := wgs84ToMercator{}.Transform([]orb.Point{
		{bound.Min[0], bound.Max[1]}, // top-left
		{bound.Max[0], bound.Min[1]}, // bottom-right
	})
	if err != nil {
		return GeoBox{}, err
	}
	tl, br := corners[0], corners[1]
	resX := (br[0] - tl[0]) / float64(size)
	resY := (tl[1] - br[1]) / float64(size)
	transform := Affine{A: resX, C: tl[0], E: -resY, F: tl[1]}
	return NewGeoBox(size, size, transform, EPSG(3857))
}
