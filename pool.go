package gridcube

import (
	"sync"

	"github.com/paulmach/orb"
)

// Buffer pools for reducing GC pressure on the read path: warp scratch
// rasters and per-row point batches are acquired and released per call.

const (
	smallWindowSize = 256 * 256
	largeWindowSize = 512 * 512
)

var windowPool = struct {
	small sync.Pool
	large sync.Pool
}{
	small: sync.Pool{
		New: func() interface{} {
			buf := make([]float64, smallWindowSize)
			return &buf
		},
	},
	large: sync.Pool{
		New: func() interface{} {
			buf := make([]float64, largeWindowSize)
			return &buf
		},
	},
}

// getWindow returns a float64 slice of exactly the requested length, pooled
// when the size fits a standard tier.
func getWindow(size int) []float64 {
	if size <= smallWindowSize {
		buf := windowPool.small.Get().(*[]float64)
		return (*buf)[:size]
	}
	if size <= largeWindowSize {
		buf := windowPool.large.Get().(*[]float64)
		return (*buf)[:size]
	}
	return make([]float64, size)
}

// putWindow returns a buffer to its pool. Only standard tier sizes are kept.
func putWindow(buf []float64) {
	c := cap(buf)
	if c == 0 {
		return
	}
	buf = buf[:c]
	switch c {
	case smallWindowSize:
		windowPool.small.Put(&buf)
	case largeWindowSize:
		windowPool.large.Put(&buf)
	}
}

// newPooledRaster builds a nodata-filled scratch raster over a pooled buffer.
// Release with releaseRaster; never hand it to a caller.
func newPooledRaster(width, height int, nodata float64) *Raster {
	data := getWindow(width * height)
	for i := range data {
		data[i] = nodata
	}
	return &Raster{Data: data, Width: width, Height: height, Nodata: nodata}
}

func releaseRaster(r *Raster) {
	putWindow(r.Data)
	r.Data = nil
}

var pointsPool = sync.Pool{
	New: func() interface{} {
		buf := make([]orb.Point, 0, 1024)
		return &buf
	},
}

func getPoints(size int) []orb.Point {
	buf := pointsPool.Get().(*[]orb.Point)
	if cap(*buf) < size {
		*buf = make([]orb.Point, size)
	}
	return (*buf)[:size]
}

func putPoints(buf []orb.Point) {
	buf = buf[:0]
	pointsPool.Put(&buf)
}
