package gridcube

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/valyala/fasthttp"
)

// MemSource serves windows from an in-memory raster. It is the reference
// RasterReader used in tests and for data already resident in process.
type MemSource struct {
	raster *Raster
}

// NewMemSource wraps a raster as a window reader.
func NewMemSource(r *Raster) *MemSource {
	return &MemSource{raster: r}
}

func (s *MemSource) ReadWindow(ctx context.Context, roi PixelROI, outRows, outCols int) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkWindow(roi, outRows, outCols, s.raster.Width, s.raster.Height); err != nil {
		return nil, err
	}

	rows, cols := roi.Shape()
	out := NewRaster(outCols, outRows, s.raster.Nodata)
	for oy := 0; oy < outRows; oy++ {
		sy := roi.Rows.Start + pickSample(oy, outRows, rows)
		for ox := 0; ox < outCols; ox++ {
			sx := roi.Cols.Start + pickSample(ox, outCols, cols)
			out.Data[oy*outCols+ox] = s.raster.Data[sy*s.raster.Width+sx]
		}
	}
	return out, nil
}

// pickSample maps an output index to a source index within the window,
// nearest-style, for decimated reads.
func pickSample(out, outN, n int) int {
	if outN == n {
		return out
	}
	i := int((float64(out) + 0.5) * float64(n) / float64(outN))
	if i >= n {
		i = n - 1
	}
	return i
}

func checkWindow(roi PixelROI, outRows, outCols, width, height int) error {
	if outRows <= 0 || outCols <= 0 {
		return fmt.Errorf("output shape %dx%d: %w", outRows, outCols, ErrInvalidGeometry)
	}
	if roi.IsEmpty() {
		return fmt.Errorf("empty window %v: %w", roi, ErrInvalidGeometry)
	}
	if roi.Rows.Start < 0 || roi.Rows.Stop > height || roi.Cols.Start < 0 || roi.Cols.Stop > width {
		return fmt.Errorf("window %v outside %dx%d raster: %w", roi, width, height, ErrIndexOutOfRange)
	}
	return nil
}

// HTTPSource reads windows from a flat binary raster served over HTTP: a
// row-major grid of little-endian float64 samples with no header. Each
// requested row maps to one byte-range request, so only the window's bytes
// travel over the network.
type HTTPSource struct {
	url    string
	client *fasthttp.Client
	width  int
	height int
	nodata float64
}

// NewHTTPSource builds a reader for a remote flat float64 raster of the
// given shape. A nil client gets conservative default timeouts.
func NewHTTPSource(url string, client *fasthttp.Client, width, height int, nodata float64) (*HTTPSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster shape %dx%d: %w", width, height, ErrInvalidGeometry)
	}
	if client == nil {
		client = &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}
	return &HTTPSource{
		url:    url,
		client: client,
		width:  width,
		height: height,
		nodata: nodata,
	}, nil
}

const sampleBytes = 8

func (s *HTTPSource) ReadWindow(ctx context.Context, roi PixelROI, outRows, outCols int) (*Raster, error) {
	if err := checkWindow(roi, outRows, outCols, s.width, s.height); err != nil {
		return nil, err
	}

	rows, cols := roi.Shape()
	out := NewRaster(outCols, outRows, s.nodata)
	for oy := 0; oy < outRows; oy++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sy := roi.Rows.Start + pickSample(oy, outRows, rows)
		start := int64(sy*s.width+roi.Cols.Start) * sampleBytes
		end := start + int64(cols)*sampleBytes - 1
		body, err := s.fetchRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", sy, s.url, err)
		}
		if len(body) < cols*sampleBytes {
			return nil, fmt.Errorf("row %d of %s: short read %d bytes", sy, s.url, len(body))
		}
		for ox := 0; ox < outCols; ox++ {
			sx := pickSample(ox, outCols, cols)
			bits := binary.LittleEndian.Uint64(body[sx*sampleBytes:])
			out.Data[oy*outCols+ox] = math.Float64frombits(bits)
		}
	}
	return out, nil
}

func (s *HTTPSource) fetchRange(start, end int64) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	if err := s.client.Do(req, resp); err != nil {
		return nil, err
	}

	body := resp.Body()
	switch resp.StatusCode() {
	case fasthttp.StatusPartialContent:
	case fasthttp.StatusOK:
		// The server ignored the Range header and sent everything. Take the
		// requested slice if the payload really is the whole raster; anything
		// else would decode the wrong pixels.
		full := int64(s.width*s.height) * sampleBytes
		if int64(len(body)) != full || end >= full {
			return nil, fmt.Errorf("range %d-%d ignored, got %d of %d bytes", start, end, len(body), full)
		}
		body = body[start : end+1]
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	// Copy the slice since the response is released on return.
	result := make([]byte, len(body))
	copy(result, body)
	return result, nil
}
