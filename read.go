package gridcube

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Raster is a single-band pixel buffer in the flat row-major layout
// index = y*Width + x, with an attached nodata value. Multi-band and
// time-stacked containers live above this core and hand it one band at a
// time.
type Raster struct {
	Data   []float64
	Width  int
	Height int
	Nodata float64
}

// NewRaster allocates a raster pre-filled with its nodata value.
func NewRaster(width, height int, nodata float64) *Raster {
	data := make([]float64, width*height)
	if nodata != 0 {
		for i := range data {
			data[i] = nodata
		}
	}
	return &Raster{Data: data, Width: width, Height: height, Nodata: nodata}
}

// Index returns the flat array index for (x, y).
func (r *Raster) Index(x, y int) int { return y*r.Width + x }

// At returns the value at (x, y), or the nodata value out of bounds.
func (r *Raster) At(x, y int) float64 {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return r.Nodata
	}
	return r.Data[y*r.Width+x]
}

// Set sets the value at (x, y); out-of-bounds writes are dropped.
func (r *Raster) Set(x, y int, v float64) {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return
	}
	r.Data[y*r.Width+x] = v
}

// Resampling selects the warp kernel.
type Resampling uint8

const (
	ResampleNearest Resampling = iota
	ResampleBilinear
)

// RasterReader reads pixel windows from some storage driver. Requesting an
// output shape smaller than the region asks for a decimated read, GDAL
// RasterIO-style, which is how the dispatcher's pre-shrink avoids pulling
// full-resolution pixels it is about to throw away.
type RasterReader interface {
	ReadWindow(ctx context.Context, roi PixelROI, outRows, outCols int) (*Raster, error)
}

// Warper resamples src onto dst given both grids' placements. GDAL-class
// warp libraries are adapted to this interface; ResampleWarper is the
// built-in implementation.
type Warper interface {
	Warp(ctx context.Context, src *Raster, srcBox GeoBox, dst *Raster, dstBox GeoBox, resampling Resampling) error
}

// FusePolicy decides how a freshly read value merges into a destination cell
// when several sources contribute to one buffer. It returns the value to
// store and whether to store it.
type FusePolicy func(dstVal, srcVal, dstNodata, srcNodata float64) (float64, bool)

// FuseKeepValid writes a source value only where it is valid and the
// destination cell still holds nodata, so earlier sources win.
func FuseKeepValid(dstVal, srcVal, dstNodata, srcNodata float64) (float64, bool) {
	if srcVal == srcNodata || math.IsNaN(srcVal) {
		return 0, false
	}
	if dstVal != dstNodata && !math.IsNaN(dstNodata) {
		return 0, false
	}
	if math.IsNaN(dstNodata) && !math.IsNaN(dstVal) {
		return 0, false
	}
	return srcVal, true
}

// FuseOverwrite always writes valid source values, so later sources win.
func FuseOverwrite(dstVal, srcVal, dstNodata, srcNodata float64) (float64, bool) {
	if srcVal == srcNodata || math.IsNaN(srcVal) {
		return 0, false
	}
	return srcVal, true
}

// Reader dispatches planned reads: it computes a ReprojectPlan for a
// source/destination grid pair and then either does nothing (no overlap),
// copies pixels directly (pixel-aligned scale-1 translation), or shrinks and
// warps. Reader itself is stateless apart from its configuration and is safe
// for concurrent use; callers typically run one Load per worker to
// parallelise multi-source loads.
type Reader struct {
	cache   *TransformCache
	warper  Warper
	fuse    FusePolicy
	log     zerolog.Logger
	metrics *PlanMetrics
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithWarper replaces the built-in resampling warper.
func WithWarper(w Warper) ReaderOption {
	return func(r *Reader) { r.warper = w }
}

// WithFusePolicy replaces the default FuseKeepValid merge behaviour.
func WithFusePolicy(f FusePolicy) ReaderOption {
	return func(r *Reader) { r.fuse = f }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.log = l }
}

// WithMetrics attaches plan outcome counters.
func WithMetrics(m *PlanMetrics) ReaderOption {
	return func(r *Reader) { r.metrics = m }
}

// WithReaderCache shares a transform cache across readers.
func WithReaderCache(tc *TransformCache) ReaderOption {
	return func(r *Reader) { r.cache = tc }
}

// NewReader builds a read dispatcher with the built-in transformer set,
// warper and fuse policy unless overridden.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		fuse: FuseKeepValid,
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.cache == nil {
		// Only errors on a non-positive size, which we don't pass.
		r.cache, _ = NewTransformCache(nil, 32)
	}
	if r.warper == nil {
		r.warper = NewResampleWarper(r.cache)
	}
	return r
}

// Load plans and executes one source's contribution to the destination
// buffer, which the caller pre-fills with nodata. It returns the destination
// region actually written (the plan's destination ROI) so callers fusing
// multiple sources know which cells were touched. Errors from the underlying
// reader or warper propagate without retries; retry policy belongs to the
// caller's fusion loop.
func (rd *Reader) Load(ctx context.Context, src RasterReader, srcBox GeoBox, dst *Raster, dstBox GeoBox, resampling Resampling, opts ...PlanOption) (PixelROI, error) {
	if dst.Width != dstBox.Width() || dst.Height != dstBox.Height() {
		return emptyROI, fmt.Errorf("destination buffer %dx%d does not match grid %dx%d: %w",
			dst.Width, dst.Height, dstBox.Width(), dstBox.Height(), ErrInvalidGeometry)
	}

	// The reader's cache is the default; a WithTransformCache passed by the
	// caller applies later and wins. Fresh slice so the caller's variadic
	// backing array is never touched.
	planOpts := make([]PlanOption, 0, len(opts)+1)
	planOpts = append(planOpts, WithTransformCache(rd.cache))
	planOpts = append(planOpts, opts...)

	plan, err := ComputeReprojectROI(srcBox, dstBox, planOpts...)
	if err != nil {
		return emptyROI, err
	}

	switch {
	case plan.ROIDst.IsEmpty():
		rd.metrics.observe("empty")
		rd.log.Debug().Str("outcome", "empty").Msg("no overlap between source and destination")
		return emptyROI, nil

	case canPaste(plan):
		rd.metrics.observe("paste")
		rd.log.Debug().Str("outcome", "paste").
			Stringer("roi_src", plan.ROISrc).Stringer("roi_dst", plan.ROIDst).
			Msg("pixel-aligned copy")
		if err := rd.paste(ctx, src, plan, dst); err != nil {
			return emptyROI, err
		}

	default:
		rd.metrics.observe("warp")
		rd.log.Debug().Str("outcome", "warp").
			Float64("scale", plan.Scale).Int("downsample", PickDownsampleScale(plan.Scale)).
			Stringer("roi_src", plan.ROISrc).Stringer("roi_dst", plan.ROIDst).
			Msg("resampled read")
		if err := rd.warp(ctx, src, srcBox, plan, dst, dstBox, resampling); err != nil {
			return emptyROI, err
		}
	}
	return plan.ROIDst, nil
}

// pasteTol bounds how far a translation may sit from an integer pixel offset
// and still qualify for the copy path.
const pasteTol = 1e-9

// canPaste reports whether the plan describes a pure pixel-aligned unit-scale
// translation (axis flips allowed), where a direct copy replaces resampling.
func canPaste(plan *ReprojectPlan) bool {
	if !plan.IsScaleTranslate || plan.Transform.Linear == nil {
		return false
	}
	a := plan.Transform.Linear
	unit := func(v float64) bool { return math.Abs(math.Abs(v)-1) < pasteTol }
	aligned := func(v float64) bool { return math.Abs(v-math.Round(v)) < pasteTol }
	if !unit(a.A) || !unit(a.E) {
		return false
	}
	srcRows, srcCols := plan.ROISrc.Shape()
	dstRows, dstCols := plan.ROIDst.Shape()
	return aligned(a.C) && aligned(a.F) && srcRows == dstRows && srcCols == dstCols
}

func (rd *Reader) paste(ctx context.Context, src RasterReader, plan *ReprojectPlan, dst *Raster) error {
	rows, cols := plan.ROISrc.Shape()
	win, err := src.ReadWindow(ctx, plan.ROISrc, rows, cols)
	if err != nil {
		return fmt.Errorf("%w: read window %v: %w", ErrExternalWarp, plan.ROISrc, err)
	}

	a := plan.Transform.Linear
	flipX := a.A < 0
	flipY := a.E < 0
	for dy := 0; dy < rows; dy++ {
		sy := dy
		if flipY {
			sy = rows - 1 - dy
		}
		for dx := 0; dx < cols; dx++ {
			sx := dx
			if flipX {
				sx = cols - 1 - dx
			}
			tx := plan.ROIDst.Cols.Start + dx
			ty := plan.ROIDst.Rows.Start + dy
			if v, ok := rd.fuse(dst.At(tx, ty), win.At(sx, sy), dst.Nodata, win.Nodata); ok {
				dst.Set(tx, ty, v)
			}
		}
	}
	return nil
}

func (rd *Reader) warp(ctx context.Context, src RasterReader, srcBox GeoBox, plan *ReprojectPlan, dst *Raster, dstBox GeoBox, resampling Resampling) error {
	srcWin := srcBox.Slice(plan.ROISrc)
	outRows, outCols := plan.ROISrc.Shape()
	if factor := PickDownsampleScale(plan.Scale); factor > 1 {
		srcWin = srcWin.ZoomOut(float64(factor))
		outRows, outCols = srcWin.Height(), srcWin.Width()
	}

	buf, err := src.ReadWindow(ctx, plan.ROISrc, outRows, outCols)
	if err != nil {
		return fmt.Errorf("%w: read window %v: %w", ErrExternalWarp, plan.ROISrc, err)
	}

	rows, cols := plan.ROIDst.Shape()
	tmp := newPooledRaster(cols, rows, dst.Nodata)
	defer releaseRaster(tmp)

	if err := rd.warper.Warp(ctx, buf, srcWin, tmp, dstBox.Slice(plan.ROIDst), resampling); err != nil {
		return fmt.Errorf("%w: %w", ErrExternalWarp, err)
	}

	for dy := 0; dy < rows; dy++ {
		ty := plan.ROIDst.Rows.Start + dy
		for dx := 0; dx < cols; dx++ {
			tx := plan.ROIDst.Cols.Start + dx
			if v, ok := rd.fuse(dst.At(tx, ty), tmp.At(dx, dy), dst.Nodata, tmp.Nodata); ok {
				dst.Set(tx, ty, v)
			}
		}
	}
	return nil
}
