package gridcube

import "errors"

// Planning-layer errors are programmer errors on malformed input and are
// surfaced immediately, never retried. External-library failures are wrapped
// with the sentinels below so callers can branch with errors.Is while still
// seeing the underlying cause.
var (
	// ErrInvalidGeometry reports a degenerate grid: non-positive shape or a
	// zero-determinant affine transform.
	ErrInvalidGeometry = errors.New("gridcube: invalid geometry")

	// ErrInsufficientPoints reports fewer than 3 point correspondences passed
	// to AffineFromPoints.
	ErrInsufficientPoints = errors.New("gridcube: at least 3 point pairs required")

	// ErrIndexOutOfRange reports a tile index outside the tiling grid.
	ErrIndexOutOfRange = errors.New("gridcube: tile index out of range")

	// ErrExternalTransform wraps failures reported by a CRS point transformer.
	ErrExternalTransform = errors.New("gridcube: external transform failure")

	// ErrExternalWarp wraps failures reported by a raster reader or warper.
	ErrExternalWarp = errors.New("gridcube: external warp failure")
)
