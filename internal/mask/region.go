// Package mask provides the mask region model and the interactive region builder.
package mask

import (
	"fmt"

	"maskstudio/pkg/geometry"
)

// MinPoints is the minimum number of vertices a region must have before it
// can be committed.
const MinPoints = 3

// Alignment describes how cropped content is positioned inside a region.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Valid reports whether the alignment is one of the known values.
func (a Alignment) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// Region is a closed polygon over an image, stored in source space, with
// cropping metadata. Points are ordered; the polygon is implicitly closed
// from the last point back to the first.
type Region struct {
	Points    []geometry.Point2D `json:"points"`
	IsCropped bool               `json:"is_cropped"`
	Alignment Alignment          `json:"alignment"`
}

// Validate checks the region invariants: at least MinPoints vertices and a
// known alignment value.
func (r Region) Validate() error {
	if len(r.Points) < MinPoints {
		return fmt.Errorf("%w: have %d", ErrInsufficientPoints, len(r.Points))
	}
	if !r.Alignment.Valid() {
		return fmt.Errorf("invalid alignment %q", r.Alignment)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the region in source space.
func (r Region) Bounds() geometry.Rect {
	return geometry.BoundingBox(r.Points)
}

// Contains reports whether a source-space point falls inside the region.
// The bounding box rejects most misses before the polygon test runs.
func (r Region) Contains(p geometry.Point2D) bool {
	if !r.Bounds().Contains(p) {
		return false
	}
	return geometry.PointInPolygon(p, r.Points)
}

// PointPairs returns the region vertices as [x, y] pairs, the wire format
// the mask-data endpoint expects.
func (r Region) PointPairs() [][2]float64 {
	pairs := make([][2]float64, len(r.Points))
	for i, p := range r.Points {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return pairs
}
