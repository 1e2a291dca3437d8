package mask

import (
	"maskstudio/pkg/geometry"
)

// Mode selects how the builder interprets clicks.
type Mode int

const (
	// ModePoint appends a free-form polygon vertex per click.
	ModePoint Mode = iota
	// ModeRectangle records an anchor on the first click and synthesizes a
	// four-corner rectangle on the second.
	ModeRectangle
)

func (m Mode) String() string {
	switch m {
	case ModePoint:
		return "point"
	case ModeRectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

// Builder accumulates vertices for the region currently being drawn.
// All accumulated points are in display space; Commit converts them to
// source space. The builder never touches the session or the canvas; it is
// driven by the session and redraws are triggered there.
type Builder struct {
	mode   Mode
	points []geometry.Point2D
	anchor *geometry.Point2D
}

// NewBuilder creates a Builder in point mode.
func NewBuilder() *Builder {
	return &Builder{mode: ModePoint}
}

// Mode returns the current drawing mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// SetMode switches the drawing mode. Switching modes discards any pending
// rectangle anchor but keeps already accumulated vertices.
func (b *Builder) SetMode(mode Mode) {
	b.mode = mode
	b.anchor = nil
}

// Points returns the in-progress display-space vertex list for live preview.
// The returned slice is a copy.
func (b *Builder) Points() []geometry.Point2D {
	out := make([]geometry.Point2D, len(b.points))
	copy(out, b.points)
	return out
}

// PendingAnchor returns the recorded rectangle anchor, or nil when none is
// pending.
func (b *Builder) PendingAnchor() *geometry.Point2D {
	if b.anchor == nil {
		return nil
	}
	a := *b.anchor
	return &a
}

// AddPoint appends a display-space vertex in point mode. There is no upper
// bound on the vertex count.
func (b *Builder) AddPoint(p geometry.Point2D) {
	b.points = append(b.points, p)
}

// BeginRectangle records the first corner of a rectangle. It does not yet
// produce any vertices; the two-click gesture is atomic and only
// CompleteRectangle materializes the region.
func (b *Builder) BeginRectangle(anchor geometry.Point2D) {
	b.anchor = &anchor
}

// CompleteRectangle synthesizes the four corner points from the recorded
// anchor and the opposite corner, replacing the in-progress vertex list in
// one step. The winding order is anchor, (opposite.x, anchor.y), opposite,
// (anchor.x, opposite.y).
func (b *Builder) CompleteRectangle(opposite geometry.Point2D) error {
	if b.anchor == nil {
		return ErrNoAnchor
	}
	a := *b.anchor
	b.points = []geometry.Point2D{
		a,
		{X: opposite.X, Y: a.Y},
		opposite,
		{X: a.X, Y: opposite.Y},
	}
	b.anchor = nil
	return nil
}

// Click feeds a display-space click to the builder according to the current
// mode. In rectangle mode the first click records the anchor and the second
// completes the rectangle.
func (b *Builder) Click(p geometry.Point2D) error {
	if b.mode == ModeRectangle {
		if b.anchor == nil {
			b.BeginRectangle(p)
			return nil
		}
		return b.CompleteRectangle(p)
	}
	b.AddPoint(p)
	return nil
}

// RemoveLastPoint drops the most recently added vertex, if any. A pending
// rectangle anchor is cleared first.
func (b *Builder) RemoveLastPoint() {
	if b.anchor != nil {
		b.anchor = nil
		return
	}
	if len(b.points) > 0 {
		b.points = b.points[:len(b.points)-1]
	}
}

// SetPoints replaces the in-progress vertex list, used by the mask
// suggestion feature to seed a proposed polygon the user can then adjust.
func (b *Builder) SetPoints(points []geometry.Point2D) {
	b.points = make([]geometry.Point2D, len(points))
	copy(b.points, points)
	b.anchor = nil
}

// Commit converts the in-progress vertices to source space using the given
// display scale and returns the finished region with default metadata
// (not cropped, center aligned). It fails with ErrInsufficientPoints when
// fewer than MinPoints vertices have been accumulated, leaving the builder
// state unchanged. On success the vertex list and any pending anchor are
// cleared.
func (b *Builder) Commit(scale float64) (Region, error) {
	if len(b.points) < MinPoints {
		return Region{}, ErrInsufficientPoints
	}

	region := Region{
		Points:    geometry.ToSourceAll(b.points, scale),
		IsCropped: false,
		Alignment: AlignCenter,
	}

	b.points = nil
	b.anchor = nil
	return region, nil
}

// Reset clears in-progress vertices and any pending rectangle anchor
// without committing. Resetting an empty builder is a no-op.
func (b *Builder) Reset() {
	b.points = nil
	b.anchor = nil
}
