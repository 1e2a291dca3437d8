// Package render draws the mask-definition overlay: the scaled base image,
// committed regions, and the in-progress polygon or rectangle preview.
package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"maskstudio/internal/mask"
	"maskstudio/pkg/geometry"
)

// View is everything the projector needs for one frame. Committed region
// points are in source space; in-progress points, anchor, and pointer are
// in display space.
type View struct {
	Base       image.Image
	Scale      float64
	Committed  []mask.Region
	InProgress []geometry.Point2D
	Anchor     *geometry.Point2D
	Pointer    *geometry.Point2D
}

// Region fill colors, cycled by commit order. The most recently committed
// region is drawn with a stronger fill so it stands out.
var palette = []color.RGBA{
	{R: 0x00, G: 0xA0, B: 0xA0, A: 0xFF}, // teal
	{R: 0xE6, G: 0x7E, B: 0x22, A: 0xFF}, // orange
	{R: 0x8E, G: 0x44, B: 0xAD, A: 0xFF}, // purple
	{R: 0x27, G: 0xAE, B: 0x60, A: 0xFF}, // green
	{R: 0xC0, G: 0x39, B: 0x2B, A: 0xFF}, // red
	{R: 0x29, G: 0x80, B: 0xB9, A: 0xFF}, // blue
}

const (
	fillAlpha       = 0.30
	latestFillAlpha = 0.45
	markerSize      = 3 // half-extent of the vertex marker square
	dashLength      = 5
)

var markerColor = color.RGBA{R: 0xFF, G: 0xD5, B: 0x00, A: 0xFF}

// Project renders the view to a fresh RGBA image sized to the display
// dimensions of the base image. It is a pure function of its input: calling
// it twice with the same view produces identical pixels and nothing in the
// view is mutated.
func Project(view View) *image.RGBA {
	srcBounds := view.Base.Bounds()
	dw := int(math.Round(float64(srcBounds.Dx()) * view.Scale))
	dh := int(math.Round(float64(srcBounds.Dy()) * view.Scale))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), view.Base, srcBounds, xdraw.Src, nil)

	for i, region := range view.Committed {
		col := palette[i%len(palette)]
		alpha := fillAlpha
		if i == len(view.Committed)-1 {
			alpha = latestFillAlpha
		}
		display := geometry.ToDisplayAll(region.Points, view.Scale)
		fillPolygon(out, display, col, alpha)
		drawPolyline(out, display, col, true)

		// Number the region at the center of its bounds so the label stays
		// readable for concave shapes whose centroid drifts off-fill.
		center := geometry.BoundingBox(display).Center()
		drawNumber(out, i+1, int(center.X)-glyphWidth*glyphScale/2, int(center.Y)-glyphHeight*glyphScale/2)
	}

	drawInProgress(out, view.InProgress)

	if view.Anchor != nil && view.Pointer != nil {
		drawDashedRect(out, *view.Anchor, *view.Pointer, markerColor)
	}

	return out
}

// drawInProgress draws the open vertex chain with numbered markers.
func drawInProgress(out *image.RGBA, points []geometry.Point2D) {
	for i := 1; i < len(points); i++ {
		drawLine(out, points[i-1], points[i], markerColor)
	}
	for i, p := range points {
		drawMarker(out, p, i+1)
	}
}

// fillPolygon fills a closed polygon with a scanline pass, blending the
// color at the given opacity over the existing pixels.
func fillPolygon(out *image.RGBA, polygon []geometry.Point2D, col color.RGBA, alpha float64) {
	if len(polygon) < 3 {
		return
	}
	bb := geometry.BoundingBox(polygon)
	yMin := int(math.Floor(bb.Y))
	yMax := int(math.Ceil(bb.Y + bb.Height))

	n := len(polygon)
	xs := make([]float64, 0, n)

	for y := yMin; y <= yMax; y++ {
		cy := float64(y) + 0.5
		xs = xs[:0]
		for i := 0; i < n; i++ {
			a := polygon[i]
			b := polygon[(i+1)%n]
			if (a.Y <= cy && b.Y > cy) || (b.Y <= cy && a.Y > cy) {
				t := (cy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		if len(xs) < 2 {
			continue
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x1 := int(math.Ceil(xs[i]))
			x2 := int(math.Floor(xs[i+1]))
			for x := x1; x <= x2; x++ {
				blendPixel(out, x, y, col, alpha)
			}
		}
	}
}

// sortFloats sorts a small slice in place; insertion sort keeps this
// allocation-free in the per-scanline hot path.
func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// blendPixel blends col over the pixel at (x, y) at the given opacity.
func blendPixel(out *image.RGBA, x, y int, col color.RGBA, alpha float64) {
	if !(image.Point{X: x, Y: y}).In(out.Bounds()) {
		return
	}
	dr, dg, db, _ := out.At(x, y).RGBA()
	inv := 1 - alpha
	r := uint8(float64(col.R)*alpha + float64(dr>>8)*inv)
	g := uint8(float64(col.G)*alpha + float64(dg>>8)*inv)
	b := uint8(float64(col.B)*alpha + float64(db>>8)*inv)
	out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
}

// drawPolyline draws line segments between consecutive points, optionally
// closing the last point back to the first.
func drawPolyline(out *image.RGBA, points []geometry.Point2D, col color.RGBA, closed bool) {
	for i := 1; i < len(points); i++ {
		drawLine(out, points[i-1], points[i], col)
	}
	if closed && len(points) > 2 {
		drawLine(out, points[len(points)-1], points[0], col)
	}
}

// drawLine draws a solid line using Bresenham's algorithm.
func drawLine(out *image.RGBA, from, to geometry.Point2D, col color.RGBA) {
	plotLine(out, from, to, col, 0)
}

// drawDashedLine draws a dashed line (dashLength pixels on, dashLength off).
func drawDashedLine(out *image.RGBA, from, to geometry.Point2D, col color.RGBA) {
	plotLine(out, from, to, col, dashLength)
}

// plotLine is the shared Bresenham walk; dash == 0 draws solid.
func plotLine(out *image.RGBA, from, to geometry.Point2D, col color.RGBA, dash int) {
	x0, y0 := int(math.Round(from.X)), int(math.Round(from.Y))
	x1, y1 := int(math.Round(to.X)), int(math.Round(to.Y))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	step := 0
	for {
		on := dash == 0 || (step/dash)%2 == 0
		if on {
			blendPixel(out, x0, y0, col, 1.0)
		}
		step++
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawDashedRect draws the rectangle preview between two opposite corners.
func drawDashedRect(out *image.RGBA, a, b geometry.Point2D, col color.RGBA) {
	c1 := geometry.Point2D{X: b.X, Y: a.Y}
	c2 := geometry.Point2D{X: a.X, Y: b.Y}
	drawDashedLine(out, a, c1, col)
	drawDashedLine(out, c1, b, col)
	drawDashedLine(out, b, c2, col)
	drawDashedLine(out, c2, a, col)
}

// drawMarker draws a filled square at the vertex with its 1-based number
// beside it.
func drawMarker(out *image.RGBA, p geometry.Point2D, number int) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	for y := cy - markerSize; y <= cy+markerSize; y++ {
		for x := cx - markerSize; x <= cx+markerSize; x++ {
			blendPixel(out, x, y, markerColor, 1.0)
		}
	}
	drawNumber(out, number, cx+markerSize+2, cy-markerSize)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
