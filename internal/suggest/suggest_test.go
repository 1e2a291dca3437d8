package suggest

import (
	"image"
	"math"
	"testing"
)

func TestSimplifyRespectsMaxVertices(t *testing.T) {
	// A dense circle-like contour should collapse well under the cap.
	contour := make([]image.Point, 0, 360)
	for deg := 0; deg < 360; deg++ {
		rad := float64(deg) * math.Pi / 180
		contour = append(contour, image.Point{
			X: 100 + int(50*math.Cos(rad)),
			Y: 100 + int(50*math.Sin(rad)),
		})
	}

	opts := DefaultOptions()
	opts.MaxVertices = 12
	points := simplify(contour, opts)

	if len(points) < 3 {
		t.Fatalf("got %d vertices, want at least 3", len(points))
	}
	if len(points) > opts.MaxVertices {
		t.Fatalf("got %d vertices, cap is %d", len(points), opts.MaxVertices)
	}
}

func TestSimplifyKeepsRectangleCorners(t *testing.T) {
	contour := []image.Point{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0},
		{X: 100, Y: 50}, {X: 100, Y: 100},
		{X: 50, Y: 100}, {X: 0, Y: 100}, {X: 0, Y: 50},
	}
	points := simplify(contour, DefaultOptions())

	if len(points) < 3 || len(points) > 5 {
		t.Fatalf("rectangle simplified to %d vertices", len(points))
	}
}

func TestSimplifyTinyEpsilonKeepsAllVertices(t *testing.T) {
	square := []image.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	pts := simplify(square, Options{EpsilonFraction: 0.0001, MaxVertices: 10})
	if len(pts) != 4 {
		t.Fatalf("square simplified to %d vertices", len(pts))
	}
}
