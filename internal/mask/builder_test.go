package mask

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"maskstudio/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D {
	return geometry.Point2D{X: x, Y: y}
}

func TestCommitRequiresThreePoints(t *testing.T) {
	for n := 0; n < 3; n++ {
		b := NewBuilder()
		for i := 0; i < n; i++ {
			b.AddPoint(pt(float64(i*10), float64(i*20)))
		}
		if _, err := b.Commit(1.0); !errors.Is(err, ErrInsufficientPoints) {
			t.Errorf("commit with %d points: got %v, want ErrInsufficientPoints", n, err)
		}
		// Failed commit must not disturb the in-progress list
		if len(b.Points()) != n {
			t.Errorf("commit with %d points changed builder state to %d points", n, len(b.Points()))
		}
	}

	b := NewBuilder()
	b.AddPoint(pt(0, 0))
	b.AddPoint(pt(10, 0))
	b.AddPoint(pt(5, 10))
	region, err := b.Commit(1.0)
	if err != nil {
		t.Fatalf("commit with 3 points failed: %v", err)
	}
	if len(region.Points) != 3 {
		t.Fatalf("expected 3 committed points, got %d", len(region.Points))
	}
	if len(b.Points()) != 0 {
		t.Error("commit should clear the in-progress vertex list")
	}
}

func TestCommitDefaults(t *testing.T) {
	b := NewBuilder()
	b.AddPoint(pt(0, 0))
	b.AddPoint(pt(10, 0))
	b.AddPoint(pt(5, 10))

	region, err := b.Commit(1.0)
	if err != nil {
		t.Fatal(err)
	}
	if region.IsCropped {
		t.Error("default IsCropped should be false")
	}
	if region.Alignment != AlignCenter {
		t.Errorf("default alignment = %q, want %q", region.Alignment, AlignCenter)
	}
	if err := region.Validate(); err != nil {
		t.Errorf("committed region should validate: %v", err)
	}
}

func TestCommitConvertsToSourceSpace(t *testing.T) {
	// A 2000x1000 image under a 1200px bound scales by 0.6; clicking a
	// square at display (100,100)..(300,300) must land at source
	// (166.67,166.67)..(500,500).
	scale := geometry.FitScale(2000, 1000, 1200, 1200)
	if !scalar.EqualWithinAbs(scale, 0.6, 1e-9) {
		t.Fatalf("scale = %v, want 0.6", scale)
	}

	b := NewBuilder()
	for _, p := range []geometry.Point2D{pt(100, 100), pt(300, 100), pt(300, 300), pt(100, 300)} {
		b.AddPoint(p)
	}
	region, err := b.Commit(scale)
	if err != nil {
		t.Fatal(err)
	}

	want := []geometry.Point2D{
		pt(166.67, 166.67), pt(500, 166.67), pt(500, 500), pt(166.67, 500),
	}
	for i, w := range want {
		got := region.Points[i]
		if !scalar.EqualWithinAbs(got.X, w.X, 0.01) || !scalar.EqualWithinAbs(got.Y, w.Y, 0.01) {
			t.Errorf("point %d: got (%.2f,%.2f), want (%.2f,%.2f)", i, got.X, got.Y, w.X, w.Y)
		}
	}
}

func TestRectangleSynthesis(t *testing.T) {
	b := NewBuilder()
	b.SetMode(ModeRectangle)

	b.BeginRectangle(pt(10, 10))
	if got := b.Points(); len(got) != 0 {
		t.Fatalf("first click must not produce vertices, got %d", len(got))
	}
	if b.PendingAnchor() == nil {
		t.Fatal("anchor should be pending after first click")
	}

	if err := b.CompleteRectangle(pt(50, 40)); err != nil {
		t.Fatal(err)
	}
	want := []geometry.Point2D{pt(10, 10), pt(50, 10), pt(50, 40), pt(10, 40)}
	got := b.Points()
	if len(got) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if b.PendingAnchor() != nil {
		t.Error("anchor should be cleared after completion")
	}
}

func TestCompleteRectangleWithoutAnchor(t *testing.T) {
	b := NewBuilder()
	b.SetMode(ModeRectangle)
	if err := b.CompleteRectangle(pt(5, 5)); !errors.Is(err, ErrNoAnchor) {
		t.Errorf("got %v, want ErrNoAnchor", err)
	}
}

func TestClickDrivesBothModes(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 3; i++ {
		if err := b.Click(pt(float64(i), float64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if len(b.Points()) != 3 {
		t.Fatalf("point mode: expected 3 vertices, got %d", len(b.Points()))
	}

	b = NewBuilder()
	b.SetMode(ModeRectangle)
	if err := b.Click(pt(0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := b.Click(pt(20, 30)); err != nil {
		t.Fatal(err)
	}
	if len(b.Points()) != 4 {
		t.Fatalf("rectangle mode: expected 4 vertices after two clicks, got %d", len(b.Points()))
	}
}

func TestResetIsIdempotent(t *testing.T) {
	b := NewBuilder()
	b.AddPoint(pt(1, 1))
	b.SetMode(ModeRectangle)
	b.BeginRectangle(pt(2, 2))

	b.Reset()
	if len(b.Points()) != 0 || b.PendingAnchor() != nil {
		t.Fatal("reset did not clear builder state")
	}
	b.Reset() // second reset is a no-op
	if len(b.Points()) != 0 {
		t.Fatal("double reset misbehaved")
	}
}

func TestRemoveLastPoint(t *testing.T) {
	b := NewBuilder()
	b.AddPoint(pt(1, 1))
	b.AddPoint(pt(2, 2))
	b.RemoveLastPoint()
	if got := b.Points(); len(got) != 1 || got[0] != pt(1, 1) {
		t.Fatalf("unexpected points after removal: %v", got)
	}

	// A pending anchor is cleared before vertices are touched
	b.SetMode(ModeRectangle)
	b.BeginRectangle(pt(9, 9))
	b.RemoveLastPoint()
	if b.PendingAnchor() != nil {
		t.Error("pending anchor should be cleared")
	}
	if len(b.Points()) != 1 {
		t.Error("vertex list should be untouched when an anchor was pending")
	}
}

func TestRegionContains(t *testing.T) {
	region := Region{Points: []geometry.Point2D{
		pt(10, 10), pt(50, 10), pt(50, 50), pt(10, 50),
	}}

	if !region.Contains(pt(30, 30)) {
		t.Error("interior point reported outside")
	}
	if region.Contains(pt(5, 30)) {
		t.Error("point left of the region reported inside")
	}
	// Inside the bounding box but outside the polygon
	triangle := Region{Points: []geometry.Point2D{
		pt(0, 0), pt(100, 0), pt(0, 100),
	}}
	if triangle.Contains(pt(90, 90)) {
		t.Error("point past the hypotenuse reported inside")
	}
}
