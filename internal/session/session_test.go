package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"maskstudio/internal/api"
	"maskstudio/internal/imageset"
	"maskstudio/internal/mask"
	"maskstudio/pkg/geometry"
)

func testSlot(t *testing.T, w, h int) *imageset.Slot {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	slot, err := imageset.FromBytes(fmt.Sprintf("test-%dx%d.png", w, h), buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return slot
}

func commitTriangle(t *testing.T, s *Session) {
	t.Helper()
	for _, p := range []geometry.Point2D{{X: 1, Y: 1}, {X: 20, Y: 1}, {X: 10, Y: 20}} {
		if err := s.Click(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CommitRegion(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionAdvancement(t *testing.T) {
	// Two images with target counts [2, 1]: committing three regions must
	// visit (0,0) -> (0,1) -> (1,0) -> ready to finalize.
	s := New(1200, 900)
	if err := s.AddImage(testSlot(t, 100, 80)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddImage(testSlot(t, 60, 60)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTargetCount(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.StartDefining(); err != nil {
		t.Fatal(err)
	}

	wantCursors := [][2]int{{0, 0}, {0, 1}, {1, 0}}
	for i, want := range wantCursors {
		img, reg := s.Cursor()
		if img != want[0] || reg != want[1] {
			t.Fatalf("before commit %d: cursor = (%d,%d), want (%d,%d)", i, img, reg, want[0], want[1])
		}
		if s.Phase() != PhaseDefiningRegions {
			t.Fatalf("before commit %d: phase = %v", i, s.Phase())
		}
		commitTriangle(t, s)
	}

	if s.Phase() != PhaseReadyToFinalize {
		t.Fatalf("after 3 commits: phase = %v, want ready to finalize", s.Phase())
	}
	if got := len(s.Slot(0).Regions); got != 2 {
		t.Errorf("image 0 has %d regions, want 2", got)
	}
	if got := len(s.Slot(1).Regions); got != 1 {
		t.Errorf("image 1 has %d regions, want 1", got)
	}
}

func TestCommitOutsideDefiningIsInvalidState(t *testing.T) {
	s := New(1200, 900)
	if err := s.CommitRegion(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("commit while selecting images: got %v, want ErrInvalidState", err)
	}
	if err := s.Click(geometry.Point2D{X: 1, Y: 1}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("click while selecting images: got %v, want ErrInvalidState", err)
	}
}

func TestCommitWithTooFewPointsKeepsState(t *testing.T) {
	s := New(1200, 900)
	if err := s.AddImage(testSlot(t, 50, 50)); err != nil {
		t.Fatal(err)
	}
	if err := s.StartDefining(); err != nil {
		t.Fatal(err)
	}
	if err := s.Click(geometry.Point2D{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Click(geometry.Point2D{X: 2, Y: 2}); err != nil {
		t.Fatal(err)
	}

	if err := s.CommitRegion(); !errors.Is(err, mask.ErrInsufficientPoints) {
		t.Fatalf("got %v, want ErrInsufficientPoints", err)
	}

	// Session state unchanged: still on the same region, points intact
	img, reg := s.Cursor()
	if img != 0 || reg != 0 {
		t.Errorf("cursor moved to (%d,%d) after failed commit", img, reg)
	}
	snap, ok := s.Snapshot()
	if !ok || len(snap.InProgress) != 2 {
		t.Errorf("in-progress points = %d, want 2", len(snap.InProgress))
	}

	// Adding a third point makes the commit succeed
	if err := s.Click(geometry.Point2D{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.CommitRegion(); err != nil {
		t.Fatal(err)
	}
}

func TestAddImageComputesDisplayScale(t *testing.T) {
	s := New(1200, 1200)
	if err := s.AddImage(testSlot(t, 2000, 1000)); err != nil {
		t.Fatal(err)
	}
	if scale := s.Slot(0).DisplayScale; scale != 0.6 {
		t.Errorf("display scale = %v, want 0.6", scale)
	}

	if err := s.AddImage(testSlot(t, 100, 100)); err != nil {
		t.Fatal(err)
	}
	if scale := s.Slot(1).DisplayScale; scale != 1.0 {
		t.Errorf("small image scale = %v, want 1.0", scale)
	}
}

func TestSetTargetCountValidation(t *testing.T) {
	s := New(1200, 900)
	if err := s.AddImage(testSlot(t, 50, 50)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTargetCount(0, 0); err == nil {
		t.Error("target count 0 should be rejected")
	}
	if err := s.SetTargetCount(5, 1); err == nil {
		t.Error("out-of-range index should be rejected")
	}
}

func TestResetAll(t *testing.T) {
	s := New(1200, 900)
	if err := s.AddImage(testSlot(t, 50, 50)); err != nil {
		t.Fatal(err)
	}
	if err := s.StartDefining(); err != nil {
		t.Fatal(err)
	}
	commitTriangle(t, s)

	var resets int
	s.On(EventReset, func(interface{}) { resets++ })

	s.ResetAll()
	if s.Phase() != PhaseSelectingImages || s.ImageCount() != 0 {
		t.Fatalf("reset left phase=%v images=%d", s.Phase(), s.ImageCount())
	}
	if resets != 1 {
		t.Fatalf("reset events = %d, want 1", resets)
	}

	// A redundant reset is swallowed silently
	s.ResetAll()
	if resets != 1 {
		t.Errorf("duplicate reset emitted an event")
	}
}

// fakeBackend implements Backend for finalize tests.
type fakeBackend struct {
	ids        []string
	uploadErr  error
	maskErrFor map[string]error
	maskCalls  []string
	onUpload   func()
}

func (f *fakeBackend) UploadImages(ctx context.Context, groupID string, files []api.FileUpload) ([]string, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.ids, nil
}

func (f *fakeBackend) SubmitMaskData(ctx context.Context, imageID string, data api.MaskData) error {
	f.maskCalls = append(f.maskCalls, imageID)
	if err, ok := f.maskErrFor[imageID]; ok {
		return err
	}
	return nil
}

func readySession(t *testing.T, imageCount int) *Session {
	t.Helper()
	s := New(1200, 900)
	for i := 0; i < imageCount; i++ {
		if err := s.AddImage(testSlot(t, 50+i, 50)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.StartDefining(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < imageCount; i++ {
		commitTriangle(t, s)
	}
	if s.Phase() != PhaseReadyToFinalize {
		t.Fatalf("setup: phase = %v", s.Phase())
	}
	return s
}

func TestFinalizeSuccess(t *testing.T) {
	s := readySession(t, 2)
	backend := &fakeBackend{ids: []string{"id-0", "id-1"}}

	if err := s.Finalize(context.Background(), backend); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseSubmitted {
		t.Errorf("phase = %v, want submitted", s.Phase())
	}
	if len(backend.maskCalls) != 2 || backend.maskCalls[0] != "id-0" || backend.maskCalls[1] != "id-1" {
		t.Errorf("mask calls = %v", backend.maskCalls)
	}
	if s.Submitting() {
		t.Error("submitting flag still set after completion")
	}
}

func TestFinalizeMismatchIssuesNoMaskCalls(t *testing.T) {
	// Three images uploaded, two identifiers returned: finalize must fail
	// with MismatchError before any mask-data call.
	s := readySession(t, 3)
	backend := &fakeBackend{ids: []string{"a", "b"}}

	err := s.Finalize(context.Background(), backend)
	var mismatch *api.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want MismatchError", err)
	}
	if len(backend.maskCalls) != 0 {
		t.Fatalf("mask-data calls were issued after a mismatch: %v", backend.maskCalls)
	}
	if s.Phase() != PhaseReadyToFinalize {
		t.Errorf("phase = %v, want ready to finalize (retryable)", s.Phase())
	}
}

func TestFinalizeNetworkFailureIsRetryable(t *testing.T) {
	s := readySession(t, 1)
	backend := &fakeBackend{uploadErr: errors.New("connection refused")}

	if err := s.Finalize(context.Background(), backend); err == nil {
		t.Fatal("expected upload error")
	}
	if s.Phase() != PhaseReadyToFinalize {
		t.Fatalf("phase = %v after failure, want ready to finalize", s.Phase())
	}

	// Retrying the same finalize with a healthy backend succeeds
	backend.uploadErr = nil
	backend.ids = []string{"retry-id"}
	if err := s.Finalize(context.Background(), backend); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseSubmitted {
		t.Errorf("phase = %v after retry, want submitted", s.Phase())
	}
}

func TestFinalizePartialMaskFailureIsRetryable(t *testing.T) {
	s := readySession(t, 2)
	backend := &fakeBackend{
		ids:        []string{"ok", "broken"},
		maskErrFor: map[string]error{"broken": errors.New("backend rejected geometry")},
	}

	if err := s.Finalize(context.Background(), backend); err == nil {
		t.Fatal("expected mask-data failure")
	}
	if s.Phase() != PhaseReadyToFinalize {
		t.Errorf("phase = %v, want ready to finalize", s.Phase())
	}
}

func TestFinalizeOutsideReadyState(t *testing.T) {
	s := New(1200, 900)
	err := s.Finalize(context.Background(), &fakeBackend{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestStaleFinalizeResultIsDiscarded(t *testing.T) {
	// The session is reset while the finalize request is in flight; the
	// late result must be ignored rather than flip the fresh session to
	// submitted.
	s := readySession(t, 1)
	backend := &fakeBackend{ids: []string{"late"}}
	backend.onUpload = func() { s.ResetAll() }

	if err := s.Finalize(context.Background(), backend); err != nil {
		t.Fatalf("stale finalize should be swallowed, got %v", err)
	}
	if s.Phase() != PhaseSelectingImages {
		t.Errorf("phase = %v, want selecting images", s.Phase())
	}
	if s.Submitting() {
		t.Error("submitting flag leaked across a reset")
	}
}

func TestResetDuringFinalizeReleasesSubmitting(t *testing.T) {
	// The stale-result branch in Finalize never emits, so the reset itself
	// must clear the submitting indicator for anyone listening.
	s := readySession(t, 1)

	var events []string
	s.On(EventSubmittingChanged, func(data interface{}) {
		events = append(events, fmt.Sprintf("submitting=%v", data))
	})
	s.On(EventReset, func(interface{}) {
		events = append(events, "reset")
	})

	backend := &fakeBackend{ids: []string{"late"}}
	backend.onUpload = func() { s.ResetAll() }

	if err := s.Finalize(context.Background(), backend); err != nil {
		t.Fatal(err)
	}

	want := []string{"submitting=true", "submitting=false", "reset"}
	if len(events) != len(want) {
		t.Fatalf("event order = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event order = %v, want %v", events, want)
		}
	}
}

func TestMaskDataPayloadShape(t *testing.T) {
	regions := []mask.Region{
		{
			Points:    []geometry.Point2D{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 40}, {X: 10, Y: 40}},
			IsCropped: true,
			Alignment: mask.AlignLeft,
		},
		{
			Points:    []geometry.Point2D{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}},
			IsCropped: false,
			Alignment: mask.AlignCenter,
		},
	}

	data := maskDataFor(regions)
	if len(data.Masks) != 2 || len(data.IsCroppedList) != 2 || len(data.AlignmentList) != 2 {
		t.Fatalf("parallel lists have wrong lengths: %+v", data)
	}
	if data.Masks[0][1] != [2]float64{50, 10} {
		t.Errorf("mask 0 vertex 1 = %v", data.Masks[0][1])
	}
	// Scalars mirror the first region
	if !data.IsCropped || data.Alignment != "left" {
		t.Errorf("scalar fields = %v %q, want true left", data.IsCropped, data.Alignment)
	}
	if data.AlignmentList[1] != "center" {
		t.Errorf("alignment list = %v", data.AlignmentList)
	}
}

func TestSetRegionMeta(t *testing.T) {
	s := readySession(t, 1)
	if err := s.SetRegionMeta(0, 0, true, mask.AlignRight); err != nil {
		t.Fatal(err)
	}
	r := s.Slot(0).Regions[0]
	if !r.IsCropped || r.Alignment != mask.AlignRight {
		t.Errorf("region meta = %+v", r)
	}

	if err := s.SetRegionMeta(0, 0, true, mask.Alignment("diagonal")); err == nil {
		t.Error("invalid alignment should be rejected")
	}
	if err := s.SetRegionMeta(0, 7, true, mask.AlignLeft); err == nil {
		t.Error("out-of-range region index should be rejected")
	}
}

func TestSnapshotReflectsDrawingState(t *testing.T) {
	s := New(1200, 900)
	if _, ok := s.Snapshot(); ok {
		t.Error("snapshot with no images should report ok=false")
	}

	if err := s.AddImage(testSlot(t, 40, 40)); err != nil {
		t.Fatal(err)
	}
	if err := s.StartDefining(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMode(mask.ModeRectangle); err != nil {
		t.Fatal(err)
	}
	if err := s.Click(geometry.Point2D{X: 3, Y: 4}); err != nil {
		t.Fatal(err)
	}

	snap, ok := s.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if snap.Anchor == nil || snap.Anchor.X != 3 || snap.Anchor.Y != 4 {
		t.Errorf("anchor = %v", snap.Anchor)
	}
	if snap.Mode != mask.ModeRectangle {
		t.Errorf("mode = %v", snap.Mode)
	}
	if len(snap.InProgress) != 0 {
		t.Errorf("first rectangle click should not produce vertices, got %d", len(snap.InProgress))
	}
}
