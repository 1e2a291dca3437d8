// Package session implements the multi-image, multi-region mask definition
// workflow as an explicit state machine.
package session

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"maskstudio/internal/imageset"
	"maskstudio/internal/mask"
	"maskstudio/pkg/geometry"
)

// ErrInvalidState is returned when an operation is invoked outside the
// session phase it is legal in. Reaching it through the UI is a programming
// fault, not a user error.
var ErrInvalidState = errors.New("operation not legal in current session state")

// Phase identifies where the workflow currently is.
type Phase int

const (
	PhaseSelectingImages Phase = iota
	PhaseDefiningRegions
	PhaseReadyToFinalize
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseSelectingImages:
		return "selecting images"
	case PhaseDefiningRegions:
		return "defining regions"
	case PhaseReadyToFinalize:
		return "ready to finalize"
	case PhaseSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// EventType identifies session events.
type EventType int

const (
	EventImagesChanged EventType = iota
	EventDrawingChanged
	EventRegionCommitted
	EventPhaseChanged
	EventSubmittingChanged
	EventReset
)

// EventListener is called when an event occurs. Listeners run synchronously
// on the goroutine that performed the transition.
type EventListener func(data interface{})

// Slot is one image in the working set together with its target region
// count and the regions committed so far. The session exclusively owns its
// slots; regions never outlive their slot.
type Slot struct {
	Source       *imageset.Slot
	TargetCount  int
	Regions      []mask.Region
	DisplayScale float64
}

// Session owns the full workflow state from image selection through final
// submission. All mutations happen synchronously inside its methods; the
// renderer and UI subscribe to events rather than polling.
type Session struct {
	mu sync.Mutex

	phase     Phase
	slots     []*Slot
	imageIdx  int
	regionIdx int
	builder   *mask.Builder

	maxDisplayW float64
	maxDisplayH float64

	groupID    string
	submitting bool
	generation int

	listeners map[EventType][]EventListener
}

// New creates a session in PhaseSelectingImages. The display bounds cap the
// scale at which images are presented for drawing.
func New(maxDisplayW, maxDisplayH float64) *Session {
	return &Session{
		phase:       PhaseSelectingImages,
		builder:     mask.NewBuilder(),
		maxDisplayW: maxDisplayW,
		maxDisplayH: maxDisplayH,
		groupID:     fmt.Sprintf("mask-session-%d", time.Now().UnixNano()),
		listeners:   make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// emit triggers all listeners for the event type. Must be called without
// holding the mutex.
func (s *Session) emit(event EventType, data interface{}) {
	s.mu.Lock()
	listeners := s.listeners[event]
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Phase returns the current workflow phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cursor returns the current image and region indices. Only meaningful in
// PhaseDefiningRegions.
func (s *Session) Cursor() (imageIdx, regionIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageIdx, s.regionIdx
}

// Submitting reports whether a finalize request is in flight. Drawing and
// commit operations are rejected during that window.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// GroupID returns the upload group identifier for this session. A new
// identifier is generated on every full reset.
func (s *Session) GroupID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupID
}

// ImageCount returns the number of images in the working set.
func (s *Session) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Slot returns the slot at the given index, or nil when out of range.
func (s *Session) Slot(i int) *Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i]
}

// AddImage appends an image to the working set with a target region count
// of 1. Only legal while selecting images.
func (s *Session) AddImage(src *imageset.Slot) error {
	s.mu.Lock()
	if s.phase != PhaseSelectingImages {
		s.mu.Unlock()
		return fmt.Errorf("%w: add image during %s", ErrInvalidState, s.phase)
	}
	scale := geometry.FitScale(
		float64(src.Width()), float64(src.Height()),
		s.maxDisplayW, s.maxDisplayH,
	)
	s.slots = append(s.slots, &Slot{
		Source:       src,
		TargetCount:  1,
		DisplayScale: scale,
	})
	s.mu.Unlock()

	s.emit(EventImagesChanged, src)
	return nil
}

// RemoveImage removes the image at the given index from the working set.
func (s *Session) RemoveImage(i int) error {
	s.mu.Lock()
	if s.phase != PhaseSelectingImages {
		s.mu.Unlock()
		return fmt.Errorf("%w: remove image during %s", ErrInvalidState, s.phase)
	}
	if i < 0 || i >= len(s.slots) {
		s.mu.Unlock()
		return fmt.Errorf("image index %d out of range", i)
	}
	s.slots = append(s.slots[:i], s.slots[i+1:]...)
	s.mu.Unlock()

	s.emit(EventImagesChanged, nil)
	return nil
}

// SetTargetCount sets how many regions must be defined for the image at
// index i. The count must be at least 1.
func (s *Session) SetTargetCount(i, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelectingImages {
		return fmt.Errorf("%w: set target count during %s", ErrInvalidState, s.phase)
	}
	if i < 0 || i >= len(s.slots) {
		return fmt.Errorf("image index %d out of range", i)
	}
	if count < 1 {
		return fmt.Errorf("target region count must be at least 1, got %d", count)
	}
	s.slots[i].TargetCount = count
	return nil
}

// StartDefining moves from image selection to region definition on the
// first image. At least one image must be present.
func (s *Session) StartDefining() error {
	s.mu.Lock()
	if s.phase != PhaseSelectingImages {
		s.mu.Unlock()
		return fmt.Errorf("%w: start defining during %s", ErrInvalidState, s.phase)
	}
	if len(s.slots) == 0 {
		s.mu.Unlock()
		return errors.New("no images selected")
	}
	s.phase = PhaseDefiningRegions
	s.imageIdx = 0
	s.regionIdx = 0
	s.builder.Reset()
	s.mu.Unlock()

	s.emit(EventPhaseChanged, PhaseDefiningRegions)
	return nil
}

// drawable returns nil when drawing input is currently legal.
func (s *Session) drawable() error {
	if s.phase != PhaseDefiningRegions {
		return fmt.Errorf("%w: drawing during %s", ErrInvalidState, s.phase)
	}
	if s.submitting {
		return fmt.Errorf("%w: drawing while submitting", ErrInvalidState)
	}
	return nil
}

// SetMode switches the drawing mode for the in-progress region.
func (s *Session) SetMode(mode mask.Mode) error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.builder.SetMode(mode)
	s.mu.Unlock()

	s.emit(EventDrawingChanged, nil)
	return nil
}

// Mode returns the current drawing mode.
func (s *Session) Mode() mask.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Mode()
}

// Click feeds a display-space click into the region builder.
func (s *Session) Click(p geometry.Point2D) error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}
	err := s.builder.Click(p)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.emit(EventDrawingChanged, nil)
	return nil
}

// UndoPoint removes the most recent in-progress vertex or pending anchor.
func (s *Session) UndoPoint() error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.builder.RemoveLastPoint()
	s.mu.Unlock()

	s.emit(EventDrawingChanged, nil)
	return nil
}

// ResetRegion discards the in-progress region without committing.
func (s *Session) ResetRegion() error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.builder.Reset()
	s.mu.Unlock()

	s.emit(EventDrawingChanged, nil)
	return nil
}

// SeedPoints replaces the in-progress vertices with a proposed polygon,
// e.g. from the mask suggestion feature. Points are in display space.
func (s *Session) SeedPoints(points []geometry.Point2D) error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.builder.SetPoints(points)
	s.mu.Unlock()

	s.emit(EventDrawingChanged, nil)
	return nil
}

// CommitRegion finishes the in-progress region: vertices are converted to
// source space, stored under the current image/region cursor, and the
// cursor advances region-by-region, then image-by-image. After the last
// region of the last image the session is ready to finalize.
//
// A commit with too few points fails with mask.ErrInsufficientPoints and
// changes nothing; invoking outside PhaseDefiningRegions fails with
// ErrInvalidState.
func (s *Session) CommitRegion() error {
	s.mu.Lock()
	if err := s.drawable(); err != nil {
		s.mu.Unlock()
		return err
	}

	slot := s.slots[s.imageIdx]
	region, err := s.builder.Commit(slot.DisplayScale)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	slot.Regions = append(slot.Regions, region)

	var phaseChange Phase = -1
	switch {
	case s.regionIdx+1 < slot.TargetCount:
		s.regionIdx++
	case s.imageIdx+1 < len(s.slots):
		s.imageIdx++
		s.regionIdx = 0
	default:
		s.phase = PhaseReadyToFinalize
		phaseChange = PhaseReadyToFinalize
	}
	s.mu.Unlock()

	s.emit(EventRegionCommitted, region)
	if phaseChange >= 0 {
		s.emit(EventPhaseChanged, phaseChange)
	}
	return nil
}

// SetRegionMeta overrides the crop flag and alignment of a committed
// region before final submission.
func (s *Session) SetRegionMeta(imageIdx, regionIdx int, cropped bool, alignment mask.Alignment) error {
	s.mu.Lock()
	if s.phase != PhaseDefiningRegions && s.phase != PhaseReadyToFinalize {
		s.mu.Unlock()
		return fmt.Errorf("%w: set region metadata during %s", ErrInvalidState, s.phase)
	}
	if imageIdx < 0 || imageIdx >= len(s.slots) {
		s.mu.Unlock()
		return fmt.Errorf("image index %d out of range", imageIdx)
	}
	slot := s.slots[imageIdx]
	if regionIdx < 0 || regionIdx >= len(slot.Regions) {
		s.mu.Unlock()
		return fmt.Errorf("region index %d out of range for image %d", regionIdx, imageIdx)
	}
	if !alignment.Valid() {
		s.mu.Unlock()
		return fmt.Errorf("invalid alignment %q", alignment)
	}
	slot.Regions[regionIdx].IsCropped = cropped
	slot.Regions[regionIdx].Alignment = alignment
	s.mu.Unlock()

	s.emit(EventDrawingChanged, nil)
	return nil
}

// ResetAll returns the session to image selection with an empty working
// set. Legal from any phase; resetting an already empty session is a
// silent no-op. Any in-flight finalize result is discarded when it lands.
func (s *Session) ResetAll() {
	s.mu.Lock()
	if s.phase == PhaseSelectingImages && len(s.slots) == 0 {
		s.mu.Unlock()
		return
	}
	wasSubmitting := s.submitting
	s.slots = nil
	s.imageIdx = 0
	s.regionIdx = 0
	s.phase = PhaseSelectingImages
	s.builder.Reset()
	s.submitting = false
	s.generation++
	s.groupID = fmt.Sprintf("mask-session-%d", time.Now().UnixNano())
	s.mu.Unlock()

	if wasSubmitting {
		// The in-flight finalize will discard its result without emitting,
		// so release listeners waiting on the submitting flag here.
		s.emit(EventSubmittingChanged, false)
	}
	s.emit(EventReset, nil)
}

// Snapshot is an immutable view of the state the renderer needs. Pointer
// position is supplied by the canvas, not stored here.
type Snapshot struct {
	Phase      Phase
	ImageIdx   int
	RegionIdx  int
	Image      image.Image
	Scale      float64
	Committed  []mask.Region
	InProgress []geometry.Point2D
	Anchor     *geometry.Point2D
	Mode       mask.Mode
	Submitting bool
}

// Snapshot captures the current image, committed regions, and in-progress
// drawing state for rendering. ok is false when no image is current.
func (s *Session) Snapshot() (snap Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.imageIdx
	if s.phase == PhaseReadyToFinalize || s.phase == PhaseSubmitted {
		idx = len(s.slots) - 1
	}
	if idx < 0 || idx >= len(s.slots) {
		return Snapshot{}, false
	}
	slot := s.slots[idx]

	committed := make([]mask.Region, len(slot.Regions))
	copy(committed, slot.Regions)

	return Snapshot{
		Phase:      s.phase,
		ImageIdx:   idx,
		RegionIdx:  s.regionIdx,
		Image:      slot.Source.Image,
		Scale:      slot.DisplayScale,
		Committed:  committed,
		InProgress: s.builder.Points(),
		Anchor:     s.builder.PendingAnchor(),
		Mode:       s.builder.Mode(),
		Submitting: s.submitting,
	}, true
}
