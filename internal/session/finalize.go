package session

import (
	"context"
	"fmt"

	"maskstudio/internal/api"
	"maskstudio/internal/mask"
)

// Backend is the slice of the API client the finalize step needs.
type Backend interface {
	UploadImages(ctx context.Context, groupID string, files []api.FileUpload) ([]string, error)
	SubmitMaskData(ctx context.Context, imageID string, data api.MaskData) error
}

// Finalize packages the full nested image/region mapping and hands it to
// the backend: one multipart upload for all images, then one mask-data call
// per returned image identifier, in upload order.
//
// Only legal from PhaseReadyToFinalize with no finalize already in flight.
// Any failure (upload, identifier count mismatch, mask-data rejection)
// leaves the session in PhaseReadyToFinalize so the user can retry; there
// is no partial-application bookkeeping on this side. If the session was
// reset while the request was in flight, the result is discarded.
func (s *Session) Finalize(ctx context.Context, backend Backend) error {
	s.mu.Lock()
	if s.phase != PhaseReadyToFinalize {
		s.mu.Unlock()
		return fmt.Errorf("%w: finalize during %s", ErrInvalidState, s.phase)
	}
	if s.submitting {
		s.mu.Unlock()
		return fmt.Errorf("%w: finalize already in flight", ErrInvalidState)
	}
	s.submitting = true
	gen := s.generation
	groupID := s.groupID

	files := make([]api.FileUpload, len(s.slots))
	payloads := make([]api.MaskData, len(s.slots))
	for i, slot := range s.slots {
		files[i] = api.FileUpload{Name: slot.Source.Name, Data: slot.Source.Raw}
		payloads[i] = maskDataFor(slot.Regions)
	}
	s.mu.Unlock()
	s.emit(EventSubmittingChanged, true)

	err := submit(ctx, backend, groupID, files, payloads)

	s.mu.Lock()
	if gen != s.generation {
		// Session was reset mid-flight; the outcome no longer applies.
		s.mu.Unlock()
		return nil
	}
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		s.emit(EventSubmittingChanged, false)
		return err
	}
	s.phase = PhaseSubmitted
	s.mu.Unlock()

	s.emit(EventSubmittingChanged, false)
	s.emit(EventPhaseChanged, PhaseSubmitted)
	return nil
}

// submit performs the network half of Finalize without touching session state.
func submit(ctx context.Context, backend Backend, groupID string, files []api.FileUpload, payloads []api.MaskData) error {
	ids, err := backend.UploadImages(ctx, groupID, files)
	if err != nil {
		return fmt.Errorf("image upload failed: %w", err)
	}
	if len(ids) != len(files) {
		// The client enforces this too; guard again before issuing any
		// mask-data call keyed by a wrong identifier.
		return &api.MismatchError{Submitted: len(files), Returned: len(ids)}
	}

	for i, id := range ids {
		if err := backend.SubmitMaskData(ctx, id, payloads[i]); err != nil {
			return fmt.Errorf("mask data for image %d (%s) failed: %w", i, id, err)
		}
	}
	return nil
}

// maskDataFor translates committed regions into the wire payload. The
// scalar is_cropped/alignment fields duplicate the first region's values
// for consumers that predate multi-region masks.
func maskDataFor(regions []mask.Region) api.MaskData {
	data := api.MaskData{
		Masks:         make([][][2]float64, len(regions)),
		IsCroppedList: make([]bool, len(regions)),
		AlignmentList: make([]string, len(regions)),
	}
	for i, r := range regions {
		data.Masks[i] = r.PointPairs()
		data.IsCroppedList[i] = r.IsCropped
		data.AlignmentList[i] = string(r.Alignment)
	}
	if len(regions) > 0 {
		data.IsCropped = regions[0].IsCropped
		data.Alignment = string(regions[0].Alignment)
	}
	return data
}
