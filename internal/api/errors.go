package api

import "fmt"

// MismatchError reports that the upload endpoint returned a different number
// of image identifiers than files were submitted. The finalize attempt is
// aborted and no mask-data calls are issued; the user must re-submit.
type MismatchError struct {
	Submitted int
	Returned  int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("upload returned %d image ids for %d files", e.Returned, e.Submitted)
}

// StatusError reports a non-2xx HTTP response, carrying a snippet of the
// response body for the user-facing message.
type StatusError struct {
	Status int
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Path, e.Status, e.Body)
}
