package mask

import "errors"

// ErrInsufficientPoints is returned by Builder.Commit when the in-progress
// region has fewer than MinPoints vertices. The builder state is left
// untouched so the user can add more points and retry.
var ErrInsufficientPoints = errors.New("region requires at least 3 points")

// ErrNoAnchor is returned by CompleteRectangle when no rectangle anchor has
// been recorded by a preceding BeginRectangle call.
var ErrNoAnchor = errors.New("rectangle has no anchor point")
