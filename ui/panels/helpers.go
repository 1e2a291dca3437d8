package panels

import (
	"maskstudio/internal/mask"
	"maskstudio/internal/session"
	"maskstudio/internal/suggest"
	"maskstudio/pkg/geometry"
)

// maskModeFor maps the radio group label to a drawing mode.
func maskModeFor(label string) mask.Mode {
	if label == "Rectangle" {
		return mask.ModeRectangle
	}
	return mask.ModePoint
}

// maskAlignmentFor maps the select label to a region alignment.
func maskAlignmentFor(label string) mask.Alignment {
	switch label {
	case "left":
		return mask.AlignLeft
	case "right":
		return mask.AlignRight
	default:
		return mask.AlignCenter
	}
}

// suggestPoints runs shape detection on the slot's source image and returns
// the outline in display space, ready to seed the builder.
func suggestPoints(slot *session.Slot) ([]geometry.Point2D, error) {
	points, err := suggest.Suggest(slot.Source.Image, suggest.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return geometry.ToDisplayAll(points, slot.DisplayScale), nil
}
