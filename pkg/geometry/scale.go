package geometry

// FitScale returns the uniform scale factor that fits a source image of the
// given dimensions inside the maximum display bounds without upscaling.
// The result is min(maxW/srcW, maxH/srcH, 1.0).
//
// A zero or negative source dimension is a caller-side precondition
// violation: image loading must reject such images before a scale is ever
// computed.
func FitScale(srcW, srcH, maxW, maxH float64) float64 {
	scale := maxW / srcW
	if s := maxH / srcH; s < scale {
		scale = s
	}
	if scale > 1.0 {
		scale = 1.0
	}
	return scale
}

// ToDisplay converts a source-space point to display space.
func ToDisplay(p Point2D, scale float64) Point2D {
	return Point2D{X: p.X * scale, Y: p.Y * scale}
}

// ToSource converts a display-space point back to source space. It is the
// exact inverse of ToDisplay up to floating-point rounding.
func ToSource(p Point2D, scale float64) Point2D {
	return Point2D{X: p.X / scale, Y: p.Y / scale}
}

// ToSourceAll converts a slice of display-space points to source space.
// The input slice is not modified.
func ToSourceAll(points []Point2D, scale float64) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = ToSource(p, scale)
	}
	return out
}

// ToDisplayAll converts a slice of source-space points to display space.
// The input slice is not modified.
func ToDisplayAll(points []Point2D, scale float64) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = ToDisplay(p, scale)
	}
	return out
}
