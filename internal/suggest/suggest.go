// Package suggest proposes a mask polygon for an image by segmenting the
// dominant foreground shape and simplifying its outline.
package suggest

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"maskstudio/pkg/geometry"
)

// ErrNoShape is returned when segmentation finds no contour large enough
// to be a plausible mask.
var ErrNoShape = errors.New("no dominant shape found in image")

// Options configures shape suggestion.
type Options struct {
	BlurKernel        int     // Gaussian blur kernel size, must be odd
	CleanupIterations int     // Morphological cleanup strength
	MinAreaFraction   float64 // Minimum contour area as a fraction of the image
	EpsilonFraction   float64 // ApproxPolyDP epsilon as a fraction of the perimeter
	MaxVertices       int     // Fall back to Douglas-Peucker if the polygon is denser
}

// DefaultOptions returns suggestion defaults tuned for product photos on a
// plain background.
func DefaultOptions() Options {
	return Options{
		BlurKernel:        5,
		CleanupIterations: 2,
		MinAreaFraction:   0.01,
		EpsilonFraction:   0.01,
		MaxVertices:       24,
	}
}

// Suggest segments img and returns the simplified outline of its largest
// shape, in source-space coordinates. The result always has at least three
// vertices.
func Suggest(img image.Image, opts Options) ([]geometry.Point2D, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	binary := segment(mat, opts)
	defer binary.Close()

	contour, area := largestContour(binary)
	if contour == nil {
		return nil, ErrNoShape
	}

	bounds := img.Bounds()
	minArea := opts.MinAreaFraction * float64(bounds.Dx()*bounds.Dy())
	if area < minArea {
		return nil, ErrNoShape
	}

	points := simplify(contour, opts)
	if len(points) < 3 {
		return nil, ErrNoShape
	}
	return points, nil
}

// segment produces a binary foreground mask: grayscale, blur, Otsu
// threshold, then morphological cleanup to drop speckle.
func segment(mat gocv.Mat, opts Options) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	k := opts.BlurKernel
	if k < 3 {
		k = 3
	}
	if k%2 == 0 {
		k++
	}
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	gocv.Threshold(blurred, &binary, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 3, Y: 3})
	defer kernel.Close()
	for i := 0; i < opts.CleanupIterations; i++ {
		gocv.MorphologyEx(binary, &binary, gocv.MorphClose, kernel)
	}
	for i := 0; i < opts.CleanupIterations; i++ {
		gocv.MorphologyEx(binary, &binary, gocv.MorphOpen, kernel)
	}

	return binary
}

// largestContour returns the external contour with the greatest area, or
// nil when the mask is empty.
func largestContour(binary gocv.Mat) ([]image.Point, float64) {
	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	bestArea := 0.0
	bestIdx := -1
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, 0
	}
	return contours.At(bestIdx).ToPoints(), bestArea
}

// simplify reduces the contour to a polygon with Douglas-Peucker, widening
// the epsilon until the result fits under MaxVertices.
func simplify(contour []image.Point, opts Options) []geometry.Point2D {
	points := make([]geometry.Point2D, len(contour))
	for i, p := range contour {
		points[i] = geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
	}

	epsilon := opts.EpsilonFraction * perimeter(points)
	if epsilon <= 0 {
		epsilon = 1
	}

	simplified := geometry.SimplifyPath(points, epsilon)
	for opts.MaxVertices >= 3 && len(simplified) > opts.MaxVertices {
		epsilon *= 1.5
		simplified = geometry.SimplifyPath(points, epsilon)
	}
	return simplified
}

func perimeter(points []geometry.Point2D) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i-1].Distance(points[i])
	}
	if len(points) > 2 {
		total += points[len(points)-1].Distance(points[0])
	}
	return total
}

// imageToMat converts a Go image.Image to a BGR gocv.Mat.
func imageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 1 || h < 1 {
		return gocv.Mat{}, errors.New("image has zero dimensions")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}
