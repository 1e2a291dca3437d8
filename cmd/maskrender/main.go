// Command maskrender composites a mask overlay onto an image and writes the
// result as a PNG. Masks are given as a JSON file in the same nested
// point-pair format the backend accepts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"os"

	"maskstudio/internal/imageset"
	"maskstudio/internal/mask"
	"maskstudio/internal/render"
	"maskstudio/internal/suggest"
	"maskstudio/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to source image (PNG, JPEG, or TIFF)")
	masksPath := flag.String("masks", "", "Path to JSON file of masks ([[[x,y],...],...])")
	outPath := flag.String("out", "overlay.png", "Output PNG path")
	maxW := flag.Float64("max-width", 1200, "Maximum display width")
	maxH := flag.Float64("max-height", 900, "Maximum display height")
	autoSuggest := flag.Bool("suggest", false, "Detect an outline instead of reading -masks")
	flag.Parse()

	if *imagePath == "" || (*masksPath == "" && !*autoSuggest) {
		fmt.Println("Usage: maskrender -image <path> (-masks <path> | -suggest) [-out overlay.png]")
		os.Exit(1)
	}

	slot, err := imageset.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %s image: %dx%d pixels\n", slot.Format, slot.Width(), slot.Height())

	var regions []mask.Region
	if *autoSuggest {
		points, err := suggest.Suggest(slot.Image, suggest.DefaultOptions())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Outline detection failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Detected outline with %d points\n", len(points))
		regions = []mask.Region{{Points: points, Alignment: mask.AlignCenter}}
	} else {
		regions, err = loadMasks(*masksPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load masks: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d masks\n", len(regions))
	}

	printReport(regions, slot.Width(), slot.Height())

	scale := geometry.FitScale(float64(slot.Width()), float64(slot.Height()), *maxW, *maxH)
	fmt.Printf("Display scale: %.4f\n", scale)

	out := render.Project(render.View{
		Base:      slot.Image,
		Scale:     scale,
		Committed: regions,
	})

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := png.Encode(f, out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", *outPath, out.Bounds().Dx(), out.Bounds().Dy())
}

// printReport summarizes each mask and warns when vertices fall outside the
// image, which usually means the mask file was drawn against a different
// source resolution.
func printReport(regions []mask.Region, w, h int) {
	imageRect := geometry.NewRect(0, 0, float64(w), float64(h))
	for i, region := range regions {
		outside := 0
		for _, p := range region.Points {
			if !imageRect.Contains(p) {
				outside++
			}
		}
		c := geometry.Centroid(region.Points)
		fmt.Printf("Mask %d: %d points, area %.0f px, centroid (%.1f, %.1f)\n",
			i+1, len(region.Points), geometry.PolygonArea(region.Points), c.X, c.Y)
		if outside > 0 {
			fmt.Printf("  warning: %d points outside the %dx%d image\n", outside, w, h)
		}
	}
}

// loadMasks reads masks as nested point pairs in source-space coordinates.
func loadMasks(path string) ([]mask.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw [][][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	regions := make([]mask.Region, 0, len(raw))
	for i, pairs := range raw {
		points := make([]geometry.Point2D, len(pairs))
		for j, p := range pairs {
			points[j] = geometry.Point2D{X: p[0], Y: p[1]}
		}
		region := mask.Region{Points: points, Alignment: mask.AlignCenter}
		if err := region.Validate(); err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		regions = append(regions, region)
	}
	return regions, nil
}
