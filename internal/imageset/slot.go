// Package imageset provides loading and bookkeeping for the images a mask
// session works on.
package imageset

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Slot holds one loaded image. The raw encoded bytes are retained so the
// upload step can send the file exactly as the user selected it.
type Slot struct {
	Path   string      // original file path ("" for downloaded base images)
	Name   string      // file name used in the upload form
	Image  image.Image // decoded pixels
	Raw    []byte      // original encoded bytes
	Format string      // decoded format name ("png", "jpeg", "tiff")
}

// Load reads and decodes an image from the specified path.
func Load(path string) (*Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	slot, err := FromBytes(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	slot.Path = path
	return slot, nil
}

// FromBytes decodes an image from encoded bytes, as received from a file
// pick or a base-mockup download. Zero-dimension images are rejected here
// so that a display scale can always be computed downstream.
func FromBytes(name string, data []byte) (*Slot, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("image %s has zero dimensions", name)
	}

	return &Slot{
		Name:   name,
		Image:  img,
		Raw:    data,
		Format: format,
	}, nil
}

// Width returns the image width in pixels.
func (s *Slot) Width() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (s *Slot) Height() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FileFilter returns a file filter string for use in file dialogs.
func FileFilter() string {
	return "Image Files (*.png, *.jpg, *.jpeg, *.tiff, *.tif)"
}
