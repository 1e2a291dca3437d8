package imageset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	data := encodePNG(t, 20, 10)
	slot, err := FromBytes("test.png", data)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Width() != 20 || slot.Height() != 10 {
		t.Errorf("dimensions = %dx%d, want 20x10", slot.Width(), slot.Height())
	}
	if slot.Format != "png" {
		t.Errorf("format = %q, want png", slot.Format)
	}
	if !bytes.Equal(slot.Raw, data) {
		t.Error("raw bytes should be retained verbatim")
	}
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	if _, err := FromBytes("junk.png", []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	if err := os.WriteFile(path, encodePNG(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}

	slot, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Path != path {
		t.Errorf("path = %q, want %q", slot.Path, path)
	}
	if slot.Name != "product.png" {
		t.Errorf("name = %q, want product.png", slot.Name)
	}
}

func TestIsSupportedFormat(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"a.JPG", true},
		{"a.tiff", true},
		{"a.gif", false},
		{"a.webp", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupportedFormat(tt.path); got != tt.want {
			t.Errorf("IsSupportedFormat(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
