package preprocess

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func savePNG(t *testing.T, img image.Image, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := imaging.New(w, h, color.White)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalizeDownscalesLargeImage(t *testing.T) {
	dir := t.TempDir()
	src := savePNG(t, solidImage(3000, 1500, color.White), dir, "page.png")

	n := NewNormalizer(filepath.Join(dir, "temp"))
	got, err := n.Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	b := got.Image.Bounds()
	if b.Dx() != MaxDimension {
		t.Errorf("width = %d, want %d", b.Dx(), MaxDimension)
	}
	if b.Dy() != 1000 {
		t.Errorf("height = %d, want 1000 (aspect preserved)", b.Dy())
	}
	if _, err := os.Stat(got.Path); err != nil {
		t.Errorf("normalized file not written: %v", err)
	}
	if filepath.Base(got.Path) != "page.normalized.png" {
		t.Errorf("normalized name = %q", filepath.Base(got.Path))
	}
}

func TestNormalizeKeepsSmallImageDimensions(t *testing.T) {
	dir := t.TempDir()
	src := savePNG(t, solidImage(640, 480, color.White), dir, "small.jpg")

	n := NewNormalizer(filepath.Join(dir, "temp"))
	got, err := n.Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	b := got.Image.Bounds()
	if b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("bounds = %dx%d, want 640x480", b.Dx(), b.Dy())
	}
}

func TestNormalizeGrayscales(t *testing.T) {
	dir := t.TempDir()
	src := savePNG(t, solidImage(100, 100, color.NRGBA{R: 200, G: 40, B: 40, A: 255}), dir, "red.png")

	n := NewNormalizer(filepath.Join(dir, "temp"))
	got, err := n.Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	c := got.Image.NRGBAAt(50, 50)
	if c.R != c.G || c.G != c.B {
		t.Errorf("center pixel not grayscale: %+v", c)
	}
}

func TestNormalizeMissingFile(t *testing.T) {
	n := NewNormalizer(t.TempDir())
	if _, err := n.Normalize(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("Normalize() expected error for missing file")
	}
}
