package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "notes.png")

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if img.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", img.MIME)
	}
	if len(img.Data) == 0 {
		t.Error("Data is empty")
	}
	if img.Path != path {
		t.Errorf("Path = %q, want %q", img.Path, path)
	}
}

func TestLoadImageEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadImage(path)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("LoadImage() error = %v, want ErrInvalidImage", err)
	}
}

func TestLoadImageUnsupportedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just some text, not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadImage(path)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("LoadImage() error = %v, want ErrInvalidImage", err)
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("LoadImage() expected error for missing file")
	}
	var re *RecognitionError
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T, want *RecognitionError", err)
	}
	if re.Op != "LoadImage" {
		t.Errorf("Op = %q, want LoadImage", re.Op)
	}
}
