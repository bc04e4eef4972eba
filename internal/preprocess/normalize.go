// Package preprocess prepares note photos for recognition: orientation and
// contrast normalization, plus heuristic detection of diagram regions so
// their crops can be referenced in the emitted document.
package preprocess

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"notes2docx/internal/logger"
)

const (
	// MaxDimension is the longest image side kept after downscaling.
	// Larger inputs slow recognition without improving accuracy.
	MaxDimension = 2000
)

// NormalizedImage is the output of a normalization pass.
type NormalizedImage struct {
	// Image is the normalized pixels, grayscale with boosted contrast.
	Image *image.NRGBA

	// Path is where the normalized PNG was written in the temp directory.
	Path string
}

// Normalizer adjusts a photo before recognition: EXIF auto-orientation,
// downscale to MaxDimension, grayscale, contrast boost and a light sharpen.
type Normalizer struct {
	tempDir string
	maxDim  int
	log     zerolog.Logger
}

// NewNormalizer creates a normalizer writing intermediates to tempDir.
func NewNormalizer(tempDir string) *Normalizer {
	return &Normalizer{
		tempDir: tempDir,
		maxDim:  MaxDimension,
		log:     logger.WithComponent("preprocess"),
	}
}

// Normalize loads the image at path, applies the normalization pipeline and
// writes the result as a PNG into the temp directory.
func (n *Normalizer) Normalize(path string) (*NormalizedImage, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("preprocess: failed to open image %s: %w", path, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	img := imaging.Clone(src)
	if width > n.maxDim || height > n.maxDim {
		img = imaging.Fit(img, n.maxDim, n.maxDim, imaging.Lanczos)
		n.log.Debug().
			Int("original_width", width).
			Int("original_height", height).
			Int("width", img.Bounds().Dx()).
			Int("height", img.Bounds().Dy()).
			Msg("Downscaled image")
	}

	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 15)
	img = imaging.Sharpen(img, 0.5)

	if err := os.MkdirAll(n.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("preprocess: failed to create temp directory: %w", err)
	}

	outPath := filepath.Join(n.tempDir, normalizedName(path))
	if err := imaging.Save(img, outPath); err != nil {
		return nil, fmt.Errorf("preprocess: failed to save normalized image: %w", err)
	}

	n.log.Info().
		Str("source", path).
		Str("normalized", outPath).
		Msg("Image normalized")

	return &NormalizedImage{Image: img, Path: outPath}, nil
}

// normalizedName derives the temp file name from the input base name.
func normalizedName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".normalized.png"
}
