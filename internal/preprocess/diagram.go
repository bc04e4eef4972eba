package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"notes2docx/internal/logger"
)

const (
	// cellSize is the grid granularity for the ink-density map.
	cellSize = 16

	// minDiagramDim is the minimum diagram side length in pixels. Smaller
	// clusters are treated as text or noise.
	minDiagramDim = 150

	// inkThreshold is the dark-pixel fraction above which a cell counts as
	// inked.
	inkThreshold = 0.12

	// minClusterFill is the minimum fraction of inked cells within a
	// cluster's bounding box. Text paragraphs leave blank inter-line rows
	// and fall below this; compact figures stay above it.
	minClusterFill = 0.6
)

// Crop is an extracted diagram region saved as a standalone PNG.
type Crop struct {
	// Path is the saved crop file.
	Path string

	// Bounds is the region in the source image the crop was taken from.
	Bounds image.Rectangle
}

// DiagramDetector finds compact high-ink regions (figures, graphs, boxed
// sketches) in a note photo so they can be cropped and referenced from the
// emitted document.
type DiagramDetector struct {
	tempDir string
	log     zerolog.Logger
}

// NewDiagramDetector creates a detector writing crops under tempDir.
func NewDiagramDetector(tempDir string) *DiagramDetector {
	return &DiagramDetector{
		tempDir: tempDir,
		log:     logger.WithComponent("diagram-detector"),
	}
}

// Detect returns the bounding boxes of likely diagram regions.
//
// The image is divided into a grid of cells; a cell is inked when enough of
// its pixels are dark. Connected inked cells form clusters, and a cluster is
// reported when it is large in both dimensions and compactly filled.
func (d *DiagramDetector) Detect(img image.Image) []image.Rectangle {
	bounds := img.Bounds()
	cols := (bounds.Dx() + cellSize - 1) / cellSize
	rows := (bounds.Dy() + cellSize - 1) / cellSize
	if cols == 0 || rows == 0 {
		return nil
	}

	inked := inkMap(img, rows, cols)

	var regions []image.Rectangle
	visited := make([]bool, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if visited[idx] || !inked[idx] {
				continue
			}
			cluster := floodCluster(inked, visited, rows, cols, r, c)
			if box, ok := clusterBox(cluster, bounds); ok {
				regions = append(regions, box)
			}
		}
	}

	d.log.Debug().
		Int("regions", len(regions)).
		Msg("Diagram detection complete")
	return regions
}

// Extract detects diagram regions and saves each crop as a PNG named after
// the given base name.
func (d *DiagramDetector) Extract(img image.Image, name string) ([]Crop, error) {
	regions := d.Detect(img)
	if len(regions) == 0 {
		return nil, nil
	}

	dir := filepath.Join(d.tempDir, "diagrams")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("preprocess: failed to create diagrams directory: %w", err)
	}

	crops := make([]Crop, 0, len(regions))
	for i, region := range regions {
		crop := imaging.Crop(img, region)
		path := filepath.Join(dir, fmt.Sprintf("%s_diagram_%d.png", name, i+1))
		if err := imaging.Save(crop, path); err != nil {
			return nil, fmt.Errorf("preprocess: failed to save diagram crop: %w", err)
		}
		crops = append(crops, Crop{Path: path, Bounds: region})
		d.log.Info().
			Str("crop", path).
			Int("width", region.Dx()).
			Int("height", region.Dy()).
			Msg("Extracted diagram region")
	}
	return crops, nil
}

// inkMap marks grid cells whose dark-pixel fraction exceeds inkThreshold.
func inkMap(img image.Image, rows, cols int) []bool {
	bounds := img.Bounds()
	inked := make([]bool, rows*cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 := bounds.Min.X + c*cellSize
			y0 := bounds.Min.Y + r*cellSize
			x1 := min(x0+cellSize, bounds.Max.X)
			y1 := min(y0+cellSize, bounds.Max.Y)

			dark, total := 0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					if luminance(img.At(x, y)) < 128 {
						dark++
					}
					total++
				}
			}
			if total > 0 && float64(dark)/float64(total) > inkThreshold {
				inked[r*cols+c] = true
			}
		}
	}
	return inked
}

type cell struct{ r, c int }

// floodCluster collects the 4-connected cluster of inked cells at (r, c).
func floodCluster(inked, visited []bool, rows, cols, r, c int) []cell {
	var cluster []cell
	stack := []cell{{r, c}}
	visited[r*cols+c] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cluster = append(cluster, cur)

		for _, next := range []cell{
			{cur.r - 1, cur.c}, {cur.r + 1, cur.c},
			{cur.r, cur.c - 1}, {cur.r, cur.c + 1},
		} {
			if next.r < 0 || next.r >= rows || next.c < 0 || next.c >= cols {
				continue
			}
			idx := next.r*cols + next.c
			if visited[idx] || !inked[idx] {
				continue
			}
			visited[idx] = true
			stack = append(stack, next)
		}
	}
	return cluster
}

// clusterBox converts a cell cluster into a pixel bounding box, applying the
// size and fill filters.
func clusterBox(cluster []cell, bounds image.Rectangle) (image.Rectangle, bool) {
	minR, minC := cluster[0].r, cluster[0].c
	maxR, maxC := minR, minC
	for _, cl := range cluster[1:] {
		minR, maxR = min(minR, cl.r), max(maxR, cl.r)
		minC, maxC = min(minC, cl.c), max(maxC, cl.c)
	}

	boxCells := (maxR - minR + 1) * (maxC - minC + 1)
	fill := float64(len(cluster)) / float64(boxCells)
	if fill < minClusterFill {
		return image.Rectangle{}, false
	}

	box := image.Rect(
		bounds.Min.X+minC*cellSize,
		bounds.Min.Y+minR*cellSize,
		bounds.Min.X+(maxC+1)*cellSize,
		bounds.Min.Y+(maxR+1)*cellSize,
	).Intersect(bounds)

	if box.Dx() < minDiagramDim || box.Dy() < minDiagramDim {
		return image.Rectangle{}, false
	}
	return box, true
}

// luminance approximates perceived brightness in the 0..255 range.
func luminance(c color.Color) int {
	r, g, b, _ := c.RGBA()
	return int((299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000)
}
