// Package document writes refined note text into a formatted output file.
// Supported formats are docx, html and md; docx rendering goes through
// go-docx, html through goldmark, and md is the refined text verbatim.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"notes2docx/internal/logger"
)

// Format selects the output document type.
type Format string

const (
	FormatDocx     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// ErrUnsupportedFormat is returned for format strings outside docx/html/md.
var ErrUnsupportedFormat = errors.New("document: unsupported output format")

// ParseFormat validates a format string from the CLI.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatDocx:
		return FormatDocx, nil
	case FormatHTML:
		return FormatHTML, nil
	case FormatMarkdown, "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Figure references a diagram crop extracted from the source image.
type Figure struct {
	// Path is the saved crop file.
	Path string

	// Caption is a short label for the figure.
	Caption string
}

// Document is the write-once artifact content: refined (possibly
// markdown-structured) text plus any extracted figures.
type Document struct {
	Title   string
	Body    string
	Figures []Figure
}

// Emitter writes documents into the outputs directory.
type Emitter struct {
	outputsDir string
	log        zerolog.Logger
}

// NewEmitter creates an emitter writing into outputsDir.
func NewEmitter(outputsDir string) *Emitter {
	return &Emitter{
		outputsDir: outputsDir,
		log:        logger.WithComponent("emitter"),
	}
}

// Emit writes the document under the given base name and returns the output
// path. Emission failures surface immediately; there are no retries.
func (e *Emitter) Emit(doc Document, name string, format Format) (string, error) {
	if err := os.MkdirAll(e.outputsDir, 0755); err != nil {
		return "", fmt.Errorf("document: failed to create outputs directory: %w", err)
	}

	path := filepath.Join(e.outputsDir, sanitizeName(name)+"."+string(format))

	var err error
	switch format {
	case FormatDocx:
		err = e.emitDocx(doc, path)
	case FormatHTML:
		err = e.emitHTML(doc, path)
	case FormatMarkdown:
		err = e.emitMarkdown(doc, path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", err
	}

	e.log.Info().
		Str("path", path).
		Str("format", string(format)).
		Int("figures", len(doc.Figures)).
		Msg("Document written")
	return path, nil
}

// emitMarkdown writes the body verbatim with a title heading and figure
// links appended.
func (e *Emitter) emitMarkdown(doc Document, path string) error {
	var b strings.Builder
	if doc.Title != "" {
		b.WriteString("# " + doc.Title + "\n\n")
	}
	b.WriteString(doc.Body)
	if !strings.HasSuffix(doc.Body, "\n") {
		b.WriteString("\n")
	}
	for _, fig := range doc.Figures {
		b.WriteString(fmt.Sprintf("\n![%s](%s)\n", fig.Caption, fig.Path))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("document: failed to write markdown: %w", err)
	}
	return nil
}

// sanitizeName makes a document base name filesystem-friendly.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "converted_notes"
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name
}
