package document

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fumiama/go-docx"
)

// Heading run sizes in half-points, by markdown level. go-docx takes sizes
// as strings.
var headingSizes = map[int]string{
	1: "32",
	2: "28",
	3: "26",
}

// emitDocx renders the parsed blocks into a Word document.
func (e *Emitter) emitDocx(doc Document, path string) error {
	w := docx.New().WithDefaultTheme()

	if doc.Title != "" {
		w.AddParagraph().AddText(doc.Title).Size("36").Bold()
		w.AddParagraph()
	}

	for _, b := range parseBlocks(doc.Body) {
		switch b.kind {
		case blockHeading:
			size, ok := headingSizes[b.level]
			if !ok {
				size = "24"
			}
			w.AddParagraph().AddText(b.text).Size(size).Bold()
		case blockListItem:
			w.AddParagraph().AddText("• " + b.text)
		case blockFormula:
			w.AddParagraph().AddText(b.text).Italic()
		case blockDiagramMarker:
			w.AddParagraph().AddText(b.text).Italic()
		default:
			w.AddParagraph().AddText(b.text)
		}
	}

	for _, fig := range doc.Figures {
		caption := fig.Caption
		if caption == "" {
			caption = "Extracted diagram"
		}
		w.AddParagraph().
			AddText(fmt.Sprintf("[Figure: %s - %s]", caption, filepath.Base(fig.Path))).
			Italic()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("document: failed to create docx file: %w", err)
	}
	defer f.Close()

	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("document: failed to write docx: %w", err)
	}
	return nil
}
