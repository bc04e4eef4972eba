package document

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
)

// emitHTML converts the markdown body with goldmark and wraps it in a
// minimal standalone page.
func (e *Emitter) emitHTML(doc Document, path string) error {
	var body bytes.Buffer
	md := goldmark.New()
	if err := md.Convert([]byte(doc.Body), &body); err != nil {
		return fmt.Errorf("document: failed to convert markdown: %w", err)
	}

	var page bytes.Buffer
	title := doc.Title
	if title == "" {
		title = "Converted Notes"
	}
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	page.WriteString("<meta charset=\"utf-8\">\n")
	page.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	page.WriteString("</head>\n<body>\n")
	page.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	page.Write(body.Bytes())
	for _, fig := range doc.Figures {
		page.WriteString(fmt.Sprintf("<figure><img src=\"%s\" alt=\"%s\"><figcaption>%s</figcaption></figure>\n",
			html.EscapeString(fig.Path), html.EscapeString(fig.Caption), html.EscapeString(figCaption(fig))))
	}
	page.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, page.Bytes(), 0644); err != nil {
		return fmt.Errorf("document: failed to write html: %w", err)
	}
	return nil
}

func figCaption(fig Figure) string {
	if fig.Caption != "" {
		return fig.Caption
	}
	return filepath.Base(fig.Path)
}
