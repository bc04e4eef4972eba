package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testDoc = Document{
	Title: "Chemistry Lecture",
	Body:  "# Solubility\n\nSolubility depends on temperature.\n\n* warm the solution\n* stir until dissolved\n",
	Figures: []Figure{
		{Path: "temp/diagrams/notes_diagram_1.png", Caption: "Diagram 1"},
	},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"docx", FormatDocx, false},
		{"DOCX", FormatDocx, false},
		{"html", FormatHTML, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{" md ", FormatMarkdown, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmitMarkdownVerbatimBody(t *testing.T) {
	dir := t.TempDir()
	e := NewEmitter(dir)

	path, err := e.Emit(testDoc, "chemistry lecture", FormatMarkdown)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if filepath.Base(path) != "chemistry_lecture.md" {
		t.Errorf("output name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "# Chemistry Lecture\n") {
		t.Error("output does not start with the title heading")
	}
	if !strings.Contains(out, testDoc.Body) {
		t.Error("output does not carry the body verbatim")
	}
	if !strings.Contains(out, "![Diagram 1](temp/diagrams/notes_diagram_1.png)") {
		t.Error("output is missing the figure link")
	}
}

func TestEmitHTML(t *testing.T) {
	dir := t.TempDir()
	e := NewEmitter(dir)

	path, err := e.Emit(testDoc, "notes", FormatHTML)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Chemistry Lecture</title>",
		"<h1>Chemistry Lecture</h1>",
		"<li>warm the solution</li>",
		"<figcaption>Diagram 1</figcaption>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html output missing %q", want)
		}
	}
}

func TestEmitHTMLEscapesFigureAttributes(t *testing.T) {
	dir := t.TempDir()
	e := NewEmitter(dir)

	doc := Document{
		Title: "Escaping",
		Body:  "Some notes.\n",
		Figures: []Figure{
			{Path: `temp/a"b<c>.png`, Caption: `say "hi" & <bye>`},
		},
	}
	path, err := e.Emit(doc, "escaping", FormatHTML)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `src="temp/a&#34;b&lt;c&gt;.png"`) {
		t.Error("figure src is not html-escaped")
	}
	if !strings.Contains(out, `alt="say &#34;hi&#34; &amp; &lt;bye&gt;"`) {
		t.Error("figure alt is not html-escaped")
	}
	if strings.Contains(out, `src="temp/a"b`) {
		t.Error("raw quote leaked into the src attribute")
	}
}

func TestEmitDocxWritesFile(t *testing.T) {
	dir := t.TempDir()
	e := NewEmitter(dir)

	path, err := e.Emit(testDoc, "notes", FormatDocx)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("docx output is empty")
	}
}

func TestEmitUnsupportedFormat(t *testing.T) {
	e := NewEmitter(t.TempDir())
	if _, err := e.Emit(testDoc, "notes", Format("pdf")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Emit() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my notes", "my_notes"},
		{"a/b\\c:d", "a_b_c_d"},
		{"  ", "converted_notes"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
