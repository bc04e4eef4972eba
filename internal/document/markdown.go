package document

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
	blockFormula
	blockDiagramMarker
)

// block is one renderable unit of the refined text.
type block struct {
	kind  blockKind
	level int // heading level, 0 otherwise
	text  string
}

var (
	diagramMarkerRe = regexp.MustCompile(`^\[DIAGRAM\b`)

	// formulaPatterns flag lines that read as chemical or mathematical
	// notation so they can be set in a distinct run.
	formulaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+[A-Z][a-z]?\d*`), // chemical formulas like H2O, CaCl2
		regexp.MustCompile(`[ΔΣ∫∂]`),
		regexp.MustCompile(`[A-Za-z]+_?\d`), // subscripts
		regexp.MustCompile(`→|⇌|≈|≠|≤|≥`),
	}
)

// parseBlocks walks the markdown AST of the refined text and flattens it
// into renderable blocks.
func parseBlocks(source string) []block {
	md := goldmark.New()
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []block
	walk(doc, src, &blocks)
	return blocks
}

func walk(node ast.Node, source []byte, blocks *[]block) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			*blocks = append(*blocks, block{
				kind:  blockHeading,
				level: n.Level,
				text:  string(n.Text(source)),
			})
		case *ast.Paragraph:
			appendText(blocks, string(n.Text(source)))
		case *ast.TextBlock:
			appendText(blocks, string(n.Text(source)))
		case *ast.List:
			walkList(n, source, blocks)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			*blocks = append(*blocks, block{
				kind: blockFormula,
				text: codeText(child, source),
			})
		case *ast.Blockquote:
			walk(n, source, blocks)
		}
	}
}

func walkList(list *ast.List, source []byte, blocks *[]block) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*ast.ListItem)
		if !ok {
			continue
		}
		var itemText string
		if child := li.FirstChild(); child != nil {
			itemText = string(child.Text(source))
		}
		if itemText != "" {
			*blocks = append(*blocks, block{kind: blockListItem, text: itemText})
		}
		// Nested lists become flat items; indentation is a styling
		// concern the emitter does not carry.
		for child := li.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				walkList(nested, source, blocks)
			}
		}
	}
}

// appendText classifies a paragraph as diagram marker, formula, or plain
// text and appends it.
func appendText(blocks *[]block, paragraph string) {
	paragraph = strings.TrimSpace(paragraph)
	if paragraph == "" {
		return
	}
	switch {
	case diagramMarkerRe.MatchString(paragraph):
		*blocks = append(*blocks, block{kind: blockDiagramMarker, text: paragraph})
	case looksLikeFormula(paragraph):
		*blocks = append(*blocks, block{kind: blockFormula, text: paragraph})
	default:
		*blocks = append(*blocks, block{kind: blockParagraph, text: paragraph})
	}
}

func codeText(node ast.Node, source []byte) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// looksLikeFormula reports whether a line reads as chemical or mathematical
// notation.
func looksLikeFormula(s string) bool {
	for _, re := range formulaPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
