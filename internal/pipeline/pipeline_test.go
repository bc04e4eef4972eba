package pipeline

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"notes2docx/internal/config"
	"notes2docx/internal/document"
	"notes2docx/internal/ocr"
	"notes2docx/internal/preprocess"
)

// fakeRecognizer returns scripted results per call.
type fakeRecognizer struct {
	results []*ocr.Result
	errs    []error
	calls   int
	images  []*ocr.Image
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img *ocr.Image) (*ocr.Result, error) {
	i := f.calls
	f.calls++
	f.images = append(f.images, img)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, errors.New("no scripted result")
}

// fakeRefiner tags the text so both passes are observable.
type fakeRefiner struct {
	correctCalls   int
	structureCalls int
}

func (f *fakeRefiner) Correct(ctx context.Context, text string) (string, error) {
	f.correctCalls++
	return strings.ReplaceAll(text, "Chemestry", "Chemistry"), nil
}

func (f *fakeRefiner) Structure(ctx context.Context, text string) (string, error) {
	f.structureCalls++
	return "# Notes\n\n" + text, nil
}

const recognizedText = "Chemestry notes: solubility rises with temperature in most salts."

func writeNotePhoto(t *testing.T, dir string) string {
	t.Helper()
	img := imaging.New(320, 240, color.White)
	path := filepath.Join(dir, "notes.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
	return path
}

func newTestPipeline(t *testing.T, recognizer Recognizer, refiner TextRefiner, opts Options) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	if opts.Format == "" {
		opts.Format = document.FormatMarkdown
	}
	p := New(
		preprocess.NewNormalizer(filepath.Join(dir, "temp")),
		preprocess.NewDiagramDetector(filepath.Join(dir, "temp")),
		recognizer,
		refiner,
		document.NewEmitter(filepath.Join(dir, "outputs")),
		opts,
	)
	return p, dir
}

func TestProcessEmitsRecognizedTextVerbatim(t *testing.T) {
	recognizer := &fakeRecognizer{
		results: []*ocr.Result{{Text: recognizedText, Method: ocr.BackendTesseract, Confidence: 0.9}},
	}
	p, dir := newTestPipeline(t, recognizer, nil, Options{})
	imagePath := writeNotePhoto(t, dir)

	summary, err := p.Process(context.Background(), imagePath, "my notes")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if summary.Refined {
		t.Error("summary reports refined output with refinement disabled")
	}
	if summary.Method != ocr.BackendTesseract {
		t.Errorf("Method = %q", summary.Method)
	}
	if recognizer.calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", recognizer.calls)
	}

	data, err := os.ReadFile(summary.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), recognizedText) {
		t.Error("output does not carry the recognized text verbatim")
	}
	if !strings.Contains(string(data), "# my notes") {
		t.Error("output is missing the title heading")
	}
}

func TestProcessRetriesWithNormalizedImage(t *testing.T) {
	recognizer := &fakeRecognizer{
		errs: []error{errors.New("glare on original")},
		results: []*ocr.Result{
			nil,
			{Text: recognizedText, Method: ocr.BackendGoogleVision},
		},
	}
	p, dir := newTestPipeline(t, recognizer, nil, Options{})
	imagePath := writeNotePhoto(t, dir)

	summary, err := p.Process(context.Background(), imagePath, "retry")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if recognizer.calls != 2 {
		t.Fatalf("recognizer calls = %d, want 2 (retry with normalized)", recognizer.calls)
	}
	if !strings.HasSuffix(recognizer.images[1].Path, ".normalized.png") {
		t.Errorf("retry image path = %q, want the normalized copy", recognizer.images[1].Path)
	}
	if summary.Method != ocr.BackendGoogleVision {
		t.Errorf("Method = %q", summary.Method)
	}
}

func TestProcessSurfacesRetryFailure(t *testing.T) {
	chainErr := &ocr.ExhaustedError{Attempts: []ocr.BackendAttempt{
		{Backend: ocr.BackendTesseract, Err: ocr.ErrNoUsableText},
	}}
	recognizer := &fakeRecognizer{errs: []error{chainErr, chainErr}}
	p, dir := newTestPipeline(t, recognizer, nil, Options{})
	imagePath := writeNotePhoto(t, dir)

	_, err := p.Process(context.Background(), imagePath, "fails")
	if err == nil {
		t.Fatal("Process() expected error when every attempt fails")
	}
	var exhausted *ocr.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ocr.ExhaustedError", err)
	}
	if recognizer.calls != 2 {
		t.Errorf("recognizer calls = %d, want 2", recognizer.calls)
	}
}

func TestProcessRejectsShortText(t *testing.T) {
	recognizer := &fakeRecognizer{
		results: []*ocr.Result{{Text: "tiny scrap", Method: ocr.BackendTesseract}},
	}
	p, dir := newTestPipeline(t, recognizer, nil, Options{})
	imagePath := writeNotePhoto(t, dir)

	_, err := p.Process(context.Background(), imagePath, "short")
	if !errors.Is(err, ErrTextTooShort) {
		t.Fatalf("Process() error = %v, want ErrTextTooShort", err)
	}
}

func TestProcessRunsBothRefinementPasses(t *testing.T) {
	recognizer := &fakeRecognizer{
		results: []*ocr.Result{{Text: recognizedText, Method: ocr.BackendLLMVision, Confidence: 0.95}},
	}
	refiner := &fakeRefiner{}
	p, dir := newTestPipeline(t, recognizer, refiner, Options{Refine: true})
	imagePath := writeNotePhoto(t, dir)

	summary, err := p.Process(context.Background(), imagePath, "refined notes")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !summary.Refined {
		t.Error("summary does not report refinement")
	}
	if refiner.correctCalls != 1 || refiner.structureCalls != 1 {
		t.Errorf("refiner calls = %d correct, %d structure; want 1 each",
			refiner.correctCalls, refiner.structureCalls)
	}

	data, err := os.ReadFile(summary.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Chemistry notes") {
		t.Error("output is missing the corrected text")
	}
	if !strings.Contains(string(data), "# Notes") {
		t.Error("output is missing the structured heading")
	}
}

func TestProcessMissingImage(t *testing.T) {
	p, dir := newTestPipeline(t, &fakeRecognizer{}, nil, Options{})
	_, err := p.Process(context.Background(), filepath.Join(dir, "missing.png"), "x")
	if err == nil {
		t.Fatal("Process() expected error for missing image")
	}
}

func TestFromConfigBackendTimeout(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		BackendTimeoutSecs: 60,
		TempDir:            filepath.Join(dir, "temp"),
		OutputsDir:         filepath.Join(dir, "outputs"),
	}

	p, err := FromConfig(cfg, BuildOptions{
		Options:        Options{Format: document.FormatMarkdown},
		BackendTimeout: 120 * time.Second,
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	selector, ok := p.recognizer.(*ocr.Selector)
	if !ok {
		t.Fatalf("recognizer type = %T, want *ocr.Selector", p.recognizer)
	}
	if selector.Timeout() != 120*time.Second {
		t.Errorf("Timeout() = %v, want 120s override", selector.Timeout())
	}
}

func TestFromConfigBackendTimeoutDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		BackendTimeoutSecs: 45,
		TempDir:            filepath.Join(dir, "temp"),
		OutputsDir:         filepath.Join(dir, "outputs"),
	}

	p, err := FromConfig(cfg, BuildOptions{Options: Options{Format: document.FormatMarkdown}})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	selector := p.recognizer.(*ocr.Selector)
	if selector.Timeout() != 45*time.Second {
		t.Errorf("Timeout() = %v, want the configured 45s", selector.Timeout())
	}
}

func TestTitleFromName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"my_lecture_notes", "my lecture notes"},
		{"", "Converted Notes"},
		{"  ", "Converted Notes"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := titleFromName(tt.in); got != tt.want {
			t.Errorf("titleFromName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
