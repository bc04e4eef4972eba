// Package pipeline chains the conversion stages: normalize the photo,
// recognize text over the backend fallback chain, refine it with a hosted
// model, and emit the formatted document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"notes2docx/internal/config"
	"notes2docx/internal/document"
	"notes2docx/internal/logger"
	"notes2docx/internal/ocr"
	"notes2docx/internal/preprocess"
	"notes2docx/internal/refine"
)

const (
	// minFinalTextLen is the minimum recognized text length for the
	// conversion to be considered successful.
	minFinalTextLen = 20
)

// ErrTextTooShort is returned when recognition produced too little text to
// emit a document.
var ErrTextTooShort = errors.New("pipeline: recognition produced too little text")

// Recognizer runs the backend fallback chain over one image.
type Recognizer interface {
	Recognize(ctx context.Context, img *ocr.Image) (*ocr.Result, error)
}

// TextRefiner runs the LLM cleanup passes.
type TextRefiner interface {
	Correct(ctx context.Context, text string) (string, error)
	Structure(ctx context.Context, text string) (string, error)
}

// Options toggles optional stages.
type Options struct {
	// Refine enables the LLM correction and structuring passes.
	Refine bool

	// DetectDiagrams enables diagram region extraction.
	DetectDiagrams bool

	// Format selects the output document type.
	Format document.Format
}

// Summary reports the outcome of one conversion.
type Summary struct {
	OutputPath string        `json:"output_path"`
	Method     string        `json:"method"`
	Confidence float32       `json:"confidence,omitempty"`
	TextLength int           `json:"text_length"`
	Refined    bool          `json:"refined"`
	Figures    int           `json:"figures"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline wires the conversion stages together. It is request-scoped glue:
// each Process call is independent, and the only state shared across calls
// lives in the backend registry behind the Recognizer.
type Pipeline struct {
	normalizer *preprocess.Normalizer
	detector   *preprocess.DiagramDetector
	recognizer Recognizer
	refiner    TextRefiner
	emitter    *document.Emitter
	opts       Options
	log        zerolog.Logger
}

// New assembles a pipeline from pre-built stages.
func New(normalizer *preprocess.Normalizer, detector *preprocess.DiagramDetector,
	recognizer Recognizer, refiner TextRefiner, emitter *document.Emitter, opts Options) *Pipeline {
	if opts.Format == "" {
		opts.Format = document.FormatDocx
	}
	return &Pipeline{
		normalizer: normalizer,
		detector:   detector,
		recognizer: recognizer,
		refiner:    refiner,
		emitter:    emitter,
		opts:       opts,
		log:        logger.WithComponent("pipeline"),
	}
}

// BuildOptions configures FromConfig.
type BuildOptions struct {
	Options

	// LocalOnly restricts recognition to local backends.
	LocalOnly bool

	// BackendTimeout overrides the configured per-backend timeout.
	BackendTimeout time.Duration
}

// BackendRegistry builds the process-scoped registry with all four
// recognition backends. Handles are instantiated lazily on first use and
// retained across conversions.
func BackendRegistry(cfg *config.Config) *ocr.Registry {
	registry := ocr.NewRegistry()
	registry.Register(ocr.BackendLLMVision, true, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewLLMVisionBackend(ocr.LLMVisionConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Model:   cfg.VisionModel,
		})
	})
	registry.Register(ocr.BackendGoogleVision, true, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewGoogleVisionBackend(ctx)
	})
	registry.Register(ocr.BackendDocumentAI, true, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewDocumentAIBackend(ctx)
	})
	registry.Register(ocr.BackendTesseract, false, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewTesseractBackend(cfg.TesseractLanguages), nil
	})
	return registry
}

// FromConfig assembles the standard pipeline: all four backends registered
// in a fresh registry, a selector honoring the configured order and mode,
// and the Groq-backed refiner when refinement is enabled.
func FromConfig(cfg *config.Config, opts BuildOptions) (*Pipeline, error) {
	registry := BackendRegistry(cfg)

	for _, name := range cfg.BackendOrder {
		if !registry.Has(name) {
			logger.WithComponent("pipeline").Warn().
				Str("backend", name).
				Msg("Unknown backend in BACKEND_ORDER, it will fail at selection")
		}
	}

	timeout := opts.BackendTimeout
	if timeout == 0 {
		timeout = time.Duration(cfg.BackendTimeoutSecs) * time.Second
	}

	selector := ocr.NewSelector(registry,
		ocr.WithOrder(cfg.BackendOrder),
		ocr.WithTimeout(timeout),
		ocr.WithLocalOnly(opts.LocalOnly),
	)

	var refiner TextRefiner
	if opts.Refine {
		r, err := refine.NewRefiner(refine.Config{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Model:   cfg.RefinerModel,
		})
		if err != nil {
			return nil, err
		}
		refiner = r
	}

	return New(
		preprocess.NewNormalizer(cfg.TempDir),
		preprocess.NewDiagramDetector(cfg.TempDir),
		selector,
		refiner,
		document.NewEmitter(cfg.OutputsDir),
		opts.Options,
	), nil
}

// Process converts one image into a document and returns the summary.
//
// Recognition first runs on the original photo, which vision models prefer;
// when that fails or comes back too short, it is retried once with the
// normalized image before the failure is surfaced.
func (p *Pipeline) Process(ctx context.Context, imagePath, outputName string) (*Summary, error) {
	start := time.Now()

	img, err := ocr.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}

	normalized, err := p.normalizer.Normalize(imagePath)
	if err != nil {
		return nil, err
	}

	result, err := p.recognize(ctx, img, normalized)
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Str("method", result.Method).
		Float32("confidence", result.Confidence).
		Int("text_length", len(result.Text)).
		Msg("Recognition complete")

	if len(result.Text) < minFinalTextLen {
		return nil, fmt.Errorf("%w: got %d characters via %s", ErrTextTooShort, len(result.Text), result.Method)
	}

	text := result.Text
	refined := false
	if p.opts.Refine && p.refiner != nil {
		corrected, err := p.refiner.Correct(ctx, text)
		if err != nil {
			return nil, err
		}
		structured, err := p.refiner.Structure(ctx, corrected)
		if err != nil {
			return nil, err
		}
		text = structured
		refined = true
	}

	var figures []document.Figure
	if p.opts.DetectDiagrams && p.detector != nil {
		crops, err := p.detector.Extract(normalized.Image, sanitizeBase(imagePath))
		if err != nil {
			p.log.Warn().Err(err).Msg("Diagram extraction failed, continuing without figures")
		}
		for i, crop := range crops {
			figures = append(figures, document.Figure{
				Path:    crop.Path,
				Caption: fmt.Sprintf("Diagram %d", i+1),
			})
		}
	}

	outputPath, err := p.emitter.Emit(document.Document{
		Title:   titleFromName(outputName),
		Body:    text,
		Figures: figures,
	}, outputName, p.opts.Format)
	if err != nil {
		return nil, err
	}

	return &Summary{
		OutputPath: outputPath,
		Method:     result.Method,
		Confidence: result.Confidence,
		TextLength: len(text),
		Refined:    refined,
		Figures:    len(figures),
		Duration:   time.Since(start),
	}, nil
}

// recognize tries the original image, then the normalized one.
func (p *Pipeline) recognize(ctx context.Context, img *ocr.Image, normalized *preprocess.NormalizedImage) (*ocr.Result, error) {
	result, err := p.recognizer.Recognize(ctx, img)
	if err == nil {
		return result, nil
	}

	p.log.Warn().Err(err).Msg("Recognition on original image failed, retrying with normalized image")

	normImg, loadErr := ocr.LoadImage(normalized.Path)
	if loadErr != nil {
		return nil, err
	}
	result, retryErr := p.recognizer.Recognize(ctx, normImg)
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

func sanitizeBase(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func titleFromName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return "Converted Notes"
	}
	return name
}
