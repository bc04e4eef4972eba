package ocr

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"notes2docx/internal/logger"
)

const (
	// DefaultBackendTimeout bounds a single backend invocation.
	DefaultBackendTimeout = 60 * time.Second
)

// DefaultBackendOrder is the priority order used when BACKEND_ORDER is not
// configured: remote vision LLM first, then Google Cloud Vision, Document AI,
// and finally the local Tesseract install as last resort.
var DefaultBackendOrder = []string{
	BackendLLMVision,
	BackendGoogleVision,
	BackendDocumentAI,
	BackendTesseract,
}

// Selector walks an ordered backend list and returns the first usable
// recognition result. A result is usable when its trimmed text is at least
// MinUsableTextLen characters. Backends that fail to construct, error out,
// time out, or produce unusable text are skipped; exhausting the list yields
// an ExhaustedError naming every attempt. There are no retries and no
// backoff.
type Selector struct {
	registry  *Registry
	order     []string
	timeout   time.Duration
	minUsable int
	localOnly bool
	log       zerolog.Logger
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithOrder overrides the backend priority order.
func WithOrder(order []string) SelectorOption {
	return func(s *Selector) {
		if len(order) > 0 {
			s.order = append([]string(nil), order...)
		}
	}
}

// WithTimeout sets the per-backend invocation timeout.
func WithTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMinUsableText overrides the minimal usable text length.
func WithMinUsableText(n int) SelectorOption {
	return func(s *Selector) {
		if n >= 0 {
			s.minUsable = n
		}
	}
}

// WithLocalOnly restricts selection to backends registered as local.
// Remote backends are never constructed or invoked in this mode.
func WithLocalOnly(localOnly bool) SelectorOption {
	return func(s *Selector) { s.localOnly = localOnly }
}

// NewSelector creates a selector over the given registry.
func NewSelector(registry *Registry, opts ...SelectorOption) *Selector {
	s := &Selector{
		registry:  registry,
		order:     DefaultBackendOrder,
		timeout:   DefaultBackendTimeout,
		minUsable: MinUsableTextLen,
		log:       logger.WithComponent("ocr-selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the per-backend invocation timeout.
func (s *Selector) Timeout() time.Duration {
	return s.timeout
}

// Order returns the effective backend order after mode filtering.
func (s *Selector) Order() []string {
	order := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if s.localOnly && s.registry.Remote(name) {
			continue
		}
		order = append(order, name)
	}
	return order
}

// Recognize runs the fallback chain over the image.
func (s *Selector) Recognize(ctx context.Context, img *Image) (*Result, error) {
	var attempts []BackendAttempt

	for _, name := range s.Order() {
		if err := ctx.Err(); err != nil {
			return nil, WrapRecognitionError("Recognize", err, "selection canceled")
		}

		result, err := s.attempt(ctx, name, img)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("backend", name).
				Msg("Backend attempt failed, advancing to next")
			attempts = append(attempts, BackendAttempt{Backend: name, Err: err})
			continue
		}

		s.log.Info().
			Str("backend", name).
			Float32("confidence", result.Confidence).
			Int("text_length", len(result.Text)).
			Dur("duration", result.Duration).
			Msg("Recognition succeeded")
		return result, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// attempt resolves and invokes a single backend with a bounded timeout.
func (s *Selector) attempt(ctx context.Context, name string, img *Image) (*Result, error) {
	backend, err := s.registry.Backend(ctx, name)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := backend.Recognize(callCtx, img)
	if err != nil {
		return nil, err
	}

	result.Text = strings.TrimSpace(result.Text)
	if len(result.Text) < s.minUsable {
		return nil, WrapRecognitionError("Recognize", ErrNoUsableText,
			name+" returned "+lengthLabel(len(result.Text)))
	}

	if result.Method == "" {
		result.Method = name
	}
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	if result.ProcessedAt.IsZero() {
		result.ProcessedAt = time.Now()
	}
	return result, nil
}

func lengthLabel(n int) string {
	if n == 0 {
		return "empty text"
	}
	return "text below usable length"
}
