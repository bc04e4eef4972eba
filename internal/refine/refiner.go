// Package refine runs LLM cleanup passes over raw recognized text: error
// correction first, then markdown structuring. Both passes are stateless
// transforms over a hosted chat model.
package refine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"notes2docx/internal/logger"
)

const (
	// DefaultModel is the hosted chat model used for refinement.
	DefaultModel = "llama-3.3-70b-versatile"

	// minRefinableLen is the minimum input length worth sending to the
	// model; anything shorter is returned unchanged.
	minRefinableLen = 10
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("refine: missing API key: set GROQ_API_KEY or OPENAI_API_KEY")

// RefineError wraps model call failures with the pass that failed.
type RefineError struct {
	// Pass is the refinement pass ("correct" or "structure").
	Pass string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RefineError) Error() string {
	return fmt.Sprintf("refine: %s pass failed: %v", e.Pass, e.Err)
}

// Unwrap returns the underlying error.
func (e *RefineError) Unwrap() error {
	return e.Err
}

// completionAPI is the slice of the OpenAI client the refiner needs; tests
// substitute a fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures a Refiner.
type Config struct {
	APIKey      string  // Groq or OpenAI API key
	BaseURL     string  // OpenAI-compatible endpoint
	Model       string  // chat model
	Temperature float32 // sampling temperature for the correction pass
	MaxTokens   int     // completion token cap
}

// Refiner corrects OCR errors and structures note text using a hosted chat
// model.
type Refiner struct {
	client completionAPI
	config Config
	log    zerolog.Logger
}

// NewRefiner creates a refiner with configuration from the environment when
// fields are unset. The API key comes from GROQ_API_KEY, falling back to
// OPENAI_API_KEY.
func NewRefiner(cfg Config) (*Refiner, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	applyDefaults(&cfg)

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Refiner{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		log:    logger.WithComponent("refiner"),
	}, nil
}

// NewRefinerWithClient creates a refiner with an explicit client (for
// testing).
func NewRefinerWithClient(client completionAPI, cfg Config) *Refiner {
	applyDefaults(&cfg)
	return &Refiner{
		client: client,
		config: cfg,
		log:    logger.WithComponent("refiner"),
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
}

// Correct fixes OCR errors in the recognized text. Inputs too short to be
// worth a model call are returned unchanged. A response where the model
// answered conversationally instead of returning the text falls back to the
// input; transport failures are returned as errors.
func (r *Refiner) Correct(ctx context.Context, text string) (string, error) {
	if len(strings.TrimSpace(text)) < minRefinableLen {
		r.log.Debug().Msg("Text too short for correction, returning unchanged")
		return text, nil
	}

	prompt := fmt.Sprintf(`You are correcting OCR output from handwritten notes.

The OCR may have errors in spelling, chemical formulas, mathematical symbols
and formatting.

OCR Output:
%s

Instructions:
1. Fix spelling errors.
2. Preserve ALL chemical formulas (H2O, CaCl2, ΔH, ...) with subscripts as
   plain numbers.
3. Preserve mathematical symbols and equations.
4. Fix obvious OCR mistakes; keep technical terms accurate.
5. Return ONLY the corrected text - NO explanations, NO made-up content.
6. Keep references to diagrams or boxes.

Corrected text:`, text)

	out, err := r.complete(ctx, "correct",
		"You correct OCR errors in handwritten notes. Return ONLY the corrected text. Never add content that was not in the original. Preserve all technical accuracy.",
		prompt, r.config.Temperature)
	if err != nil {
		return "", err
	}
	if looksConversational(out) {
		r.log.Warn().Msg("Model answered conversationally, keeping uncorrected text")
		return text, nil
	}
	return out, nil
}

// Structure organizes corrected text into markdown: headings, bullet lists,
// preserved equations and [DIAGRAM] markers.
func (r *Refiner) Structure(ctx context.Context, text string) (string, error) {
	if len(strings.TrimSpace(text)) < minRefinableLen {
		return text, nil
	}

	prompt := fmt.Sprintf(`Structure these handwritten notes properly.

Original Notes:
%s

Instructions:
1. Add markdown headings where appropriate (# for main, ## for sub).
2. Keep all content from the original - do not add or remove.
3. Organize into logical sections.
4. Preserve all equations, formulas, and diagram references.
5. Use bullet points for lists.
6. Keep [DIAGRAM] markers.

Return structured markdown:`, text)

	out, err := r.complete(ctx, "structure",
		"You structure notes into readable markdown. Keep all original content. Do not add or invent content.",
		prompt, 0.2)
	if err != nil {
		return "", err
	}
	if looksConversational(out) {
		r.log.Warn().Msg("Model could not structure the text, keeping input")
		return text, nil
	}
	return out, nil
}

func (r *Refiner) complete(ctx context.Context, pass, system, prompt string, temperature float32) (string, error) {
	r.log.Debug().
		Str("pass", pass).
		Str("model", r.config.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending refinement request")

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.config.Model,
		Temperature: temperature,
		MaxTokens:   r.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &RefineError{Pass: pass, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &RefineError{Pass: pass, Err: errors.New("no choices in response")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// looksConversational detects the model replying to the prompt instead of
// returning the refined text.
func looksConversational(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "please provide") ||
		strings.Contains(lower, "i'd be happy")
}
