package ocr

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"notes2docx/internal/logger"
)

const (
	// DefaultLLMVisionBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultLLMVisionBaseURL = "https://api.groq.com/openai/v1"

	// DefaultLLMVisionModel is the hosted vision model used for handwriting
	// transcription.
	DefaultLLMVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"

	// llmVisionConfidence is the fixed confidence assigned to vision LLM
	// transcriptions, which report no score of their own.
	llmVisionConfidence = 0.95
)

// visionPrompt instructs the hosted vision model to transcribe everything
// visible, keeping structure and marking diagrams in-line.
const visionPrompt = `Extract ALL text from this image of handwritten notes.

Rules:
1. Transcribe EXACTLY what you see, including all text, equations, and formulas.
2. Preserve structure: headings, bullet points, boxes.
3. Use markdown formatting (# for headings, * for bullets).
4. Write subscripts as plain numbers (H2O not H₂O).
5. Preserve all mathematical symbols and equations.
6. For diagrams or graphs, mark their location with [DIAGRAM: brief description],
   describing axes, labels, and key features.
7. Maintain reading order: top to bottom, left to right.
8. Do not skip anything; transcribe everything visible.
9. Do not use LaTeX. Write formulas in plain text: fractions as a / b,
   powers as x^2, subscripts as I_DC.

Output only the transcribed text with diagram descriptions.`

// LLMVisionConfig configures the hosted vision LLM backend.
type LLMVisionConfig struct {
	APIKey      string  // Groq or OpenAI API key
	BaseURL     string  // OpenAI-compatible endpoint
	Model       string  // vision-capable chat model
	MaxTokens   int     // completion token cap
	Temperature float32 // sampling temperature
}

// LLMVisionBackend recognizes handwriting with a hosted multimodal chat
// model behind an OpenAI-compatible API.
type LLMVisionBackend struct {
	client *openai.Client
	config LLMVisionConfig
	log    zerolog.Logger
}

// NewLLMVisionBackend creates the backend with configuration from the
// environment. The API key comes from GROQ_API_KEY, falling back to
// OPENAI_API_KEY.
func NewLLMVisionBackend(cfg LLMVisionConfig) (*LLMVisionBackend, error) {
	const op = "NewLLMVisionBackend"

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, WrapRecognitionError(op, ErrMissingAPIKey, "no API key in environment")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLLMVisionBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMVisionModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &LLMVisionBackend{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		log:    logger.WithComponent("ocr-llm-vision"),
	}, nil
}

// NewLLMVisionBackendWithClient creates the backend with an explicit client
// (for testing).
func NewLLMVisionBackendWithClient(client *openai.Client, cfg LLMVisionConfig) *LLMVisionBackend {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMVisionModel
	}
	return &LLMVisionBackend{
		client: client,
		config: cfg,
		log:    logger.WithComponent("ocr-llm-vision"),
	}
}

// Name returns the backend's registry name.
func (b *LLMVisionBackend) Name() string { return BackendLLMVision }

// Recognize sends the image to the vision model as a data URL and returns
// the transcription.
func (b *LLMVisionBackend) Recognize(ctx context.Context, img *Image) (*Result, error) {
	const op = "Recognize"
	start := time.Now()

	dataURL := "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	b.log.Debug().
		Str("model", b.config.Model).
		Int("image_bytes", len(img.Data)).
		Msg("Sending image to vision model")

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.config.Model,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "vision model call failed: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "no choices in vision model response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	b.log.Debug().
		Int("text_length", len(text)).
		Msg("Vision model transcription complete")

	return &Result{
		Text:        text,
		Method:      BackendLLMVision,
		Confidence:  llmVisionConfidence,
		ProcessedAt: time.Now(),
		Duration:    time.Since(start),
	}, nil
}
