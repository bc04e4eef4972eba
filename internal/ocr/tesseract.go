package ocr

import (
	"context"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"notes2docx/internal/logger"
)

// TesseractBackend recognizes text with a local Tesseract install via
// gosseract. It is the offline last resort of the fallback chain; accuracy
// on dense handwriting is limited but it needs no credentials.
type TesseractBackend struct {
	languages     []string
	clientFactory func() *gosseract.Client
	log           zerolog.Logger
}

// NewTesseractBackend creates the local backend. Languages default to
// English trained data.
func NewTesseractBackend(languages []string) *TesseractBackend {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractBackend{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
		log:           logger.WithComponent("ocr-tesseract"),
	}
}

// Name returns the backend's registry name.
func (b *TesseractBackend) Name() string { return BackendTesseract }

// Recognize runs Tesseract over the image bytes. A fresh client is used per
// call; gosseract clients are cheap and not safe for reuse across images.
func (b *TesseractBackend) Recognize(ctx context.Context, img *Image) (*Result, error) {
	const op = "Recognize"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, WrapRecognitionError(op, err, "canceled before tesseract run")
	}

	client := b.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(img.Data); err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "set image: "+err.Error())
	}
	if err := client.SetLanguage(b.languages...); err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "set languages: "+err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "recognize text: "+err.Error())
	}

	confidence := wordConfidence(client)

	b.log.Debug().
		Int("text_length", len(text)).
		Float32("confidence", confidence).
		Msg("Tesseract recognition complete")

	return &Result{
		Text:          strings.TrimSpace(text),
		Method:        BackendTesseract,
		Confidence:    confidence,
		LanguageCodes: b.languages,
		ProcessedAt:   time.Now(),
		Duration:      time.Since(start),
	}, nil
}

// wordConfidence averages per-word confidences reported by Tesseract.
func wordConfidence(client *gosseract.Client) float32 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence / 100.0
	}
	return float32(sum / float64(len(boxes)))
}
