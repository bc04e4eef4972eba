package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"notes2docx/internal/logger"
)

// GoogleVisionBackend recognizes handwriting with Google Cloud Vision's
// document text detection.
type GoogleVisionBackend struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionBackend creates the backend with credentials from the
// environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path or
// GOOGLE_CREDENTIALS JSON; application default credentials are the fallback.
func NewGoogleVisionBackend(ctx context.Context) (*GoogleVisionBackend, error) {
	const op = "NewGoogleVisionBackend"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapRecognitionError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapRecognitionError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapRecognitionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionBackend{
		client: client,
		log:    logger.WithComponent("ocr-google-vision"),
	}, nil
}

// NewGoogleVisionBackendWithClient creates the backend with an explicit
// client (for testing).
func NewGoogleVisionBackendWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionBackend {
	return &GoogleVisionBackend{
		client: client,
		log:    logger.WithComponent("ocr-google-vision"),
	}
}

// Name returns the backend's registry name.
func (b *GoogleVisionBackend) Name() string { return BackendGoogleVision }

// Recognize runs DOCUMENT_TEXT_DETECTION over the image bytes.
func (b *GoogleVisionBackend) Recognize(ctx context.Context, img *Image) (*Result, error) {
	const op = "Recognize"
	start := time.Now()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img.Data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := b.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "no response from Vision API")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API error: %s", annotation.Error.Message))
	}
	if annotation.FullTextAnnotation == nil {
		return nil, WrapRecognitionError(op, ErrNoUsableText, "no text annotation in response")
	}

	result := b.processAnnotation(annotation.FullTextAnnotation)
	result.ProcessedAt = time.Now()
	result.Duration = result.ProcessedAt.Sub(start)
	return result, nil
}

// processAnnotation flattens the full text annotation into a Result,
// averaging block confidences and collecting detected languages.
func (b *GoogleVisionBackend) processAnnotation(annotation *visionpb.TextAnnotation) *Result {
	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)

	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			if block.Confidence > 0 {
				confidenceSum += block.Confidence
				confidenceCount++
			}
		}
		if page.Property != nil {
			for _, lang := range page.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languageSet[lang.LanguageCode] = true
				}
			}
		}
	}

	var confidence float32
	if confidenceCount > 0 {
		confidence = confidenceSum / float32(confidenceCount)
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}

	return &Result{
		Text:          strings.TrimSpace(annotation.Text),
		Method:        BackendGoogleVision,
		Confidence:    confidence,
		LanguageCodes: languages,
	}
}

// Close releases the underlying API client.
func (b *GoogleVisionBackend) Close() error {
	return b.client.Close()
}
