package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"notes2docx/internal/logger"
)

// DocumentAIConfig configures the Document AI backend.
type DocumentAIConfig struct {
	ProjectID        string // Google Cloud project
	Location         string // processing location, e.g. "us" or "eu"
	ProcessorID      string // OCR processor ID
	ProcessorVersion string // optional pinned processor version
}

// DocumentAIBackend recognizes handwriting with a Google Document AI OCR
// processor.
type DocumentAIBackend struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIBackend creates the backend with configuration and
// credentials from the environment.
// Requires: GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID.
// Optional: GOOGLE_CLOUD_LOCATION (default "us"), DOCUMENT_AI_PROCESSOR_VERSION.
func NewDocumentAIBackend(ctx context.Context) (*DocumentAIBackend, error) {
	const op = "NewDocumentAIBackend"

	config := DocumentAIConfig{
		ProjectID:        os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:         os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID:      os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		ProcessorVersion: os.Getenv("DOCUMENT_AI_PROCESSOR_VERSION"),
	}

	if config.ProjectID == "" {
		return nil, WrapRecognitionError(op, ErrBackendNotConfigured, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapRecognitionError(op, ErrBackendNotConfigured, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapRecognitionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapRecognitionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIBackend{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-document-ai"),
	}, nil
}

// NewDocumentAIBackendWithClient creates the backend with an explicit config
// and client (for testing).
func NewDocumentAIBackendWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIBackend {
	return &DocumentAIBackend{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-document-ai"),
	}
}

// Name returns the backend's registry name.
func (b *DocumentAIBackend) Name() string { return BackendDocumentAI }

// Recognize submits the image as a raw document to the OCR processor.
func (b *DocumentAIBackend) Recognize(ctx context.Context, img *Image) (*Result, error) {
	const op = "Recognize"
	start := time.Now()

	req := &documentaipb.ProcessRequest{
		Name: b.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  img.Data,
				MimeType: img.MIME,
			},
		},
	}

	resp, err := b.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}
	if resp.Document == nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "no document in response")
	}

	doc := resp.Document

	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)
	for _, page := range doc.Pages {
		if layout := page.GetLayout(); layout != nil && layout.Confidence > 0 {
			confidenceSum += layout.Confidence
			confidenceCount++
		}
		for _, lang := range page.GetDetectedLanguages() {
			if lang.LanguageCode != "" {
				languageSet[lang.LanguageCode] = true
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
		Text:          strings.TrimSpace(doc.Text),
		Method:        BackendDocumentAI,
		Confidence:    confidence,
		LanguageCodes: languages,
		ProcessedAt:   time.Now(),
		Duration:      time.Since(start),
	}, nil
}

// processorName constructs the full processor resource name.
func (b *DocumentAIBackend) processorName() string {
	if b.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			b.config.ProjectID, b.config.Location, b.config.ProcessorID, b.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		b.config.ProjectID, b.config.Location, b.config.ProcessorID)
}

// Close releases the underlying API client.
func (b *DocumentAIBackend) Close() error {
	return b.client.Close()
}
