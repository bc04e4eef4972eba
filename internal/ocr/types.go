// Package ocr provides handwriting recognition over a set of interchangeable
// backends.
//
// A Backend wraps one recognition method: a remote vision LLM, Google Cloud
// Vision, Google Document AI, or a local Tesseract install. Backends are
// registered in a process-scoped Registry that instantiates handles lazily on
// first use and keeps them for the lifetime of the process. The Selector
// walks the configured backend order and returns the first usable result.
//
// Required Environment Variables (per backend):
//   - GROQ_API_KEY or OPENAI_API_KEY: key for the vision LLM backend
//   - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: Google Cloud
//     credentials for the vision and document-ai backends
//   - GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID: document-ai backend
//
// The tesseract backend needs no credentials but requires the Tesseract
// shared library at build and run time.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Backend names as configured in BACKEND_ORDER and reported in Result.Method.
const (
	BackendLLMVision    = "llm-vision"
	BackendGoogleVision = "google-vision"
	BackendDocumentAI   = "document-ai"
	BackendTesseract    = "tesseract"
)

const (
	// MaxImageSizeBytes is the maximum input image size accepted for
	// recognition. Remote backends reject larger payloads anyway.
	MaxImageSizeBytes = 20 * 1024 * 1024

	// MinUsableTextLen is the minimum trimmed text length a backend must
	// produce for its result to be accepted by the selector.
	MinUsableTextLen = 50
)

// Image is a single input image, immutable once loaded.
type Image struct {
	// Path is the filesystem location the image was loaded from.
	Path string

	// Data holds the raw encoded image bytes.
	Data []byte

	// MIME is the sniffed content type (e.g. "image/jpeg").
	MIME string
}

// LoadImage reads an image file from disk and sniffs its content type.
func LoadImage(path string) (*Image, error) {
	const op = "LoadImage"

	info, err := os.Stat(path)
	if err != nil {
		return nil, WrapRecognitionError(op, err, path)
	}
	if info.Size() == 0 {
		return nil, WrapRecognitionError(op, ErrInvalidImage, "file is empty")
	}
	if info.Size() > MaxImageSizeBytes {
		return nil, WrapRecognitionError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", info.Size()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapRecognitionError(op, err, "failed to read image file")
	}

	mime := http.DetectContentType(data)
	switch mime {
	case "image/jpeg", "image/png", "image/webp", "image/tiff", "image/bmp":
	default:
		return nil, WrapRecognitionError(op, ErrInvalidImage, fmt.Sprintf("unsupported content type: %s", mime))
	}

	return &Image{Path: path, Data: data, MIME: mime}, nil
}

// Result contains the text produced by a single recognition attempt.
type Result struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Method names the backend that produced the text.
	Method string `json:"method"`

	// Confidence is the backend's confidence estimate (0.0 to 1.0).
	// Zero means the backend reported no confidence.
	Confidence float32 `json:"confidence,omitempty"`

	// LanguageCodes contains the detected languages, when reported.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessedAt is the timestamp when recognition completed.
	ProcessedAt time.Time `json:"processed_at"`

	// Duration is how long the backend call took.
	Duration time.Duration `json:"duration"`
}

// Backend is one recognition method: one image in, one result out.
type Backend interface {
	// Name returns the backend's registry name.
	Name() string

	// Recognize extracts text from the image. Implementations honor ctx
	// cancellation but perform no retries of their own beyond what their
	// client library does.
	Recognize(ctx context.Context, img *Image) (*Result, error)
}
