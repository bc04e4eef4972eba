package ocr

import (
	"errors"
	"fmt"
	"strings"
)

// Common recognition errors
var (
	// ErrImageTooLarge is returned when the input image exceeds the maximum
	// size accepted for recognition (20MB).
	ErrImageTooLarge = errors.New("image exceeds the maximum size limit (20MB)")

	// ErrInvalidImage is returned when the input is not a supported image.
	ErrInvalidImage = errors.New("invalid or unsupported image file")

	// ErrMissingAPIKey is returned when the vision LLM backend has no API key
	// configured (GROQ_API_KEY or OPENAI_API_KEY).
	ErrMissingAPIKey = errors.New("missing API key: set GROQ_API_KEY or OPENAI_API_KEY")

	// ErrMissingCredentials is returned when no Google Cloud credentials are
	// configured for the vision or document-ai backends.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrBackendNotConfigured is returned when a backend lacks required
	// configuration (e.g. no Document AI processor ID).
	ErrBackendNotConfigured = errors.New("backend is not configured")

	// ErrUnknownBackend is returned when a backend name is not registered.
	ErrUnknownBackend = errors.New("unknown recognition backend")

	// ErrNoUsableText is returned when a backend completes but produces
	// empty or too-short text.
	ErrNoUsableText = errors.New("backend produced no usable text")

	// ErrRecognitionFailed is returned when a backend call fails outright.
	ErrRecognitionFailed = errors.New("recognition failed")
)

// RecognitionError wraps errors with context about the failed operation.
type RecognitionError struct {
	// Op is the operation that failed (e.g. "Recognize", "LoadImage").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *RecognitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapRecognitionError wraps an error as a RecognitionError if it isn't one.
func WrapRecognitionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return err
	}

	return &RecognitionError{Op: op, Err: err, Details: details}
}

// BackendAttempt records one backend's failure during selection.
type BackendAttempt struct {
	Backend string
	Err     error
}

// ExhaustedError is returned by the selector when every configured backend
// failed. It enumerates each attempted backend with its failure reason.
type ExhaustedError struct {
	Attempts []BackendAttempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all recognition backends failed")
	for _, a := range e.Attempts {
		b.WriteString(fmt.Sprintf("\n  %s: %v", a.Backend, a.Err))
	}
	return b.String()
}

// Unwrap exposes the per-backend errors for errors.Is / errors.As matching.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
