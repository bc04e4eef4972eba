package ocr_test

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"notes2docx/internal/ocr"
)

// Example demonstrates running the recognition fallback chain over an image.
func Example() {
	// Load .env file (using godotenv in main)
	// This should be done in your main() function:
	//
	// if err := godotenv.Load(); err != nil {
	//     log.Printf("Warning: Could not load .env file: %v", err)
	// }

	// Create context with timeout for the whole recognition run
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Register the backends to try, in priority order. Credentials are
	// resolved from the environment when a backend is first used.
	registry := ocr.NewRegistry()
	registry.Register(ocr.BackendLLMVision, true, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewLLMVisionBackend(ocr.LLMVisionConfig{})
	})
	registry.Register(ocr.BackendTesseract, false, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewTesseractBackend(nil), nil
	})

	// Load the input image
	img, err := ocr.LoadImage("handwritten_notes.jpg")
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	// Walk the chain: first backend with usable text wins
	selector := ocr.NewSelector(registry,
		ocr.WithOrder([]string{ocr.BackendLLMVision, ocr.BackendTesseract}),
	)
	result, err := selector.Recognize(ctx, img)
	if err != nil {
		log.Fatalf("Recognition failed: %v", err)
	}

	fmt.Printf("Recognized via %s (%d characters):\n%s\n", result.Method, len(result.Text), result.Text)
}

// Example_metadata demonstrates inspecting the recognition metadata.
func Example_metadata() {
	ctx := context.Background()

	registry := ocr.NewRegistry()
	registry.Register(ocr.BackendTesseract, false, func(ctx context.Context) (ocr.Backend, error) {
		return ocr.NewTesseractBackend([]string{"eng"}), nil
	})

	img, err := ocr.LoadImage("handwritten_notes.jpg")
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	selector := ocr.NewSelector(registry, ocr.WithLocalOnly(true))
	result, err := selector.Recognize(ctx, img)
	if err != nil {
		log.Fatalf("Recognition failed: %v", err)
	}

	// Display results
	fmt.Printf("Recognition Results:\n")
	fmt.Printf("  Method: %s\n", result.Method)
	fmt.Printf("  Confidence: %.2f%%\n", result.Confidence*100)
	fmt.Printf("  Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
	fmt.Printf("  Duration: %v\n", result.Duration)
	fmt.Printf("  Processed at: %v\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Printf("\nRecognized text:\n%s\n", result.Text)
}
