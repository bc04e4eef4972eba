package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notes2docx/internal/config"
	"notes2docx/internal/document"
	"notes2docx/internal/logger"
	"notes2docx/internal/ocr"
	"notes2docx/internal/pipeline"
	"notes2docx/internal/refine"
)

var convertCmd = &cobra.Command{
	Use:   "convert [image-file]",
	Short: "Convert a photo of handwritten notes into a document",
	Long: `Run the full conversion pipeline over one image: normalize the photo,
recognize the handwriting through the backend fallback chain, optionally
refine the text with a hosted language model, and write the result as a
formatted document into the outputs directory.

Backends are tried in priority order and the first one producing usable
text wins. With --local, remote API backends are never invoked.

Environment variables:
  GROQ_API_KEY                   - Hosted API key (vision LLM and refiner)
  GOOGLE_APPLICATION_CREDENTIALS - Google Cloud service account JSON path
  GOOGLE_CLOUD_PROJECT           - Google Cloud project (Document AI)
  DOCUMENT_AI_PROCESSOR_ID       - Document AI OCR processor`,
	Example: `  # Convert notes.jpg to outputs/converted_notes.docx
  notes2docx convert notes.jpg

  # Name the output and pick a format
  notes2docx convert notes.jpg -o chemistry_ch3 --format html

  # Offline: local Tesseract only, no text refinement
  notes2docx convert notes.jpg --local --no-refine

  # Print a JSON summary
  notes2docx convert notes.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "converted_notes", "Output document base name")
	convertCmd.Flags().String("format", "docx", "Output format: docx, html, or md")
	convertCmd.Flags().Bool("local", false, "Local-only mode: never invoke remote API backends")
	convertCmd.Flags().Bool("no-refine", false, "Skip the LLM correction and structuring passes")
	convertCmd.Flags().Bool("no-diagrams", false, "Skip diagram region detection")
	convertCmd.Flags().Int("timeout", 0, "Per-backend recognition timeout in seconds (default: BACKEND_TIMEOUT_SECONDS)")
	convertCmd.Flags().Bool("json", false, "Print the conversion summary as JSON")
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("convert")

	outputName, _ := cmd.Flags().GetString("output")
	formatStr, _ := cmd.Flags().GetString("format")
	localOnly, _ := cmd.Flags().GetBool("local")
	noRefine, _ := cmd.Flags().GetBool("no-refine")
	noDiagrams, _ := cmd.Flags().GetBool("no-diagrams")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	imagePath := args[0]

	format, err := document.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", imagePath).
		Str("output", outputName).
		Str("format", string(format)).
		Bool("local_only", localOnly).
		Bool("refine", !noRefine).
		Msg("Starting conversion")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	imagePath = resolveImagePath(imagePath, cfg.UploadsDir)
	if _, err := validateImageFile(imagePath, log); err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	p, err := pipeline.FromConfig(cfg, pipeline.BuildOptions{
		Options: pipeline.Options{
			Refine:         !noRefine,
			DetectDiagrams: !noDiagrams,
			Format:         format,
		},
		LocalOnly:      localOnly,
		BackendTimeout: time.Duration(timeoutSecs) * time.Second,
	})
	if err != nil {
		return handleConvertError(err)
	}

	summary, err := p.Process(ctx, imagePath, outputName)
	if err != nil {
		return handleConvertError(err)
	}

	log.Info().
		Str("output", summary.OutputPath).
		Str("method", summary.Method).
		Dur("duration", summary.Duration).
		Msg("Conversion complete")

	if jsonOutput {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON summary: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Document saved to: %s\n", summary.OutputPath)
	fmt.Printf("  Recognition method: %s\n", summary.Method)
	if summary.Confidence > 0 {
		fmt.Printf("  Confidence: %.1f%%\n", summary.Confidence*100)
	}
	fmt.Printf("  Text length: %d characters\n", summary.TextLength)
	if summary.Figures > 0 {
		fmt.Printf("  Extracted figures: %d\n", summary.Figures)
	}
	fmt.Printf("  Processing time: %v\n", summary.Duration.Round(time.Millisecond))
	return nil
}

// handleConvertError translates pipeline failures into actionable messages.
func handleConvertError(err error) error {
	var exhausted *ocr.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		var b strings.Builder
		b.WriteString("every recognition backend failed:\n")
		for _, attempt := range exhausted.Attempts {
			b.WriteString(fmt.Sprintf("  - %s: %v\n", attempt.Backend, attempt.Err))
		}
		b.WriteString("\nCheck image quality, API keys for remote backends, and the local Tesseract install.")
		return errors.New(b.String())
	case errors.Is(err, pipeline.ErrTextTooShort):
		return fmt.Errorf("no readable handwriting found: %w", err)
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB): %w", err)
	case errors.Is(err, refine.ErrMissingAPIKey):
		return fmt.Errorf("text refinement needs an API key; set GROQ_API_KEY or rerun with --no-refine")
	default:
		return err
	}
}
