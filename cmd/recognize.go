package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"notes2docx/internal/config"
	"notes2docx/internal/logger"
	"notes2docx/internal/ocr"
	"notes2docx/internal/pipeline"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image-file]",
	Short: "Extract raw text from an image through the backend fallback chain",
	Long: `Run only the recognition stage over one image and print the raw text.

This is the debugging surface for the fallback chain: it reports which
backend produced the text and at what confidence, without refinement or
document generation.`,
	Example: `  # Extract text to stdout
  notes2docx recognize notes.jpg

  # Save extracted text to file
  notes2docx recognize notes.jpg -o extracted.txt

  # Include metadata and output as JSON
  notes2docx recognize notes.jpg --metadata --json -o result.json

  # Local Tesseract only
  notes2docx recognize notes.jpg --local`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

// RecognizeOutput represents the JSON output structure when --json is used
type RecognizeOutput struct {
	Text          string    `json:"text"`
	Method        string    `json:"method"`
	Confidence    float32   `json:"confidence,omitempty"`
	LanguageCodes []string  `json:"language_codes,omitempty"`
	ProcessedAt   time.Time `json:"processed_at,omitempty"`
	Duration      string    `json:"duration,omitempty"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	recognizeCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
	recognizeCmd.Flags().Bool("local", false, "Local-only mode: never invoke remote API backends")
	recognizeCmd.Flags().Int("timeout", 0, "Per-backend recognition timeout in seconds (default: BACKEND_TIMEOUT_SECONDS)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("recognize")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	localOnly, _ := cmd.Flags().GetBool("local")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Bool("local_only", localOnly).
		Msg("Starting recognition")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	imagePath = resolveImagePath(imagePath, cfg.UploadsDir)
	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	selector := newSelectorFromConfig(cfg, localOnly, time.Duration(timeoutSecs)*time.Second)

	img, err := ocr.LoadImage(imagePath)
	if err != nil {
		return err
	}

	result, err := selector.Recognize(ctx, img)
	if err != nil {
		return handleConvertError(err)
	}

	log.Info().
		Str("method", result.Method).
		Float32("confidence", result.Confidence).
		Int("text_length", len(result.Text)).
		Dur("duration", result.Duration).
		Msg("Recognition complete")

	return writeRecognizeOutput(result, fileInfo, outputPath, jsonOutput, includeMetadata, log)
}

// newSelectorFromConfig builds the standard backend registry and selector.
// A zero timeout falls back to the configured BACKEND_TIMEOUT_SECONDS.
func newSelectorFromConfig(cfg *config.Config, localOnly bool, timeout time.Duration) *ocr.Selector {
	if timeout == 0 {
		timeout = time.Duration(cfg.BackendTimeoutSecs) * time.Second
	}
	return ocr.NewSelector(pipeline.BackendRegistry(cfg),
		ocr.WithOrder(cfg.BackendOrder),
		ocr.WithTimeout(timeout),
		ocr.WithLocalOnly(localOnly),
	)
}

// writeRecognizeOutput formats and writes the recognition result.
func writeRecognizeOutput(result *ocr.Result, fileInfo os.FileInfo, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		out := RecognizeOutput{
			Text:          result.Text,
			Method:        result.Method,
			Confidence:    result.Confidence,
			LanguageCodes: result.LanguageCodes,
			ProcessedAt:   result.ProcessedAt,
			Duration:      result.Duration.String(),
			FileName:      filepath.Base(fileInfo.Name()),
			FileSize:      fileInfo.Size(),
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = data
	} else {
		var output strings.Builder
		if includeMetadata {
			output.WriteString(fmt.Sprintf("=== Recognition Results for %s ===\n", filepath.Base(fileInfo.Name())))
			output.WriteString(fmt.Sprintf("File size: %d bytes\n", fileInfo.Size()))
			output.WriteString(fmt.Sprintf("Method: %s\n", result.Method))
			if result.Confidence > 0 {
				output.WriteString(fmt.Sprintf("Confidence: %.1f%%\n", result.Confidence*100))
			}
			if len(result.LanguageCodes) > 0 {
				output.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(result.LanguageCodes, ", ")))
			}
			output.WriteString(fmt.Sprintf("Processing time: %v\n", result.Duration))
			output.WriteString(fmt.Sprintf("Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339)))
			output.WriteString("\n=== Extracted Text ===\n\n")
		}
		output.WriteString(result.Text)
		outputData = []byte(output.String())
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("Recognition results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(outputData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !jsonOutput {
		fmt.Println()
	}
	return nil
}
