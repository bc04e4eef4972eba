package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"notes2docx/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "notes2docx",
	Short: "Convert photos of handwritten notes into formatted documents",
	Long: `notes2docx turns a photo of handwritten notes into an editable document.

Recognition tries a prioritized chain of backends: a hosted vision LLM
(Groq), Google Cloud Vision, Google Document AI, and finally a local
Tesseract install. The first backend that produces usable text wins. The
raw transcription is then optionally cleaned up and structured by a hosted
language model before being written as .docx, .html, or .md.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("notes2docx: convert handwritten notes to documents")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext creates a command context canceled on SIGINT/SIGTERM.
// Deadlines are a per-backend concern handled inside the selector.
func signalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// resolveImagePath falls back to the uploads directory for relative paths
// that do not resolve on their own, matching where the web front end drops
// incoming photos.
func resolveImagePath(path, uploadsDir string) string {
	if filepath.IsAbs(path) || uploadsDir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	candidate := filepath.Join(uploadsDir, path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// validateImageFile checks that the path exists, is a regular non-empty
// file, and warns on unexpected extensions.
func validateImageFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing image file")
			return nil, fmt.Errorf("permission denied accessing image file: %s", path)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !info.Mode().IsRegular() {
		log.Error().Str("file", path).Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		log.Error().Str("file", path).Msg("Image file is empty")
		return nil, fmt.Errorf("image file is empty: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".tif", ".tiff", ".bmp":
	default:
		log.Warn().
			Str("file", path).
			Str("extension", ext).
			Msg("Unexpected image file extension")
	}

	return info, nil
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
