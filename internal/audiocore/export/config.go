// Package export writes AudioOutput's synthesized signal to disk as
// WAV, the one sink format spec.md §1 scopes this engine to (compressed
// formats and their codec negotiation are explicitly out of scope).
package export

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/voxgraph/internal/errors"
)

// Config contains configuration for a WAV export.
type Config struct {
	// OutputPath is the directory where exported files will be saved.
	OutputPath string

	// FileNameTemplate is a template for generating file names.
	// Supports: {source}, {date}, {time}, {timestamp}
	FileNameTemplate string

	// EnableDebug enables debug logging.
	EnableDebug bool

	// Timeout bounds the export operation.
	Timeout time.Duration
}

// DefaultConfig returns a default export configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputPath:       "clips/",
		FileNameTemplate: "{source}_{timestamp}",
		Timeout:          30 * time.Second,
	}
}

// ValidateConfig validates an export configuration.
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.Newf("export config is nil").
			Component("audiocore").
			Category(errors.CategoryValidation).
			Build()
	}

	if config.OutputPath == "" {
		return errors.Newf("export output path is empty").
			Component("audiocore").
			Category(errors.CategoryValidation).
			Build()
	}

	if config.FileNameTemplate == "" {
		return errors.Newf("export file name template is empty").
			Component("audiocore").
			Category(errors.CategoryValidation).
			Build()
	}

	if config.Timeout <= 0 {
		return errors.Newf("invalid export timeout: %v", config.Timeout).
			Component("audiocore").
			Category(errors.CategoryValidation).
			Context("timeout", config.Timeout.String()).
			Build()
	}

	return nil
}

// GenerateFileName generates a .wav file name from template, replacing
// its {source}/{date}/{time}/{timestamp} placeholders.
func GenerateFileName(template, sourceID string, timestamp time.Time) string {
	fileName := template

	fileName = strings.ReplaceAll(fileName, "{source}", sourceID)
	fileName = strings.ReplaceAll(fileName, "{date}", timestamp.Format("2006-01-02"))
	fileName = strings.ReplaceAll(fileName, "{time}", timestamp.Format("15-04-05"))
	fileName = strings.ReplaceAll(fileName, "{timestamp}", timestamp.Format("20060102_150405"))

	fileName += ".wav"

	return filepath.Clean(fileName)
}
