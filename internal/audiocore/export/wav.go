package export

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/errors"
)

// WAVExporter writes AudioOutput's accumulated signal to a WAV file via
// go-audio/wav, the same encoder cmd/voxgraph's one-shot writeWAV uses.
type WAVExporter struct{}

// NewWAVExporter creates a new WAV exporter.
func NewWAVExporter() *WAVExporter {
	return &WAVExporter{}
}

// ExportToFile exports audio data to a WAV file under config.OutputPath,
// writing to a temporary file first and renaming into place so a reader
// never observes a partial file.
func (w *WAVExporter) ExportToFile(ctx context.Context, audioData *audiocore.AudioData, config *Config) (string, error) {
	if err := w.ValidateConfig(config); err != nil {
		return "", err
	}

	fileName := GenerateFileName(config.FileNameTemplate, audioData.SourceID, audioData.Timestamp)
	filePath := filepath.Join(config.OutputPath, fileName)

	if err := os.MkdirAll(config.OutputPath, 0o755); err != nil {
		return "", errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_directory").
			Context("path", config.OutputPath).
			Build()
	}

	tempPath := filePath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return "", errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_file").
			Context("path", tempPath).
			Build()
	}

	success := false
	defer func() {
		_ = file.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if err := w.ExportToWriter(ctx, audioData, file, config); err != nil {
		return "", err
	}

	if err := file.Close(); err != nil {
		return "", errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "close_temp_file").
			Build()
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		return "", errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "rename_export_file").
			Context("from", tempPath).
			Context("to", filePath).
			Build()
	}

	success = true
	return filePath, nil
}

// ExportToWriter encodes audio data as WAV into writer via
// go-audio/wav.NewEncoder, which seeks back after the PCM payload to
// patch the RIFF/data chunk sizes -- writer must be an io.WriteSeeker,
// not a bare io.Writer.
func (w *WAVExporter) ExportToWriter(ctx context.Context, audioData *audiocore.AudioData, writer io.WriteSeeker, config *Config) error {
	select {
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component("audiocore").
			Category(errors.CategorySystem).
			Context("operation", "wav_export_cancelled").
			Build()
	default:
	}

	if audioData.Format.BitDepth != 16 {
		return errors.Newf("WAV export currently only supports 16-bit audio, got %d-bit", audioData.Format.BitDepth).
			Component("audiocore").
			Category(errors.CategoryValidation).
			Context("bit_depth", audioData.Format.BitDepth).
			Build()
	}

	enc := wav.NewEncoder(writer, audioData.Format.SampleRate, audioData.Format.BitDepth, audioData.Format.Channels, 1)

	pcm := audioData.Buffer
	ints := make([]int, len(pcm)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	buf := &audio.IntBuffer{
		Data: ints,
		Format: &audio.Format{
			SampleRate:  audioData.Format.SampleRate,
			NumChannels: audioData.Format.Channels,
		},
		SourceBitDepth: audioData.Format.BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav_data").
			Build()
	}

	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component("audiocore").
			Category(errors.CategoryFileIO).
			Context("operation", "close_wav_encoder").
			Build()
	}

	return nil
}

// ValidateConfig validates the export configuration.
func (w *WAVExporter) ValidateConfig(config *Config) error {
	return ValidateConfig(config)
}
