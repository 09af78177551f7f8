package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/tphakala/voxgraph/internal/audiocore"
)

func TestWAVExporter_ExportToWriter(t *testing.T) {
	exporter := NewWAVExporter()

	sampleRate := 48000
	duration := 1.0
	samples := int(float64(sampleRate) * duration)
	pcmData := make([]byte, samples*2) // 16-bit samples

	for i := 0; i < samples; i++ {
		value := int16((i % 100) * 327) // simple deterministic pattern
		pcmData[i*2] = byte(value)
		pcmData[i*2+1] = byte(value >> 8)
	}

	audioData := &audiocore.AudioData{
		Buffer: pcmData,
		Format: audiocore.AudioFormat{
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   16,
			Encoding:   "pcm_s16le",
		},
		Timestamp: time.Now(),
		Duration:  time.Duration(duration * float64(time.Second)),
		SourceID:  "test",
	}

	config := &Config{
		OutputPath:       t.TempDir(),
		FileNameTemplate: "writer_test",
		Timeout:          5 * time.Second,
	}

	f, err := os.Create(filepath.Join(config.OutputPath, "writer_test.wav"))
	if err != nil {
		t.Fatalf("failed to create scratch file: %v", err)
	}
	defer f.Close()

	if err := exporter.ExportToWriter(context.Background(), audioData, f, config); err != nil {
		t.Fatalf("ExportToWriter failed: %v", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("failed to rewind scratch file: %v", err)
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		t.Fatal("exported file is not a valid WAV file")
	}
	if int(decoder.SampleRate) != sampleRate {
		t.Errorf("sample rate mismatch: got %d, want %d", decoder.SampleRate, sampleRate)
	}
	if int(decoder.BitDepth) != 16 {
		t.Errorf("bit depth mismatch: got %d, want 16", decoder.BitDepth)
	}
}

func TestWAVExporter_ExportToFile(t *testing.T) {
	tempDir := t.TempDir()
	exporter := NewWAVExporter()

	audioData := &audiocore.AudioData{
		Buffer: []byte{0, 1, 2, 3, 4, 5, 6, 7}, // minimal test data
		Format: audiocore.AudioFormat{
			SampleRate: 48000,
			Channels:   1,
			BitDepth:   16,
			Encoding:   "pcm_s16le",
		},
		Timestamp: time.Now(),
		Duration:  time.Millisecond * 100,
		SourceID:  "test_source",
	}

	config := &Config{
		OutputPath:       tempDir,
		FileNameTemplate: "{source}_test",
		Timeout:          5 * time.Second,
	}

	filePath, err := exporter.ExportToFile(context.Background(), audioData, config)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Errorf("expected file not created: %s", filePath)
	}

	expectedName := "test_source_test.wav"
	if filepath.Base(filePath) != expectedName {
		t.Errorf("unexpected file name: got %s, want %s", filepath.Base(filePath), expectedName)
	}
}

func TestWAVExporter_ValidateConfig(t *testing.T) {
	exporter := NewWAVExporter()

	tests := []struct {
		name      string
		config    *Config
		wantError bool
	}{
		{
			name:      "nil config",
			config:    nil,
			wantError: true,
		},
		{
			name: "empty output path",
			config: &Config{
				OutputPath:       "",
				FileNameTemplate: "test",
				Timeout:          10 * time.Second,
			},
			wantError: true,
		},
		{
			name: "valid config",
			config: &Config{
				OutputPath:       "test/",
				FileNameTemplate: "test",
				Timeout:          10 * time.Second,
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exporter.ValidateConfig(tt.config)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateConfig() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestWAVExporter_ContextCancellation(t *testing.T) {
	exporter := NewWAVExporter()

	audioData := &audiocore.AudioData{
		Buffer: make([]byte, 1000),
		Format: audiocore.AudioFormat{
			SampleRate: 48000,
			Channels:   1,
			BitDepth:   16,
		},
	}

	config := &Config{
		OutputPath:       t.TempDir(),
		FileNameTemplate: "cancel_test",
		Timeout:          5 * time.Second,
	}

	f, err := os.Create(filepath.Join(config.OutputPath, "cancel_test.wav"))
	if err != nil {
		t.Fatalf("failed to create scratch file: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := exporter.ExportToWriter(ctx, audioData, f, config); err == nil {
		t.Error("expected error for cancelled context")
	}
}
