package export

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.OutputPath != "clips/" {
		t.Errorf("expected default output path 'clips/', got %s", config.OutputPath)
	}

	if config.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", config.Timeout)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
		errorMsg  string
	}{
		{
			name:      "nil config",
			config:    nil,
			wantError: true,
			errorMsg:  "export config is nil",
		},
		{
			name: "empty output path",
			config: &Config{
				OutputPath:       "",
				FileNameTemplate: "test",
				Timeout:          30 * time.Second,
			},
			wantError: true,
			errorMsg:  "export output path is empty",
		},
		{
			name: "empty file name template",
			config: &Config{
				OutputPath:       "clips/",
				FileNameTemplate: "",
				Timeout:          30 * time.Second,
			},
			wantError: true,
			errorMsg:  "export file name template is empty",
		},
		{
			name: "invalid timeout",
			config: &Config{
				OutputPath:       "clips/",
				FileNameTemplate: "test",
				Timeout:          0,
			},
			wantError: true,
			errorMsg:  "invalid export timeout",
		},
		{
			name: "valid config",
			config: &Config{
				OutputPath:       "clips/",
				FileNameTemplate: "{source}_{timestamp}",
				Timeout:          30 * time.Second,
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateConfig() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil && tt.errorMsg != "" {
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			}
		})
	}
}

func TestGenerateFileName(t *testing.T) {
	timestamp := time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name      string
		template  string
		sourceID  string
		timestamp time.Time
		want      string
	}{
		{
			name:      "all placeholders",
			template:  "{source}_{date}_{time}_{timestamp}",
			sourceID:  "mic1",
			timestamp: timestamp,
			want:      "mic1_2024-01-15_14-30-45_20240115_143045.wav",
		},
		{
			name:      "source only",
			template:  "{source}",
			sourceID:  "rtsp_cam",
			timestamp: timestamp,
			want:      "rtsp_cam.wav",
		},
		{
			name:      "no placeholders",
			template:  "recording",
			sourceID:  "test",
			timestamp: timestamp,
			want:      "recording.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFileName(tt.template, tt.sourceID, tt.timestamp)
			if got != tt.want {
				t.Errorf("GenerateFileName() = %s, want %s", got, tt.want)
			}
		})
	}
}
