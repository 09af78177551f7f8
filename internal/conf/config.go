// Package conf loads and validates the pipeline's runtime configuration.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// RotationType controls how the ambient log file is rotated.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig configures the lumberjack-backed file logger.
type LogConfig struct {
	Rotation RotationType `mapstructure:"rotation" yaml:"rotation"`
	MaxSize  int64        `mapstructure:"maxsize"  yaml:"maxsize"` // bytes
	Level    string       `mapstructure:"level"    yaml:"level"`
}

// AudioConfig is spec.md §4.F's "audio" option group.
type AudioConfig struct {
	SampleRate   int `mapstructure:"sample_rate"   yaml:"sample_rate"`
	FrameSize    int `mapstructure:"frame_size"    yaml:"frame_size"`
	ChannelCount int `mapstructure:"channel_count" yaml:"channel_count"`
	BufferSize   int `mapstructure:"buffer_size"   yaml:"buffer_size"`
}

// F0Algorithm selects the external F0 extractor's internal algorithm.
type F0Algorithm int

const (
	F0AlgorithmPeriodicitySearch F0Algorithm = 0
	F0AlgorithmAutocorrelation   F0Algorithm = 1
)

// F0Config is spec.md §4.F's "f0" option group.
type F0Config struct {
	FramePeriodMs float64     `mapstructure:"frame_period_ms" yaml:"frame_period_ms"`
	F0Floor       float64     `mapstructure:"f0_floor"        yaml:"f0_floor"`
	F0Ceil        float64     `mapstructure:"f0_ceil"         yaml:"f0_ceil"`
	Algorithm     F0Algorithm `mapstructure:"algorithm"       yaml:"algorithm"`
}

// SpectrumConfig is spec.md §4.F's "spectrum" option group.
type SpectrumConfig struct {
	Q1      float64 `mapstructure:"q1"       yaml:"q1"`
	FFTSize int     `mapstructure:"fft_size" yaml:"fft_size"`
}

// AperiodicityConfig is spec.md §4.F's "aperiodicity" option group.
type AperiodicityConfig struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// SynthesisConfig is spec.md §4.F's "synthesis" option group.
type SynthesisConfig struct {
	EnablePostfilter bool    `mapstructure:"enable_postfilter" yaml:"enable_postfilter"`
	MaxDurationSec   float64 `mapstructure:"max_duration_sec"  yaml:"max_duration_sec"`
}

// OptimizationConfig is spec.md §4.F's "optimization" option group.
type OptimizationConfig struct {
	EnableNodeFusion        bool `mapstructure:"enable_node_fusion"        yaml:"enable_node_fusion"`
	EnableMemoryReuse       bool `mapstructure:"enable_memory_reuse"       yaml:"enable_memory_reuse"`
	EnableSIMD              bool `mapstructure:"enable_simd"               yaml:"enable_simd"`
	EnableParallelExecution bool `mapstructure:"enable_parallel_execution" yaml:"enable_parallel_execution"`
	MaxThreadCount          int  `mapstructure:"max_thread_count"          yaml:"max_thread_count"` // 0 = auto
}

// MemoryConfig is spec.md §4.F's "memory" option group (arena sizing).
type MemoryConfig struct {
	MemoryPoolSize       int  `mapstructure:"memory_pool_size"       yaml:"memory_pool_size"`
	EnableMemoryTracking bool `mapstructure:"enable_memory_tracking" yaml:"enable_memory_tracking"`
	AlignmentBytes       int  `mapstructure:"alignment_bytes"        yaml:"alignment_bytes"`
}

// PerformanceConfig is spec.md §4.F's "performance" option group.
type PerformanceConfig struct {
	EnableProfiling        bool   `mapstructure:"enable_profiling"         yaml:"enable_profiling"`
	EnableTimingAnalysis   bool   `mapstructure:"enable_timing_analysis"   yaml:"enable_timing_analysis"`
	EnableMemoryProfiling  bool   `mapstructure:"enable_memory_profiling"  yaml:"enable_memory_profiling"`
	EnableCPUProfiling     bool   `mapstructure:"enable_cpu_profiling"     yaml:"enable_cpu_profiling"`
	ProfileOutputDir       string `mapstructure:"profile_output_dir"       yaml:"profile_output_dir"`
	SampleWindow           int    `mapstructure:"sample_window"            yaml:"sample_window"`
	RealtimeBudgetMs       int    `mapstructure:"realtime_budget_ms"       yaml:"realtime_budget_ms"`
	WarnConsecutive        int    `mapstructure:"warn_consecutive"         yaml:"warn_consecutive"`
	RecoverConsecutive     int    `mapstructure:"recover_consecutive"      yaml:"recover_consecutive"`
	PrometheusEnabled      bool   `mapstructure:"prometheus_enabled"       yaml:"prometheus_enabled"`
	ReportPath             string `mapstructure:"report_path"              yaml:"report_path"`
	MemoryThresholdBytes   int64  `mapstructure:"memory_threshold_bytes"   yaml:"memory_threshold_bytes"`
}

// DebugConfig is spec.md §4.F's "debug" option group.
type DebugConfig struct {
	EnableDebugOutput   bool   `mapstructure:"enable_debug_output"   yaml:"enable_debug_output"`
	DebugOutputDir      string `mapstructure:"debug_output_dir"      yaml:"debug_output_dir"`
	EnableVerboseLogging bool  `mapstructure:"enable_verbose_logging" yaml:"enable_verbose_logging"`
	HTTPAddr            string `mapstructure:"http_addr"             yaml:"http_addr"`
}

// PipelineConfig is the top-level configuration for a pipeline run,
// covering every option group spec.md §4.F names.
type PipelineConfig struct {
	Audio               AudioConfig         `mapstructure:"audio"               yaml:"audio"`
	F0                  F0Config            `mapstructure:"f0"                  yaml:"f0"`
	Spectrum            SpectrumConfig      `mapstructure:"spectrum"            yaml:"spectrum"`
	Aperiodicity        AperiodicityConfig  `mapstructure:"aperiodicity"        yaml:"aperiodicity"`
	Synthesis           SynthesisConfig     `mapstructure:"synthesis"           yaml:"synthesis"`
	Optimization        OptimizationConfig  `mapstructure:"optimization"        yaml:"optimization"`
	Memory              MemoryConfig        `mapstructure:"memory"              yaml:"memory"`
	Performance         PerformanceConfig   `mapstructure:"performance"         yaml:"performance"`
	Debug               DebugConfig         `mapstructure:"debug"               yaml:"debug"`
	StreamingQueueDepth int                 `mapstructure:"streaming_queue_depth" yaml:"streaming_queue_depth"`
	TimeoutSeconds      float64             `mapstructure:"timeout_seconds"      yaml:"timeout_seconds"`
	Log                 LogConfig           `mapstructure:"log"                  yaml:"log"`
}

// Default returns the baseline configuration used when no file is found.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Audio: AudioConfig{
			SampleRate:   44100,
			FrameSize:    1024,
			ChannelCount: 1,
			BufferSize:   4096,
		},
		F0: F0Config{
			FramePeriodMs: 5.0,
			F0Floor:       71.0,
			F0Ceil:        800.0,
			Algorithm:     F0AlgorithmPeriodicitySearch,
		},
		Spectrum: SpectrumConfig{
			Q1:      -0.15,
			FFTSize: 2048,
		},
		Aperiodicity: AperiodicityConfig{
			Threshold: 0.85,
		},
		Synthesis: SynthesisConfig{
			EnablePostfilter: false,
			MaxDurationSec:   60,
		},
		Optimization: OptimizationConfig{
			EnableNodeFusion:        true,
			EnableMemoryReuse:       true,
			EnableSIMD:              true,
			EnableParallelExecution: true,
			MaxThreadCount:          0,
		},
		Memory: MemoryConfig{
			MemoryPoolSize:       16 << 20,
			EnableMemoryTracking: true,
			AlignmentBytes:       32,
		},
		Performance: PerformanceConfig{
			EnableProfiling:      true,
			EnableTimingAnalysis: true,
			SampleWindow:         256,
			RealtimeBudgetMs:     1000,
			WarnConsecutive:      3,
			RecoverConsecutive:   5,
			ReportPath:           "logs/pipeline_report.csv",
			MemoryThresholdBytes: 512 << 20,
		},
		Debug: DebugConfig{
			DebugOutputDir: "logs/debug",
			HTTPAddr:       "",
		},
		StreamingQueueDepth: 64,
		TimeoutSeconds:      30,
		Log: LogConfig{
			Rotation: RotationSize,
			MaxSize:  100 << 20,
			Level:    "info",
		},
	}
}

// Load reads configuration from path, writing out the default file if it
// doesn't yet exist, and overlays any VOXGRAPH_-prefixed environment
// variables on top (e.g. VOXGRAPH_AUDIO_SAMPLE_RATE).
func Load(path string) (*PipelineConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("VOXGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeDefault(path string, cfg *PipelineConfig) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("audio", cfg.Audio)
	v.Set("f0", cfg.F0)
	v.Set("spectrum", cfg.Spectrum)
	v.Set("aperiodicity", cfg.Aperiodicity)
	v.Set("synthesis", cfg.Synthesis)
	v.Set("optimization", cfg.Optimization)
	v.Set("memory", cfg.Memory)
	v.Set("performance", cfg.Performance)
	v.Set("debug", cfg.Debug)
	v.Set("streaming_queue_depth", cfg.StreamingQueueDepth)
	v.Set("timeout_seconds", cfg.TimeoutSeconds)
	v.Set("log", cfg.Log)

	return v.WriteConfigAs(path)
}
