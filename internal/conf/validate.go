package conf

import (
	"github.com/tphakala/voxgraph/internal/errors"
)

// Validate checks every field of cfg in a single flat pass. Earlier
// revisions of this validator re-entered itself recursively on the nested
// option-group structs, which meant a single bad field could validate
// twice or loop back on shared state (spec.md §9 open question); this
// version never calls itself, and performs an explicit per-field check.
func Validate(cfg *PipelineConfig) error {
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 96000 {
		return invalid("audio.sample_rate", cfg.Audio.SampleRate, "must be within 8000-96000 Hz")
	}
	if cfg.Audio.FrameSize < 64 || cfg.Audio.FrameSize > 16384 {
		return invalid("audio.frame_size", cfg.Audio.FrameSize, "must be within 64-16384 samples")
	}
	if cfg.Audio.ChannelCount != 1 {
		return invalid("audio.channel_count", cfg.Audio.ChannelCount, "only mono (1) is supported")
	}
	if cfg.Audio.BufferSize <= 0 {
		return invalid("audio.buffer_size", cfg.Audio.BufferSize, "must be positive")
	}

	if cfg.F0.FramePeriodMs <= 0 {
		return invalid("f0.frame_period_ms", cfg.F0.FramePeriodMs, "must be positive")
	}
	if cfg.F0.F0Floor < 40 {
		return invalid("f0.f0_floor", cfg.F0.F0Floor, "must be >= 40 Hz")
	}
	if cfg.F0.F0Ceil > 1100 {
		return invalid("f0.f0_ceil", cfg.F0.F0Ceil, "must be <= 1100 Hz")
	}
	if cfg.F0.F0Floor >= cfg.F0.F0Ceil {
		return invalid("f0.f0_floor", cfg.F0.F0Floor, "must be less than f0_ceil")
	}
	if cfg.F0.Algorithm != F0AlgorithmPeriodicitySearch && cfg.F0.Algorithm != F0AlgorithmAutocorrelation {
		return invalid("f0.algorithm", cfg.F0.Algorithm, "must be 0 (periodicity-search) or 1 (autocorrelation)")
	}

	if !isPowerOfTwo(cfg.Spectrum.FFTSize) || cfg.Spectrum.FFTSize < 512 {
		return invalid("spectrum.fft_size", cfg.Spectrum.FFTSize, "must be a power of two >= 512")
	}

	if cfg.Aperiodicity.Threshold < 0 || cfg.Aperiodicity.Threshold > 1 {
		return invalid("aperiodicity.threshold", cfg.Aperiodicity.Threshold, "must be within 0-1")
	}

	if cfg.Synthesis.MaxDurationSec <= 0 {
		return invalid("synthesis.max_duration_sec", cfg.Synthesis.MaxDurationSec, "must be positive")
	}

	if cfg.Optimization.MaxThreadCount < 0 {
		return invalid("optimization.max_thread_count", cfg.Optimization.MaxThreadCount, "must be >= 0 (0 = auto)")
	}

	if cfg.Memory.MemoryPoolSize <= 0 {
		return invalid("memory.memory_pool_size", cfg.Memory.MemoryPoolSize, "must be positive")
	}
	if cfg.Memory.AlignmentBytes != 16 && cfg.Memory.AlignmentBytes != 32 && cfg.Memory.AlignmentBytes != 64 {
		return invalid("memory.alignment_bytes", cfg.Memory.AlignmentBytes, "must be 16, 32, or 64")
	}

	if cfg.Performance.SampleWindow <= 0 {
		return invalid("performance.sample_window", cfg.Performance.SampleWindow, "must be positive")
	}
	if cfg.Performance.WarnConsecutive <= 0 {
		return invalid("performance.warn_consecutive", cfg.Performance.WarnConsecutive, "must be positive")
	}
	if cfg.Performance.RecoverConsecutive <= 0 {
		return invalid("performance.recover_consecutive", cfg.Performance.RecoverConsecutive, "must be positive")
	}
	if cfg.Performance.MemoryThresholdBytes <= 0 {
		return invalid("performance.memory_threshold_bytes", cfg.Performance.MemoryThresholdBytes, "must be positive")
	}

	if cfg.StreamingQueueDepth <= 0 {
		return invalid("streaming_queue_depth", cfg.StreamingQueueDepth, "must be positive")
	}
	if cfg.TimeoutSeconds <= 0 {
		return invalid("timeout_seconds", cfg.TimeoutSeconds, "must be positive")
	}

	switch cfg.Log.Rotation {
	case RotationDaily, RotationWeekly, RotationSize:
	default:
		return invalid("log.rotation", cfg.Log.Rotation, "must be daily, weekly, or size")
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func invalid(field string, value any, reason string) error {
	return errors.Newf("invalid %s=%v: %s", field, value, reason).
		Category(errors.CategoryConfiguration).
		Kind(errors.InvalidArgument).
		Context("field", field).
		Build()
}
