// Package monitor provides per-stage performance monitoring for a
// pipeline run: timing, memory, CPU, throughput, and quality-score
// sampling, with threshold-based alerts and CSV/text reporting.
package monitor

import (
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/logging"
)

// Stage is one of the fixed pipeline stages the monitor tracks.
type Stage int

const (
	StageInitialization Stage = iota
	StageParameterParsing
	StageAudioInput
	StageF0Extraction
	StageSpectrumAnalysis
	StageAperiodicityAnalysis
	StageParameterMerge
	StageSynthesis
	StageAudioOutput
	StageCleanup
	StageTotal

	stageCount = StageTotal + 1
)

func (s Stage) String() string {
	switch s {
	case StageInitialization:
		return "Initialization"
	case StageParameterParsing:
		return "ParameterParsing"
	case StageAudioInput:
		return "AudioInput"
	case StageF0Extraction:
		return "F0Extraction"
	case StageSpectrumAnalysis:
		return "SpectrumAnalysis"
	case StageAperiodicityAnalysis:
		return "AperiodicityAnalysis"
	case StageParameterMerge:
		return "ParameterMerge"
	case StageSynthesis:
		return "Synthesis"
	case StageAudioOutput:
		return "AudioOutput"
	case StageCleanup:
		return "Cleanup"
	case StageTotal:
		return "Total"
	default:
		return "Unknown"
	}
}

// sample is one stage_end observation.
type sample struct {
	execTime time.Duration
	memBytes int64
	cpuRatio float64
	quality  float64
	at       time.Time
}

// ring is a fixed-capacity ring buffer of the last N samples for one
// stage, generalizing the teacher's per-resource AlertState into a
// per-stage rolling-statistics window.
type ring struct {
	buf  []sample
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]sample, capacity)}
}

func (r *ring) push(s sample) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) samples() []sample {
	if !r.full {
		return append([]sample(nil), r.buf[:r.next]...)
	}
	out := make([]sample, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// StageStats summarizes a stage's rolling sample window.
type StageStats struct {
	Stage         Stage
	Count         int
	MinExecTime   time.Duration
	MaxExecTime   time.Duration
	MeanExecTime  time.Duration
	StdDevExecTime time.Duration
	MedianExecTime time.Duration
	P95ExecTime   time.Duration
	P99ExecTime   time.Duration
	LastMemBytes  int64
	LastCPURatio  float64
	MeanQuality   float64
	RealtimeFactor float64
}

// stageState tracks the active stage_begin timestamp and alert hysteresis
// counters, the direct analogue of the teacher's AlertState.
type stageState struct {
	begun           bool
	beginAt         time.Time
	ring            *ring
	consecutiveWarn int
	inAlert         bool
	samplesProcessed int64
	sampleRateHz    int
}

// Monitor records per-stage performance samples and emits logged alerts
// when a stage's timing or memory exceeds configured thresholds. All
// mutating methods acquire mu, the only mutex in the pipeline (spec.md
// §5 "The performance monitor is the only object guarded by a mutex").
type Monitor struct {
	mu     sync.Mutex
	cfg    conf.PerformanceConfig
	states [stageCount]*stageState
	logger *slog.Logger

	csvPath string
	csvFile *os.File
}

// New constructs a Monitor from the performance option group. sampleRate
// is used to compute each stage's realtime factor.
func New(cfg conf.PerformanceConfig, sampleRate int) *Monitor {
	logger := logging.ForService("monitor")
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:    cfg,
		logger: logger.With("component", "monitor"),
	}
	for i := range m.states {
		m.states[i] = &stageState{
			ring:         newRing(max(1, cfg.SampleWindow)),
			sampleRateHz: sampleRate,
		}
	}
	return m
}

// StageBegin records a monotonic-clock start timestamp for stage.
func (m *Monitor) StageBegin(s Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[s]
	st.begun = true
	st.beginAt = time.Now()
}

// StageEnd closes out the stage's timing sample, folds it into the
// rolling window, and checks alert thresholds.
func (m *Monitor) StageEnd(s Stage) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.states[s]
	if !st.begun {
		return 0
	}
	elapsed := time.Since(st.beginAt)
	st.begun = false

	st.ring.push(sample{execTime: elapsed, at: time.Now()})
	m.checkTimeThresholdLocked(s, elapsed)
	m.appendCSVLocked(s, elapsed)
	return elapsed
}

// RecordMemory records stage's memory usage. If bytes is zero, the
// system-wide used memory is sampled via gopsutil instead, mirroring the
// teacher's checkMemory polling.
func (m *Monitor) RecordMemory(s Stage, bytes int64) {
	if bytes == 0 {
		if vm, err := mem.VirtualMemory(); err == nil {
			bytes = int64(vm.Used)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s].lastMem(bytes)
	m.checkMemThresholdLocked(s, bytes)
}

// RecordCPU records stage's CPU ratio (0..1). If ratio is negative the
// current system-wide CPU percentage is sampled via gopsutil.
func (m *Monitor) RecordCPU(s Stage, ratio float64) {
	if ratio < 0 {
		if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
			ratio = pct[0] / 100
		} else {
			ratio = 0
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s].lastCPU(ratio)
}

// RecordThroughput adds samplesProcessed to stage's sample count, which
// feeds its realtime factor tracking; seconds is not used.
func (m *Monitor) RecordThroughput(s Stage, samplesProcessed int64, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[s]
	st.samplesProcessed += samplesProcessed
	_ = seconds
}

// RecordQuality records a [0,1] quality score sample for stage.
func (m *Monitor) RecordQuality(s Stage, score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[s]
	if n := len(st.ring.buf); n > 0 {
		idx := st.ring.next - 1
		if idx < 0 {
			idx = n - 1
		}
		st.ring.buf[idx].quality = score
	}
}

func (st *stageState) lastMem(bytes int64) {
	if n := len(st.ring.buf); n > 0 {
		idx := st.ring.next - 1
		if idx < 0 {
			idx = n - 1
		}
		st.ring.buf[idx].memBytes = bytes
	}
}

func (st *stageState) lastCPU(ratio float64) {
	if n := len(st.ring.buf); n > 0 {
		idx := st.ring.next - 1
		if idx < 0 {
			idx = n - 1
		}
		st.ring.buf[idx].cpuRatio = ratio
	}
}

func (m *Monitor) checkTimeThresholdLocked(s Stage, elapsed time.Duration) {
	st := m.states[s]
	budget := time.Duration(m.cfg.RealtimeBudgetMs) * time.Millisecond
	if budget <= 0 {
		return
	}

	if elapsed > budget {
		st.consecutiveWarn++
	} else {
		st.consecutiveWarn = 0
		if st.inAlert && st.consecutiveWarn == 0 {
			st.inAlert = false
		}
	}

	if !st.inAlert && st.consecutiveWarn >= m.cfg.WarnConsecutive {
		st.inAlert = true
		m.logger.Warn("stage exceeded realtime budget",
			"stage", s.String(), "exec_time", elapsed, "budget", budget)
	}
}

func (m *Monitor) checkMemThresholdLocked(s Stage, bytes int64) {
	if m.cfg.MemoryThresholdBytes <= 0 || bytes <= m.cfg.MemoryThresholdBytes {
		return
	}
	m.logger.Warn("stage exceeded memory threshold",
		"stage", s.String(), "mem_bytes", bytes, "threshold", m.cfg.MemoryThresholdBytes)
}

// Stats computes the rolling-window statistics for stage on demand.
func (m *Monitor) Stats(s Stage) StageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked(s)
}

func (m *Monitor) statsLocked(s Stage) StageStats {
	st := m.states[s]
	samples := st.ring.samples()
	stats := StageStats{Stage: s, Count: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	times := make([]time.Duration, len(samples))
	var sum time.Duration
	var lastMem int64
	var lastCPU float64
	var qualitySum float64
	for i, sm := range samples {
		times[i] = sm.execTime
		sum += sm.execTime
		if sm.memBytes != 0 {
			lastMem = sm.memBytes
		}
		if sm.cpuRatio != 0 {
			lastCPU = sm.cpuRatio
		}
		qualitySum += sm.quality
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	stats.MinExecTime = times[0]
	stats.MaxExecTime = times[len(times)-1]
	stats.MeanExecTime = sum / time.Duration(len(times))
	stats.MedianExecTime = percentile(times, 0.5)
	stats.P95ExecTime = percentile(times, 0.95)
	stats.P99ExecTime = percentile(times, 0.99)
	stats.StdDevExecTime = stdDev(times, stats.MeanExecTime)
	stats.LastMemBytes = lastMem
	stats.LastCPURatio = lastCPU
	stats.MeanQuality = qualitySum / float64(len(samples))

	if st.sampleRateHz > 0 && stats.MeanExecTime > 0 {
		processedSeconds := float64(st.samplesProcessed) / float64(st.sampleRateHz)
		stats.RealtimeFactor = processedSeconds / stats.MeanExecTime.Seconds()
	}

	return stats
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func stdDev(samples []time.Duration, mean time.Duration) time.Duration {
	if len(samples) < 2 {
		return 0
	}
	var sumSq float64
	mf := float64(mean)
	for _, s := range samples {
		d := float64(s) - mf
		sumSq += d * d
	}
	return time.Duration(math.Sqrt(sumSq / float64(len(samples))))
}

// Score computes the aggregate performance score in [0,1]:
// 0.4*min(1,realtime_factor) + 0.3*efficiency_ratio + 0.3*mean_quality_score.
// efficiency_ratio is the fraction of recorded stage samples that stayed
// within the configured realtime budget.
func (m *Monitor) Score() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.statsLocked(StageTotal)
	rt := stats.RealtimeFactor
	if rt > 1 {
		rt = 1
	}

	budget := time.Duration(m.cfg.RealtimeBudgetMs) * time.Millisecond
	var within, total int
	for s := Stage(0); s < StageTotal; s++ {
		for _, sm := range m.states[s].ring.samples() {
			total++
			if budget <= 0 || sm.execTime <= budget {
				within++
			}
		}
	}
	efficiency := 1.0
	if total > 0 {
		efficiency = float64(within) / float64(total)
	}

	return 0.4*rt + 0.3*efficiency + 0.3*stats.MeanQuality
}

// Close flushes and closes the CSV report file, if one is open.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.csvFile == nil {
		return nil
	}
	err := m.csvFile.Close()
	m.csvFile = nil
	return err
}
