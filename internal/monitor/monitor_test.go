package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/voxgraph/internal/conf"
)

func testConfig() conf.PerformanceConfig {
	cfg := conf.Default().Performance
	cfg.SampleWindow = 8
	cfg.RealtimeBudgetMs = 50
	cfg.WarnConsecutive = 2
	cfg.ReportPath = ""
	return cfg
}

func TestStageBeginEndRecordsSample(t *testing.T) {
	m := New(testConfig(), 44100)
	m.StageBegin(StageF0Extraction)
	time.Sleep(2 * time.Millisecond)
	elapsed := m.StageEnd(StageF0Extraction)

	assert.Greater(t, elapsed, time.Duration(0))
	stats := m.Stats(StageF0Extraction)
	require.Equal(t, 1, stats.Count)
	assert.Equal(t, elapsed, stats.MinExecTime)
	assert.Equal(t, elapsed, stats.MaxExecTime)
}

func TestStageEndWithoutBeginIsNoop(t *testing.T) {
	m := New(testConfig(), 44100)
	elapsed := m.StageEnd(StageSynthesis)
	assert.Equal(t, time.Duration(0), elapsed)
	assert.Equal(t, 0, m.Stats(StageSynthesis).Count)
}

func TestRingBufferWrapsAtCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.SampleWindow = 4
	m := New(cfg, 44100)

	for i := 0; i < 10; i++ {
		m.StageBegin(StageAudioInput)
		m.StageEnd(StageAudioInput)
	}
	assert.Equal(t, 4, m.Stats(StageAudioInput).Count)
}

func TestStatsComputesPercentiles(t *testing.T) {
	m := New(testConfig(), 44100)
	st := m.states[StageSpectrumAnalysis]
	for _, d := range []time.Duration{10, 20, 30, 40, 50} {
		st.ring.push(sample{execTime: d * time.Millisecond})
	}
	stats := m.Stats(StageSpectrumAnalysis)

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 10*time.Millisecond, stats.MinExecTime)
	assert.Equal(t, 50*time.Millisecond, stats.MaxExecTime)
	assert.Equal(t, 30*time.Millisecond, stats.MeanExecTime)
}

func TestRecordMemoryAndCPU(t *testing.T) {
	m := New(testConfig(), 44100)
	m.StageBegin(StageAperiodicityAnalysis)
	m.StageEnd(StageAperiodicityAnalysis)
	m.RecordMemory(StageAperiodicityAnalysis, 1024)
	m.RecordCPU(StageAperiodicityAnalysis, 0.25)

	stats := m.Stats(StageAperiodicityAnalysis)
	assert.Equal(t, int64(1024), stats.LastMemBytes)
	assert.InDelta(t, 0.25, stats.LastCPURatio, 1e-9)
}

func TestRecordQualityClampsToUnitRange(t *testing.T) {
	m := New(testConfig(), 44100)
	m.StageBegin(StageSynthesis)
	m.StageEnd(StageSynthesis)
	m.RecordQuality(StageSynthesis, 1.5)

	assert.InDelta(t, 1.0, m.Stats(StageSynthesis).MeanQuality, 1e-9)
}

func TestScoreWithinUnitRange(t *testing.T) {
	m := New(testConfig(), 44100)
	for i := 0; i < 5; i++ {
		m.StageBegin(StageTotal)
		m.StageEnd(StageTotal)
		m.RecordQuality(StageTotal, 0.9)
	}
	score := m.Score()
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestStageStringCoversEveryEnumerator(t *testing.T) {
	for s := Stage(0); s <= StageTotal; s++ {
		assert.NotEqual(t, "Unknown", s.String())
	}
}

func TestPrintSummaryIncludesEachRecordedStage(t *testing.T) {
	m := New(testConfig(), 44100)
	m.StageBegin(StageF0Extraction)
	m.StageEnd(StageF0Extraction)

	summary := m.PrintSummary()
	assert.Contains(t, summary, "F0Extraction")
	assert.Contains(t, summary, "aggregate performance score")
}
