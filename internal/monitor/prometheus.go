package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports a Monitor's current per-stage statistics as
// Prometheus gauges, gated by conf.PerformanceConfig.PrometheusEnabled.
// It is registered manually by the caller (typically cmd/voxgraph) rather
// than via init-time global registration, so a run without a metrics
// server pays no cost.
type PrometheusCollector struct {
	m *Monitor

	execTime *prometheus.GaugeVec
	memBytes *prometheus.GaugeVec
	cpuRatio *prometheus.GaugeVec
	quality  *prometheus.GaugeVec
	score    prometheus.Gauge
}

// NewPrometheusCollector wraps m for Prometheus export.
func NewPrometheusCollector(m *Monitor) *PrometheusCollector {
	labels := []string{"stage"}
	return &PrometheusCollector{
		m: m,
		execTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxgraph",
			Subsystem: "stage",
			Name:      "exec_time_seconds",
			Help:      "Mean stage execution time over the rolling sample window.",
		}, labels),
		memBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxgraph",
			Subsystem: "stage",
			Name:      "memory_bytes",
			Help:      "Last recorded memory usage for the stage.",
		}, labels),
		cpuRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxgraph",
			Subsystem: "stage",
			Name:      "cpu_ratio",
			Help:      "Last recorded CPU usage ratio for the stage.",
		}, labels),
		quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxgraph",
			Subsystem: "stage",
			Name:      "quality_score",
			Help:      "Mean quality score over the rolling sample window.",
		}, labels),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxgraph",
			Name:      "performance_score",
			Help:      "Aggregate performance score in [0,1].",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	c.execTime.Describe(ch)
	c.memBytes.Describe(ch)
	c.cpuRatio.Describe(ch)
	c.quality.Describe(ch)
	c.score.Describe(ch)
}

// Collect implements prometheus.Collector, refreshing every gauge from
// the monitor's current statistics before emitting.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for s := Stage(0); s <= StageTotal; s++ {
		st := c.m.Stats(s)
		if st.Count == 0 {
			continue
		}
		name := s.String()
		c.execTime.WithLabelValues(name).Set(st.MeanExecTime.Seconds())
		c.memBytes.WithLabelValues(name).Set(float64(st.LastMemBytes))
		c.cpuRatio.WithLabelValues(name).Set(st.LastCPURatio)
		c.quality.WithLabelValues(name).Set(st.MeanQuality)
	}
	c.score.Set(c.m.Score())

	c.execTime.Collect(ch)
	c.memBytes.Collect(ch)
	c.cpuRatio.Collect(ch)
	c.quality.Collect(ch)
	c.score.Collect(ch)
}
