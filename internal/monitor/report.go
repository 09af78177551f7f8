package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// csvHeader matches spec.md §6's fixed CSV column order.
const csvHeader = "Timestamp,Stage_ID,Stage_Name,Execution_Time,Memory_Usage,CPU_Usage\n"

// OpenCSV opens (creating if necessary) the append-only CSV report at
// m.cfg.ReportPath, writing the header if the file is new.
func (m *Monitor) OpenCSV() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCSVLocked()
}

func (m *Monitor) openCSVLocked() error {
	if m.csvFile != nil {
		return nil
	}
	path := m.cfg.ReportPath
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report csv: %w", err)
	}
	if os.IsNotExist(statErr) {
		if _, err := f.WriteString(csvHeader); err != nil {
			f.Close()
			return fmt.Errorf("write report header: %w", err)
		}
	}
	m.csvFile = f
	m.csvPath = path
	return nil
}

// appendCSVLocked writes one stage_end row. Lazily opens the file on
// first call so callers that never configure ReportPath pay no cost.
func (m *Monitor) appendCSVLocked(s Stage, elapsed time.Duration) {
	if m.cfg.ReportPath == "" {
		return
	}
	if err := m.openCSVLocked(); err != nil {
		m.logger.Error("failed to open performance report csv", "error", err)
		return
	}
	st := m.states[s]
	samples := st.ring.samples()
	var memBytes int64
	var cpuRatio float64
	if n := len(samples); n > 0 {
		memBytes = samples[n-1].memBytes
		cpuRatio = samples[n-1].cpuRatio
	}

	row := fmt.Sprintf("%s,%d,%s,%f,%d,%f\n",
		time.Now().Format(time.RFC3339Nano), int(s), s.String(), elapsed.Seconds(), memBytes, cpuRatio)
	if _, err := m.csvFile.WriteString(row); err != nil {
		m.logger.Error("failed to append performance report row", "error", err)
	}
}

// PrintSummary returns a human-readable table of every stage's current
// statistics as a string.
func (m *Monitor) PrintSummary() string {
	m.mu.Lock()

	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %8s %10s %10s %10s %10s %10s\n",
		"Stage", "Count", "Mean", "P95", "P99", "Mem", "CPU")
	for s := Stage(0); s <= StageTotal; s++ {
		st := m.statsLocked(s)
		if st.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "%-22s %8d %10s %10s %10s %10s %9.1f%%\n",
			s.String(), st.Count, st.MeanExecTime, st.P95ExecTime, st.P99ExecTime,
			formatBytes(st.LastMemBytes), st.LastCPURatio*100)
	}
	m.mu.Unlock()
	fmt.Fprintf(&b, "\naggregate performance score: %.3f\n", m.Score())
	return b.String()
}

// GenerateReport writes PrintSummary's text to path.
func (m *Monitor) GenerateReport(path string) error {
	summary := m.PrintSummary()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(summary), 0o644)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for n1 := n / unit; n1 >= unit; n1 /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
