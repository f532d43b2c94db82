package monitor

import (
	"github.com/shirou/gopsutil/v4/process"
)

// ProcStats is one CPU/memory reading for a single OS process.
type ProcStats struct {
	CPUPercent float64
	MemoryMB   float64
}

// ProcSampler reads per-PID resource usage from the OS.
type ProcSampler struct{}

// Sample returns the current CPU percentage and resident memory of pid.
// A vanished process returns an error; partial read failures degrade to
// zeroes rather than failing the sample.
func (ProcSampler) Sample(pid int) (ProcStats, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ProcStats{}, err
	}
	var st ProcStats
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		st.MemoryMB = float64(mi.RSS) / (1024 * 1024)
	}
	return st, nil
}
