package monitor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Reading is one raw VRAM measurement from a backend.
type Reading struct {
	TotalGB      float64
	UsedGB       float64
	FreeGB       float64
	UsagePercent float64
}

// Backend reads GPU memory figures from one source.
type Backend interface {
	Name() string
	Read() (Reading, error)
}

// SourceNone is reported when no backend yields a usable reading.
const SourceNone = "none"

// ReadFirst tries backends in order and returns the first reading with a
// positive total, along with the backend name. When every backend fails or
// reports zero, it returns all-zero figures and SourceNone instead of an
// error so the caller's poll loop keeps running.
func ReadFirst(backends []Backend) (Reading, string) {
	for _, b := range backends {
		r, err := b.Read()
		if err != nil {
			continue
		}
		if r.TotalGB > 0 {
			return r, b.Name()
		}
	}
	return Reading{}, SourceNone
}

// nvidiaSMIBackend shells out to the nvidia-smi CLI.
type nvidiaSMIBackend struct {
	bin string
}

// NewNvidiaSMIBackend returns a Backend backed by the nvidia-smi binary.
// An empty bin means "nvidia-smi" resolved from PATH.
func NewNvidiaSMIBackend(bin string) Backend {
	if bin == "" {
		bin = "nvidia-smi"
	}
	return nvidiaSMIBackend{bin: bin}
}

func (b nvidiaSMIBackend) Name() string { return "nvidia_smi" }

func (b nvidiaSMIBackend) Read() (Reading, error) {
	if _, err := exec.LookPath(b.bin); err != nil {
		return Reading{}, ErrBackendUnavailable(b.Name(), "binary not found")
	}
	out, err := exec.Command(b.bin,
		"--query-gpu=memory.total,memory.used,memory.free",
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return Reading{}, ErrBackendUnavailable(b.Name(), err.Error())
	}
	return parseNvidiaSMI(string(out))
}

// parseNvidiaSMI parses the first GPU line of nvidia-smi CSV output, values
// in MiB.
func parseNvidiaSMI(out string) (Reading, error) {
	line := out
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		line = out[:idx]
	}
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Reading{}, fmt.Errorf("unexpected nvidia-smi output: %q", line)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("parse nvidia-smi field %d: %w", i, err)
		}
		vals[i] = v
	}
	r := Reading{
		TotalGB: vals[0] / 1024,
		UsedGB:  vals[1] / 1024,
		FreeGB:  vals[2] / 1024,
	}
	if r.TotalGB > 0 {
		r.UsagePercent = r.UsedGB / r.TotalGB * 100
	}
	return r, nil
}

// staticBackend returns a fixed reading; used in tests and as an escape
// hatch for hosts with out-of-band GPU telemetry.
type staticBackend struct {
	name string
	r    Reading
	err  error
}

// NewStaticBackend returns a Backend that always reports r.
func NewStaticBackend(name string, r Reading, err error) Backend {
	return &staticBackend{name: name, r: r, err: err}
}

func (b *staticBackend) Name() string           { return b.name }
func (b *staticBackend) Read() (Reading, error) { return b.r, b.err }
