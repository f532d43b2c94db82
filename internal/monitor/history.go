package monitor

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"launcherd/pkg/types"
)

const defaultHistorySize = 100

// History is a bounded FIFO of VRAM samples: single writer (the guard's poll
// loop), many readers (analytics queries, the HTTP layer).
type History struct {
	mu      sync.Mutex
	samples []types.VRAMSample
	max     int
}

// NewHistory builds a history bounded to max samples (default 100).
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

// Append adds one sample, evicting the oldest when full.
func (h *History) Append(s types.VRAMSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, s)
	if len(h.samples) > h.max {
		h.samples = append(h.samples[:0:0], h.samples[len(h.samples)-h.max:]...)
	}
}

// Samples returns a copy of the stored samples, oldest first.
func (h *History) Samples() []types.VRAMSample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.VRAMSample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Len reports the number of stored samples.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// StrictlyIncreasing reports whether the last n samples show strictly rising
// usage. Fewer than n samples means no trend.
func (h *History) StrictlyIncreasing(n int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 2 || len(h.samples) < n {
		return false
	}
	tail := h.samples[len(h.samples)-n:]
	for i := 1; i < len(tail); i++ {
		if tail[i].UsagePercent <= tail[i-1].UsagePercent {
			return false
		}
	}
	return true
}

// Export writes the samples as JSON, oldest first.
func (h *History) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(h.Samples())
}

// Import replaces the stored samples from JSON, applying the bound.
func (h *History) Import(r io.Reader) error {
	var samples []types.VRAMSample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(samples) > h.max {
		samples = samples[len(samples)-h.max:]
	}
	h.samples = samples
	return nil
}

// SaveFile exports the history to path.
func (h *History) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.Export(f)
}

// LoadFile imports the history from path.
func (h *History) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.Import(f)
}
