package launcher

import (
	"strings"
	"sync"

	"launcherd/pkg/types"
)

// Filter selects a subset of buffered output lines.
type Filter struct {
	ErrorsOnly   bool
	WarningsOnly bool
	// Search matches a case-insensitive substring of the line.
	Search string
}

// zero reports whether the filter selects everything.
func (f Filter) zero() bool {
	return !f.ErrorsOnly && !f.WarningsOnly && f.Search == ""
}

func (f Filter) match(e types.OutputEntry) bool {
	if f.ErrorsOnly && e.Type != types.OutputError {
		return false
	}
	if f.WarningsOnly && e.Type != types.OutputWarning {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Line), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// OutputBuffer is a bounded, mutex-guarded store of recent output lines for
// one instance. Writers are the instance's reader goroutines, readers are the
// HTTP/UI side; the mutex is held only for list mutation, never across I/O.
//
// Trimming is batched: once the logical size passes 40% of the display
// threshold, the oldest half is dropped in one step so display consumers
// redraw once instead of per line. The hard cap is a second, larger ceiling
// that holds regardless.
//
// Quirk, preserved on purpose: the first Snapshot taken on a non-empty
// buffer ignores the filter and returns everything, so a freshly attached
// view populates before filters engage. This mirrors long-standing observed
// behavior and is a candidate for removal, not a pattern to copy.
type OutputBuffer struct {
	mu               sync.Mutex
	entries          []types.OutputEntry
	maxSize          int
	displayThreshold int
	populated        bool
}

// NewOutputBuffer builds a buffer with the given hard cap and display
// threshold. Non-positive arguments fall back to package defaults.
func NewOutputBuffer(maxSize, displayThreshold int) *OutputBuffer {
	if maxSize <= 0 {
		maxSize = defaultBufferMaxSize
	}
	if displayThreshold <= 0 {
		displayThreshold = defaultDisplayThreshold
	}
	return &OutputBuffer{maxSize: maxSize, displayThreshold: displayThreshold}
}

// Push appends one entry, evicting oldest entries as needed.
func (b *OutputBuffer) Push(e types.OutputEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)

	// Batch trim for display consumers: drop the oldest half in one step.
	if trimAt := b.displayThreshold * 2 / 5; trimAt > 0 && len(b.entries) > trimAt {
		b.entries = append(b.entries[:0:0], b.entries[len(b.entries)/2:]...)
	}
	// Hard cap, enforced independently of display trimming.
	if len(b.entries) > b.maxSize {
		b.entries = append(b.entries[:0:0], b.entries[len(b.entries)-b.maxSize:]...)
	}
}

// Snapshot returns the buffered entries matching f, oldest first. The
// returned slice is a copy and safe to retain.
func (b *OutputBuffer) Snapshot(f Filter) []types.OutputEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.populated {
		if len(b.entries) > 0 {
			b.populated = true
		}
		out := make([]types.OutputEntry, len(b.entries))
		copy(out, b.entries)
		return out
	}
	if f.zero() {
		out := make([]types.OutputEntry, len(b.entries))
		copy(out, b.entries)
		return out
	}
	out := make([]types.OutputEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the current number of buffered entries.
func (b *OutputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// LastError returns the most recent error-classified entry, if any.
func (b *OutputBuffer) LastError() *types.OutputEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Type == types.OutputError {
			e := b.entries[i]
			return &e
		}
	}
	return nil
}

// Clear drops all buffered entries. The populated flag survives: filters
// stay active once a view has been populated.
func (b *OutputBuffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}
