package launcher

import (
	"strconv"
	"testing"

	"launcherd/pkg/types"
)

func pushPlain(b *OutputBuffer, lines ...string) {
	for _, l := range lines {
		b.Push(types.OutputEntry{Line: l, Stream: types.StreamStdout, Type: types.OutputPlain})
	}
}

func TestBufferHardCap(t *testing.T) {
	// Display threshold high enough that only the hard cap triggers.
	b := NewOutputBuffer(50, 10000)
	for i := 0; i < 60; i++ {
		pushPlain(b, strconv.Itoa(i))
	}
	if b.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", b.Len())
	}
	got := b.Snapshot(Filter{})
	if got[0].Line != "10" || got[len(got)-1].Line != "59" {
		t.Fatalf("expected newest suffix 10..59, got %s..%s", got[0].Line, got[len(got)-1].Line)
	}
}

func TestBufferBatchTrim(t *testing.T) {
	// Threshold 10 trims once the buffer passes 4 entries, dropping the
	// oldest half in one step.
	b := NewOutputBuffer(10000, 10)
	pushPlain(b, "0", "1", "2", "3")
	if b.Len() != 4 {
		t.Fatalf("expected no trim at 4 entries, got %d", b.Len())
	}
	pushPlain(b, "4")
	if b.Len() != 3 {
		t.Fatalf("expected batch trim to 3 entries, got %d", b.Len())
	}
	got := b.Snapshot(Filter{})
	if got[0].Line != "2" || got[2].Line != "4" {
		t.Fatalf("expected newest half 2..4, got %s..%s", got[0].Line, got[2].Line)
	}
}

func TestBufferFilters(t *testing.T) {
	b := NewOutputBuffer(100, 10000)
	b.Push(types.OutputEntry{Line: "Error: boom", Type: types.OutputError})
	b.Push(types.OutputEntry{Line: "Warning: slow", Type: types.OutputWarning})
	b.Push(types.OutputEntry{Line: "all good", Type: types.OutputPlain})

	// First snapshot populates the view; filters engage afterwards.
	if got := b.Snapshot(Filter{ErrorsOnly: true}); len(got) != 3 {
		t.Fatalf("initial snapshot: expected all 3 entries, got %d", len(got))
	}

	if got := b.Snapshot(Filter{ErrorsOnly: true}); len(got) != 1 || got[0].Type != types.OutputError {
		t.Fatalf("errors filter: got %v", got)
	}
	if got := b.Snapshot(Filter{WarningsOnly: true}); len(got) != 1 || got[0].Type != types.OutputWarning {
		t.Fatalf("warnings filter: got %v", got)
	}
	if got := b.Snapshot(Filter{Search: "BOOM"}); len(got) != 1 || got[0].Line != "Error: boom" {
		t.Fatalf("search filter: got %v", got)
	}
	if got := b.Snapshot(Filter{}); len(got) != 3 {
		t.Fatalf("zero filter: expected all 3 entries, got %d", len(got))
	}
}

func TestBufferPopulatedSurvivesClear(t *testing.T) {
	b := NewOutputBuffer(100, 10000)
	b.Push(types.OutputEntry{Line: "first", Type: types.OutputPlain})
	b.Snapshot(Filter{})

	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after clear, got %d", b.Len())
	}

	b.Push(types.OutputEntry{Line: "Error: after clear", Type: types.OutputError})
	b.Push(types.OutputEntry{Line: "plain after clear", Type: types.OutputPlain})
	if got := b.Snapshot(Filter{ErrorsOnly: true}); len(got) != 1 {
		t.Fatalf("expected filter to stay engaged after clear, got %d entries", len(got))
	}
}

func TestBufferLastError(t *testing.T) {
	b := NewOutputBuffer(100, 10000)
	if b.LastError() != nil {
		t.Fatalf("expected nil last error on empty buffer")
	}
	b.Push(types.OutputEntry{Line: "Error: first", Type: types.OutputError})
	b.Push(types.OutputEntry{Line: "fine", Type: types.OutputPlain})
	b.Push(types.OutputEntry{Line: "Error: second", Type: types.OutputError})
	b.Push(types.OutputEntry{Line: "fine again", Type: types.OutputPlain})

	got := b.LastError()
	if got == nil || got.Line != "Error: second" {
		t.Fatalf("expected most recent error, got %v", got)
	}
}
