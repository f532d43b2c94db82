package launcher

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"launcherd/internal/monitor"
	"launcherd/pkg/types"
)

func newTestLauncher(t *testing.T, catalog ...types.Tool) (*Launcher, *MemoryPublisher) {
	t.Helper()
	l := New(Config{
		Catalog:       catalog,
		StopGrace:     2 * time.Second,
		MaxRestarts:   2,
		RestartWindow: 300 * time.Second,
		RestartDelay:  50 * time.Millisecond,
	}, zerolog.Nop())
	pub := NewMemoryPublisher()
	l.SetPublisher(pub)
	t.Cleanup(func() { _ = l.Close() })
	return l, pub
}

func eventCount(pub *MemoryPublisher, name string) int {
	n := 0
	for _, e := range pub.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type recordingObserver struct {
	mu    sync.Mutex
	tools []string
	exits []ExitInfo
}

func (r *recordingObserver) OnProcessError(tool string, index int, exit ExitInfo) {
	r.mu.Lock()
	r.tools = append(r.tools, tool)
	r.exits = append(r.exits, exit)
	r.mu.Unlock()
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tools)
}

func TestLauncherStartStopLifecycle(t *testing.T) {
	requireSh(t)
	l, pub := newTestLauncher(t, types.Tool{
		Name:    "sleeper",
		Command: []string{"sh", "-c", "echo started; sleep 30"},
	})

	idx, err := l.StartInstance("sleeper")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}

	inst, err := l.Instance("sleeper", idx)
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	waitFor(t, 5*time.Second, "buffered output", func() bool { return inst.Buffer().Len() > 0 })

	st := l.Status()
	if st.RunningCount != 1 || st.StartsTotal != 1 {
		t.Fatalf("expected one running start, got running=%d starts=%d", st.RunningCount, st.StartsTotal)
	}
	// No guard attached: monitoring off, source none.
	if st.VRAM.Monitoring || st.VRAM.Source != "none" {
		t.Fatalf("expected disabled vram summary, got %+v", st.VRAM)
	}

	if err := l.StopInstance("sleeper", idx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitFor(t, 5*time.Second, "stopped state", func() bool { return inst.Poll() == StateStopped })

	if eventCount(pub, "instance_start") != 1 || eventCount(pub, "instance_stop") != 1 {
		t.Fatalf("unexpected events: %v", pub.Events())
	}
	if eventCount(pub, "instance_crash") != 0 {
		t.Fatalf("user stop must not publish a crash event")
	}
}

func TestLauncherUnknownTool(t *testing.T) {
	l, _ := newTestLauncher(t)
	if _, err := l.StartInstance("nosuch"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestLauncherCrashNotifiesObserversOnce(t *testing.T) {
	requireSh(t)
	l, pub := newTestLauncher(t, types.Tool{
		Name:    "crasher",
		Command: []string{"sh", "-c", "echo 'Error: boom' >&2; exit 2"},
		// AutoRestart off: the crash must surface without a retry.
	})
	obs := &recordingObserver{}
	l.RegisterErrorObserver(obs)

	if _, err := l.StartInstance("crasher"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 5*time.Second, "observer notification", func() bool { return obs.count() > 0 })
	// Allow a duplicate to surface before asserting exactly-once.
	time.Sleep(200 * time.Millisecond)

	if obs.count() != 1 {
		t.Fatalf("expected exactly one crash notification, got %d", obs.count())
	}
	obs.mu.Lock()
	exit := obs.exits[0]
	obs.mu.Unlock()
	if exit.Code != 2 {
		t.Fatalf("expected exit code 2, got %d", exit.Code)
	}
	if exit.LastError == nil || exit.LastError.Line != "Error: boom" {
		t.Fatalf("expected last error line, got %v", exit.LastError)
	}

	if eventCount(pub, "instance_crash") != 1 {
		t.Fatalf("expected one crash event, got %d", eventCount(pub, "instance_crash"))
	}
	if eventCount(pub, "restart_scheduled") != 0 {
		t.Fatalf("auto-restart disabled tool must not schedule restarts")
	}

	st := l.Status()
	if st.CrashedCount != 1 || st.CrashesTotal != 1 {
		t.Fatalf("expected one crash in status, got crashed=%d total=%d", st.CrashedCount, st.CrashesTotal)
	}
}

func TestLauncherAutoRestartUntilBudgetExhausted(t *testing.T) {
	requireSh(t)
	l, pub := newTestLauncher(t, types.Tool{
		Name:        "flaky",
		Command:     []string{"sh", "-c", "exit 1"},
		AutoRestart: true,
	})

	if _, err := l.StartInstance("flaky"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// MaxRestarts is 2: crash, restart, crash, restart, crash, give up.
	waitFor(t, 10*time.Second, "restart give-up", func() bool {
		return eventCount(pub, "restart_give_up") == 1
	})

	if got := eventCount(pub, "instance_crash"); got != 3 {
		t.Fatalf("expected 3 crashes, got %d", got)
	}
	if got := eventCount(pub, "instance_restart"); got != 2 {
		t.Fatalf("expected 2 restarts, got %d", got)
	}
	st := l.Status()
	if st.RestartsTotal != 2 {
		t.Fatalf("expected restarts total 2, got %d", st.RestartsTotal)
	}
	if st.StartsTotal != 3 {
		t.Fatalf("expected starts total 3 (manual + 2 restarts), got %d", st.StartsTotal)
	}
}

func TestLauncherManualStartResetsRestartBudget(t *testing.T) {
	requireSh(t)
	l, pub := newTestLauncher(t, types.Tool{
		Name:        "flaky",
		Command:     []string{"sh", "-c", "exit 1"},
		AutoRestart: true,
	})

	if _, err := l.StartInstance("flaky"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 10*time.Second, "first give-up", func() bool {
		return eventCount(pub, "restart_give_up") == 1
	})

	// Re-using the catalog entry creates a FRESH slot with a fresh budget.
	if _, err := l.StartInstance("flaky"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	waitFor(t, 10*time.Second, "second give-up", func() bool {
		return eventCount(pub, "restart_give_up") == 2
	})
}

func TestLauncherStopGatesQueuedRestart(t *testing.T) {
	requireSh(t)
	l, pub := newTestLauncher(t, types.Tool{
		Name:        "flaky",
		Command:     []string{"sh", "-c", "exit 1"},
		AutoRestart: true,
	})

	idx, err := l.StartInstance("flaky")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 5*time.Second, "restart scheduled", func() bool {
		return eventCount(pub, "restart_scheduled") >= 1
	})

	// Stop while the restart timer is pending: the restart must be dropped.
	if err := l.StopInstance("flaky", idx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	before := eventCount(pub, "instance_restart")
	time.Sleep(300 * time.Millisecond)
	if after := eventCount(pub, "instance_restart"); after != before {
		t.Fatalf("queued restart fired after user stop")
	}
}

func TestLauncherOutputAndClear(t *testing.T) {
	requireSh(t)
	l, _ := newTestLauncher(t, types.Tool{
		Name:    "talker",
		Command: []string{"sh", "-c", "echo 'Error: one'; echo two"},
	})
	idx, err := l.StartInstance("talker")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	inst, _ := l.Instance("talker", idx)
	waitFor(t, 5*time.Second, "process exit", func() bool { return inst.Poll() != StateRunning })

	all, err := l.Output("talker", idx, Filter{})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(all))
	}
	errs, err := l.Output("talker", idx, Filter{ErrorsOnly: true})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if len(errs) != 1 || errs[0].Line != "Error: one" {
		t.Fatalf("errors filter: got %v", errs)
	}

	if err := l.ClearOutput("talker", idx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	all, _ = l.Output("talker", idx, Filter{})
	if len(all) != 0 {
		t.Fatalf("expected empty buffer after clear, got %d", len(all))
	}
}

type fixedSampler struct{ stats monitor.ProcStats }

func (s fixedSampler) Sample(int) (monitor.ProcStats, error) { return s.stats, nil }

func TestLauncherStatusUsesSampler(t *testing.T) {
	requireSh(t)
	l, _ := newTestLauncher(t, types.Tool{
		Name:    "sleeper",
		Command: []string{"sh", "-c", "sleep 30"},
	})
	l.SetSampler(fixedSampler{stats: monitor.ProcStats{CPUPercent: 12.5, MemoryMB: 256}})

	idx, err := l.StartInstance("sleeper")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	is, err := l.InstanceStatus("sleeper", idx)
	if err != nil {
		t.Fatalf("instance status: %v", err)
	}
	if is.State != string(StateRunning) || is.PID == 0 {
		t.Fatalf("expected running with pid, got %+v", is)
	}
	if is.CPUPercent != 12.5 || is.MemoryMB != 256 {
		t.Fatalf("expected sampler figures, got cpu=%v mem=%v", is.CPUPercent, is.MemoryMB)
	}
}

// The running gauge must balance on every exit path, including a process
// that finishes on its own without a crash or a user stop.
func TestLauncherRunningGaugeBalances(t *testing.T) {
	requireSh(t)
	l, _ := newTestLauncher(t,
		types.Tool{Name: "oneshot", Command: []string{"sh", "-c", "echo done"}},
		types.Tool{Name: "longrun", Command: []string{"sh", "-c", "sleep 30"}},
	)

	gauge := func(tool string) float64 {
		return testutil.ToFloat64(instancesRunning.WithLabelValues(tool))
	}

	idx, err := l.StartInstance("oneshot")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	inst, _ := l.Instance("oneshot", idx)
	waitFor(t, 5*time.Second, "clean self-exit", func() bool { return inst.Poll() == StateStopped })
	waitFor(t, 5*time.Second, "gauge back to zero after self-exit", func() bool { return gauge("oneshot") == 0 })

	// The user-stop path must decrement exactly once, not twice.
	idx, err = l.StartInstance("longrun")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := gauge("longrun"); got != 1 {
		t.Fatalf("expected gauge 1 while running, got %v", got)
	}
	if err := l.StopInstance("longrun", idx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitFor(t, 5*time.Second, "gauge back to zero after stop", func() bool { return gauge("longrun") == 0 })
	if got := gauge("longrun"); got != 0 {
		t.Fatalf("expected gauge 0 after stop, got %v", got)
	}
}

func TestLauncherCloseRejectsStarts(t *testing.T) {
	l, _ := newTestLauncher(t, types.Tool{Name: "sleeper", Command: []string{"sh", "-c", "sleep 30"}})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if l.Ready() {
		t.Fatalf("expected not ready after close")
	}
	if _, err := l.StartInstance("sleeper"); !IsSpawn(err) {
		t.Fatalf("expected spawn error after close, got %v", err)
	}
}
