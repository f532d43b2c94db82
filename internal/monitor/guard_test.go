package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"launcherd/pkg/types"
)

type transitionRecorder struct {
	mu     sync.Mutex
	levels []Level
}

func (r *transitionRecorder) OnVRAMTransition(level Level, _ types.VRAMSample) {
	r.mu.Lock()
	r.levels = append(r.levels, level)
	r.mu.Unlock()
}

func (r *transitionRecorder) recorded() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Level(nil), r.levels...)
}

type recordingCleaner struct {
	name   string
	err    error
	mu     sync.Mutex
	forces []bool
}

func (c *recordingCleaner) Name() string { return c.name }

func (c *recordingCleaner) Cleanup(force bool) error {
	c.mu.Lock()
	c.forces = append(c.forces, force)
	c.mu.Unlock()
	return c.err
}

func (c *recordingCleaner) calls() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.forces...)
}

// testGuard builds a guard with default thresholds, a manual clock, and no
// backends, driven through Observe.
func testGuard(cleaners ...Cleaner) (*Guard, *time.Time) {
	g := NewGuard(GuardConfig{}, nil, cleaners, zerolog.Nop())
	clock := time.Unix(1_000_000, 0)
	g.now = func() time.Time { return clock }
	return g, &clock
}

func TestGuardLevelTransitions(t *testing.T) {
	g, _ := testGuard()
	rec := &transitionRecorder{}
	g.AddObserver(rec)

	g.Observe(usageSample(70))
	g.Observe(usageSample(82))
	g.Observe(usageSample(96))

	require.Equal(t, []Level{LevelWarning, LevelCritical}, rec.recorded())
	require.Equal(t, LevelCritical, g.Level())
	require.Equal(t, "critical", g.Summary().Level)
}

func TestGuardSustainedPressureNotifiesOnce(t *testing.T) {
	g, clock := testGuard()
	rec := &transitionRecorder{}
	g.AddObserver(rec)

	g.Observe(usageSample(82))
	*clock = clock.Add(10 * time.Second)
	g.Observe(usageSample(83))
	*clock = clock.Add(10 * time.Second)
	g.Observe(usageSample(84))

	require.Equal(t, []Level{LevelWarning}, rec.recorded())
}

func TestGuardRenotifiesAfterRecovery(t *testing.T) {
	g, clock := testGuard()
	rec := &transitionRecorder{}
	g.AddObserver(rec)

	g.Observe(usageSample(82))
	*clock = clock.Add(10 * time.Second)
	g.Observe(usageSample(70)) // recovered; the next climb is a fresh episode
	*clock = clock.Add(10 * time.Second)
	g.Observe(usageSample(83))

	require.Equal(t, []Level{LevelWarning, LevelWarning}, rec.recorded())
}

func TestGuardObserverRemoval(t *testing.T) {
	g, _ := testGuard()
	rec := &transitionRecorder{}
	g.AddObserver(rec)
	g.RemoveObserver(rec)
	g.Observe(usageSample(85))
	require.Empty(t, rec.recorded())
}

func TestGuardForcedCleanupOnThresholdCrossing(t *testing.T) {
	cleaner := &recordingCleaner{name: "cache"}
	g, clock := testGuard(cleaner)

	g.Observe(usageSample(85)) // below auto-cleanup, nothing yet
	*clock = clock.Add(time.Second)
	g.Observe(usageSample(92)) // crosses 90: forced pass
	*clock = clock.Add(time.Second)
	g.Observe(usageSample(93)) // still above: no repeat without a re-crossing

	require.Equal(t, []bool{true}, cleaner.calls())
}

func TestGuardPredictiveCleanup(t *testing.T) {
	cleaner := &recordingCleaner{name: "cache"}
	g, clock := testGuard(cleaner)

	g.Observe(usageSample(70))
	*clock = clock.Add(time.Second)
	g.Observe(usageSample(76))
	*clock = clock.Add(time.Second)
	g.Observe(usageSample(77)) // three strictly rising samples above 75
	*clock = clock.Add(time.Second)
	g.Observe(usageSample(78)) // within cooldown: no second pass

	require.Equal(t, []bool{false}, cleaner.calls())
}

func TestGuardCleanupAttemptsAreIndependent(t *testing.T) {
	broken := &recordingCleaner{name: "broken", err: ErrBackendUnavailable("broken", "binary not found")}
	working := &recordingCleaner{name: "working"}
	g, _ := testGuard(broken, working)

	res := g.RunCleanup(true)
	require.True(t, res.Forced)
	require.Len(t, res.Attempts, 2)
	require.NotEmpty(t, res.Attempts[0].Err)
	require.Empty(t, res.Attempts[1].Err)
	require.Equal(t, []bool{true}, working.calls())
}

// seqBackend replays a fixed series of readings, one per Read call.
type seqBackend struct {
	readings []Reading
	i        int
}

func (b *seqBackend) Name() string { return "seq" }

func (b *seqBackend) Read() (Reading, error) {
	r := b.readings[b.i]
	if b.i < len(b.readings)-1 {
		b.i++
	}
	return r, nil
}

func TestGuardCleanupYield(t *testing.T) {
	backend := &seqBackend{readings: []Reading{
		{TotalGB: 24, UsedGB: 10, FreeGB: 14, UsagePercent: 41.7},
		{TotalGB: 24, UsedGB: 7, FreeGB: 17, UsagePercent: 29.2},
	}}
	g := NewGuard(GuardConfig{}, []Backend{backend}, []Cleaner{&recordingCleaner{name: "cache"}}, zerolog.Nop())

	res := g.RunCleanup(false)
	require.InDelta(t, 3.0, res.FreedGB, 1e-9)
}

func TestGuardCleanupYieldFlooredAtZero(t *testing.T) {
	backend := &seqBackend{readings: []Reading{
		{TotalGB: 24, UsedGB: 7, FreeGB: 17, UsagePercent: 29.2},
		{TotalGB: 24, UsedGB: 10, FreeGB: 14, UsagePercent: 41.7},
	}}
	g := NewGuard(GuardConfig{}, []Backend{backend}, nil, zerolog.Nop())

	res := g.RunCleanup(false)
	require.Zero(t, res.FreedGB)
}

func TestGuardSummaryBeforeFirstSample(t *testing.T) {
	g, _ := testGuard()
	s := g.Summary()
	require.True(t, s.Monitoring)
	require.Equal(t, SourceNone, s.Source)
	require.Equal(t, "normal", s.Level)
	require.Zero(t, s.TotalGB)
}

func TestGuardPollOnceFeedsHistory(t *testing.T) {
	backend := NewStaticBackend("fake", Reading{TotalGB: 24, UsedGB: 12, FreeGB: 12, UsagePercent: 50}, nil)
	g := NewGuard(GuardConfig{}, []Backend{backend}, nil, zerolog.Nop())

	require.NoError(t, g.pollOnce())
	require.Equal(t, 1, g.History().Len())

	s := g.Summary()
	require.Equal(t, "fake", s.Source)
	require.Equal(t, 50.0, s.UsagePercent)
}

type panicBackend struct{}

func (panicBackend) Name() string { return "panicky" }

func (panicBackend) Read() (Reading, error) { panic("driver went away") }

func TestGuardPollOncePanicBecomesError(t *testing.T) {
	g := NewGuard(GuardConfig{}, []Backend{panicBackend{}}, nil, zerolog.Nop())
	require.Error(t, g.pollOnce())
}
