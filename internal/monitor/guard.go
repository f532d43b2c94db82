package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"launcherd/pkg/types"
)

// Level is the guard's pressure state derived from VRAM usage.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Observer is notified on upward level transitions, rate-limited by the
// configured cooldown.
type Observer interface {
	OnVRAMTransition(level Level, sample types.VRAMSample)
}

// Defaults applied when corresponding GuardConfig fields are unset.
const (
	defaultPollInterval     = 30 * time.Second
	defaultFallbackInterval = 10 * time.Second
	defaultWarningPct       = 80.0
	defaultCriticalPct      = 95.0
	defaultAutoCleanupPct   = 90.0
	defaultPredictivePct    = 75.0
	defaultNotifyCooldown   = 300 * time.Second
)

// GuardConfig encapsulates the guard's tunables.
type GuardConfig struct {
	PollInterval     time.Duration
	FallbackInterval time.Duration
	WarningPct       float64
	CriticalPct      float64
	AutoCleanupPct   float64
	PredictivePct    float64
	NotifyCooldown   time.Duration
	HistorySize      int
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.FallbackInterval <= 0 {
		c.FallbackInterval = defaultFallbackInterval
	}
	if c.WarningPct <= 0 {
		c.WarningPct = defaultWarningPct
	}
	if c.CriticalPct <= 0 {
		c.CriticalPct = defaultCriticalPct
	}
	if c.AutoCleanupPct <= 0 {
		c.AutoCleanupPct = defaultAutoCleanupPct
	}
	if c.PredictivePct <= 0 {
		c.PredictivePct = defaultPredictivePct
	}
	if c.NotifyCooldown <= 0 {
		c.NotifyCooldown = defaultNotifyCooldown
	}
	return c
}

var vramUsagePercent = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "launcherd",
	Subsystem: "vram",
	Name:      "usage_percent",
	Help:      "Last observed VRAM usage percentage",
})

func init() {
	prometheus.MustRegister(vramUsagePercent)
}

// Guard watches VRAM usage through the configured backends and drives the
// Normal -> Warning -> Critical state machine, cleanup dispatch, and the
// rolling sample history. One Guard belongs to one launcher session; there is
// no package-level singleton.
type Guard struct {
	cfg      GuardConfig
	backends []Backend
	cleaners []Cleaner
	history  *History
	log      zerolog.Logger

	mu            sync.Mutex
	level         Level
	notifiedLevel Level
	lastNotify    time.Time
	lastCleanup   time.Time
	prevUsage     float64
	lastSample    types.VRAMSample
	observers     []Observer

	now func() time.Time // test hook
}

// NewGuard builds a guard. backends are tried in order on every poll;
// cleaners are dispatched in order on cleanup passes.
func NewGuard(cfg GuardConfig, backends []Backend, cleaners []Cleaner, log zerolog.Logger) *Guard {
	cfg = cfg.withDefaults()
	g := &Guard{
		cfg:      cfg,
		backends: backends,
		cleaners: cleaners,
		history:  NewHistory(cfg.HistorySize),
		log:      log.With().Str("component", "vram_guard").Logger(),
		now:      time.Now,
	}
	g.lastSample.Source = SourceNone
	return g
}

// AddObserver registers an observer for level transitions.
func (g *Guard) AddObserver(o Observer) {
	g.mu.Lock()
	g.observers = append(g.observers, o)
	g.mu.Unlock()
}

// RemoveObserver unregisters a previously added observer.
func (g *Guard) RemoveObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, cur := range g.observers {
		if cur == o {
			g.observers = append(g.observers[:i], g.observers[i+1:]...)
			return
		}
	}
}

// Run polls until ctx is canceled. A failing iteration is logged and followed
// by the fallback interval; the loop itself never exits on a transient
// backend error.
func (g *Guard) Run(ctx context.Context) {
	for {
		interval := g.cfg.PollInterval
		if err := g.pollOnce(); err != nil {
			g.log.Error().Err(err).Msg("poll iteration failed")
			interval = g.cfg.FallbackInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// pollOnce reads the backends and feeds the sample through Observe. Panics
// from a misbehaving backend are converted to errors so Run can apply the
// fallback interval.
func (g *Guard) pollOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll: %v", r)
		}
	}()
	reading, source := ReadFirst(g.backends)
	sample := types.VRAMSample{
		Timestamp:    float64(g.now().UnixNano()) / 1e9,
		Source:       source,
		TotalGB:      reading.TotalGB,
		UsedGB:       reading.UsedGB,
		FreeGB:       reading.FreeGB,
		UsagePercent: reading.UsagePercent,
	}
	g.Observe(sample)
	return nil
}

func (g *Guard) levelFor(usage float64) Level {
	switch {
	case usage >= g.cfg.CriticalPct:
		return LevelCritical
	case usage >= g.cfg.WarningPct:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Observe applies one sample to the state machine: history, level
// transitions, notifications and cleanup triggers. Exported so tests (and
// out-of-band telemetry feeds) can drive the guard without a poll loop.
func (g *Guard) Observe(s types.VRAMSample) {
	g.history.Append(s)
	vramUsagePercent.Set(s.UsagePercent)

	g.mu.Lock()
	now := g.now()
	old := g.level
	level := g.levelFor(s.UsagePercent)
	g.level = level
	g.lastSample = s

	notify := false
	if level > old {
		// Sustained pressure is not a transition; only upward changes
		// notify, and repeats within the cooldown stay quiet.
		if level > g.notifiedLevel || now.Sub(g.lastNotify) >= g.cfg.NotifyCooldown {
			notify = true
			g.lastNotify = now
			g.notifiedLevel = level
		}
	} else if level < old {
		g.notifiedLevel = level
	}

	forced := s.UsagePercent >= g.cfg.AutoCleanupPct && g.prevUsage < g.cfg.AutoCleanupPct
	gentle := !forced &&
		s.UsagePercent >= g.cfg.PredictivePct &&
		now.Sub(g.lastCleanup) >= g.cfg.NotifyCooldown &&
		g.history.StrictlyIncreasing(3)
	if forced || gentle {
		g.lastCleanup = now
	}
	g.prevUsage = s.UsagePercent
	observers := append([]Observer(nil), g.observers...)
	g.mu.Unlock()

	if notify {
		g.log.Warn().Str("level", level.String()).Float64("usage_percent", s.UsagePercent).Msg("vram level transition")
		for _, o := range observers {
			o.OnVRAMTransition(level, s)
		}
	}
	if forced {
		res := g.RunCleanup(true)
		g.log.Warn().Float64("freed_gb", res.FreedGB).Msg("forced vram cleanup")
	} else if gentle {
		res := g.RunCleanup(false)
		g.log.Info().Float64("freed_gb", res.FreedGB).Msg("predictive vram cleanup")
	}
}

// RunCleanup dispatches all configured cleaners in order. Attempts are
// independent: one failure never blocks the next cleaner. The reported yield
// is the before/after delta in used VRAM, floored at zero.
func (g *Guard) RunCleanup(force bool) CleanupResult {
	res := CleanupResult{Forced: force}
	before, _ := ReadFirst(g.backends)
	for _, c := range g.cleaners {
		attempt := CleanerAttempt{Name: c.Name()}
		if err := c.Cleanup(force); err != nil {
			attempt.Err = err.Error()
			g.log.Debug().Str("cleaner", c.Name()).Err(err).Msg("cleanup backend failed")
		}
		res.Attempts = append(res.Attempts, attempt)
	}
	after, _ := ReadFirst(g.backends)
	if d := before.UsedGB - after.UsedGB; d > 0 {
		res.FreedGB = d
	}
	return res
}

// Summary reports the current monitoring state for the HTTP layer.
func (g *Guard) Summary() types.VRAMSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.lastSample
	return types.VRAMSummary{
		Monitoring:   true,
		Source:       s.Source,
		TotalGB:      s.TotalGB,
		UsedGB:       s.UsedGB,
		FreeGB:       s.FreeGB,
		UsagePercent: s.UsagePercent,
		Level:        g.level.String(),
	}
}

// Level returns the current pressure level.
func (g *Guard) Level() Level {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

// History exposes the rolling sample history.
func (g *Guard) History() *History { return g.history }
