package launcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"launcherd/internal/monitor"
	"launcherd/pkg/types"
)

// Sampler reports OS-level resource usage for a pid. Implemented by
// monitor.ProcSampler; tests substitute fakes.
type Sampler interface {
	Sample(pid int) (monitor.ProcStats, error)
}

// Launcher is the facade the GUI/API layer talks to: it owns the registry,
// the restart policy, per-session monitors, and the observer fan-out. One
// Launcher per session; nothing here is package-level state.
type Launcher struct {
	cfg      Config
	reg      *Registry
	policy   *RestartPolicy
	guard    *monitor.Guard // nil when VRAM monitoring is disabled
	sampler  Sampler        // nil disables CPU/memory figures in Status
	log      zerolog.Logger
	startAt  time.Time
	closed   atomic.Bool
	starts   atomic.Uint64
	crashes  atomic.Uint64
	restarts atomic.Uint64

	obsMu     sync.Mutex
	errObs    []ErrorObserver
	publisher EventPublisher

	catMu   sync.RWMutex
	catalog map[string]types.Tool
}

// New constructs a Launcher from cfg with defaults applied.
func New(cfg Config, log zerolog.Logger) *Launcher {
	if cfg.BufferMaxSize <= 0 {
		cfg.BufferMaxSize = defaultBufferMaxSize
	}
	if cfg.DisplayThreshold <= 0 {
		cfg.DisplayThreshold = defaultDisplayThreshold
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	l := &Launcher{
		cfg:       cfg,
		reg:       newRegistry(log, cfg.BufferMaxSize, cfg.DisplayThreshold),
		policy:    NewRestartPolicy(cfg.MaxRestarts, cfg.RestartWindow, cfg.RestartDelay),
		log:       log.With().Str("component", "launcher").Logger(),
		startAt:   time.Now(),
		publisher: noopPublisher{},
		catalog:   make(map[string]types.Tool, len(cfg.Catalog)),
	}
	for _, t := range cfg.Catalog {
		l.catalog[t.Name] = t
	}
	return l
}

// SetGuard attaches a per-session VRAM guard. Must be called before serving.
func (l *Launcher) SetGuard(g *monitor.Guard) { l.guard = g }

// SetSampler attaches a resource sampler used by Status.
func (l *Launcher) SetSampler(s Sampler) { l.sampler = s }

// SetPublisher installs an EventPublisher for lifecycle events.
func (l *Launcher) SetPublisher(p EventPublisher) {
	if p == nil {
		l.publisher = noopPublisher{}
		return
	}
	l.publisher = p
}

// Guard returns the attached VRAM guard, nil when monitoring is disabled.
func (l *Launcher) Guard() *monitor.Guard { return l.guard }

// RegisterErrorObserver adds an observer notified once per crash.
func (l *Launcher) RegisterErrorObserver(o ErrorObserver) {
	l.obsMu.Lock()
	l.errObs = append(l.errObs, o)
	l.obsMu.Unlock()
}

// UnregisterErrorObserver removes a previously registered observer.
func (l *Launcher) UnregisterErrorObserver(o ErrorObserver) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	for i, cur := range l.errObs {
		if cur == o {
			l.errObs = append(l.errObs[:i], l.errObs[i+1:]...)
			return
		}
	}
}

// RegisterVRAMObserver forwards to the attached guard. A no-op without one.
func (l *Launcher) RegisterVRAMObserver(o monitor.Observer) {
	if l.guard != nil {
		l.guard.AddObserver(o)
	}
}

// Tools lists the configured tool catalog.
func (l *Launcher) Tools() []types.Tool {
	l.catMu.RLock()
	defer l.catMu.RUnlock()
	out := make([]types.Tool, 0, len(l.catalog))
	for _, t := range l.catalog {
		out = append(out, t)
	}
	return out
}

func (l *Launcher) lookupTool(name string) (types.Tool, bool) {
	l.catMu.RLock()
	defer l.catMu.RUnlock()
	t, ok := l.catalog[name]
	return t, ok
}

// StartInstance creates a fresh instance slot for a cataloged tool and spawns
// its process, returning the assigned index.
func (l *Launcher) StartInstance(tool string) (int, error) {
	t, ok := l.lookupTool(tool)
	if !ok {
		return 0, ErrToolNotFound(tool)
	}
	return l.StartInstanceWith(tool, t.Command, t.WorkDir)
}

// StartInstanceWith spawns an instance with an explicit command vector and
// working directory, bypassing the catalog. The command is always passed as a
// vector; there is no shell interpolation path.
func (l *Launcher) StartInstanceWith(tool string, command []string, dir string) (int, error) {
	if l.closed.Load() {
		return 0, ErrSpawn(tool, "launcher is shut down")
	}
	inst, idx := l.reg.GetOrCreate(tool)
	inst.setOnExit(l.handleExit)
	// A manual start gets a fresh restart budget.
	l.policy.Reset(tool, idx)
	if err := inst.Start(command, dir); err != nil {
		// The slot stays for a retried start; it holds no process.
		return idx, err
	}
	l.starts.Add(1)
	processStartsTotal.WithLabelValues(tool).Inc()
	instancesRunning.WithLabelValues(tool).Inc()
	l.publish("instance_start", tool, idx, map[string]any{"pid": inst.PID()})
	return idx, nil
}

// StopInstance terminates the instance with the configured grace period.
// Safe to call on an already-stopped instance.
func (l *Launcher) StopInstance(tool string, index int) error {
	inst, err := l.reg.Find(tool, index)
	if err != nil {
		return err
	}
	err = inst.Stop(l.cfg.StopGrace)
	l.publish("instance_stop", tool, index, nil)
	return err
}

// RemoveInstance stops the instance if needed and clears its slot. Crashed
// instances keep their slot until removed explicitly, so their buffer stays
// inspectable.
func (l *Launcher) RemoveInstance(tool string, index int) error {
	inst, err := l.reg.Find(tool, index)
	if err != nil {
		return err
	}
	if st := inst.Poll(); st == StateRunning || st == StateStarting {
		if err := l.StopInstance(tool, index); err != nil && !IsStop(err) {
			return err
		}
	}
	return l.reg.Remove(tool, index)
}

// Output returns the instance's buffered output filtered by f.
func (l *Launcher) Output(tool string, index int, f Filter) ([]types.OutputEntry, error) {
	inst, err := l.reg.Find(tool, index)
	if err != nil {
		return nil, err
	}
	return inst.Buffer().Snapshot(f), nil
}

// ClearOutput drops the instance's buffered output.
func (l *Launcher) ClearOutput(tool string, index int) error {
	inst, err := l.reg.Find(tool, index)
	if err != nil {
		return err
	}
	inst.Buffer().Clear()
	return nil
}

// Instance exposes a single instance for the HTTP layer's detail view.
func (l *Launcher) Instance(tool string, index int) (*Instance, error) {
	return l.reg.Find(tool, index)
}

// Ready reports whether the launcher accepts work.
func (l *Launcher) Ready() bool { return !l.closed.Load() }

// Close stops every running instance and rejects further starts.
func (l *Launcher) Close() error {
	l.closed.Store(true)
	for _, inst := range l.reg.All() {
		if st := inst.Poll(); st == StateRunning || st == StateStarting {
			if err := inst.Stop(l.cfg.StopGrace); err != nil {
				l.log.Warn().Err(err).Str("tool", inst.Tool()).Int("instance", inst.Index()).Msg("stop during close failed")
			}
		}
	}
	return nil
}

// handleExit runs exactly once per process run, after the exit reaper has
// reconciled state. Crashes fan out to observers and may schedule a restart.
func (l *Launcher) handleExit(inst *Instance, exit ExitInfo, crashed bool) {
	tool, idx := inst.Tool(), inst.Index()
	// The reaper fires exactly once per run, for every exit path (crash,
	// user stop, clean self-exit), so the running gauge is balanced here
	// and nowhere else.
	instancesRunning.WithLabelValues(tool).Dec()
	if !crashed {
		return
	}
	l.crashes.Add(1)
	processCrashesTotal.WithLabelValues(tool).Inc()
	l.publish("instance_crash", tool, idx, map[string]any{"exit_code": exit.Code, "error": exit.Err})

	l.obsMu.Lock()
	observers := append([]ErrorObserver(nil), l.errObs...)
	l.obsMu.Unlock()
	for _, o := range observers {
		o.OnProcessError(tool, idx, exit)
	}

	if t, ok := l.lookupTool(tool); ok && !t.AutoRestart {
		return
	}
	if l.closed.Load() || inst.StopRequested() {
		return
	}
	decision := l.policy.OnProcessError(tool, idx)
	if !decision.Restart {
		l.log.Error().Str("tool", tool).Int("instance", idx).Msg("restart budget exhausted, giving up")
		l.publish("restart_give_up", tool, idx, nil)
		return
	}
	l.restarts.Add(1)
	processRestartsTotal.WithLabelValues(tool).Inc()
	l.publish("restart_scheduled", tool, idx, map[string]any{"delay_seconds": decision.Delay.Seconds()})
	l.log.Info().Str("tool", tool).Int("instance", idx).Dur("delay", decision.Delay).Msg("auto-restart scheduled")

	command, dir := inst.lastCommand()
	time.AfterFunc(decision.Delay, func() {
		// A user stop or shutdown in the meantime wins over the queued restart.
		if l.closed.Load() || inst.StopRequested() {
			return
		}
		if err := inst.Start(command, dir); err != nil {
			l.log.Error().Err(err).Str("tool", tool).Int("instance", idx).Msg("auto-restart failed")
			return
		}
		l.starts.Add(1)
		processStartsTotal.WithLabelValues(tool).Inc()
		instancesRunning.WithLabelValues(tool).Inc()
		l.publish("instance_restart", tool, idx, map[string]any{"pid": inst.PID()})
	})
}

func (l *Launcher) publish(name, tool string, index int, fields map[string]any) {
	l.publisher.Publish(Event{
		ID:     uuid.NewString(),
		Name:   name,
		Tool:   tool,
		Index:  index,
		Fields: fields,
	})
}
