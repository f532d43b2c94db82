package launcher

import (
	"time"

	"launcherd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultBufferMaxSize    = 10000
	defaultDisplayThreshold = 500
	defaultStopGrace        = 5 * time.Second
	defaultMaxRestarts      = 3
	defaultRestartWindow    = 300 * time.Second
	defaultRestartDelay     = 5 * time.Second
)

// Config encapsulates all tunables for Launcher construction.
type Config struct {
	// Catalog of tools this launcher may start.
	Catalog []types.Tool
	// Output buffer sizing.
	BufferMaxSize    int
	DisplayThreshold int
	// Grace period before a stop escalates from terminate to kill.
	StopGrace time.Duration
	// Restart policy tunables.
	MaxRestarts   int
	RestartWindow time.Duration
	RestartDelay  time.Duration
}
