package monitor

import (
	"os/exec"
)

// Cleaner attempts to release GPU memory. force distinguishes a forced pass
// (may reset driver state) from a gentle cache-clearing pass.
type Cleaner interface {
	Name() string
	Cleanup(force bool) error
}

// CleanerAttempt records one cleaner invocation during a cleanup pass.
type CleanerAttempt struct {
	Name string
	Err  string
}

// CleanupResult summarizes one cleanup pass across all configured cleaners.
type CleanupResult struct {
	Forced   bool
	Attempts []CleanerAttempt
	// FreedGB is used_before - used_after, floored at zero.
	FreedGB float64
}

// CommandCleaner shells out to an operator-configured command, e.g. a script
// that clears a runtime's allocator cache. forceArgs, when set, replaces args
// for forced passes.
type CommandCleaner struct {
	CleanerName string
	Bin         string
	Args        []string
	ForceArgs   []string
}

func (c CommandCleaner) Name() string { return c.CleanerName }

func (c CommandCleaner) Cleanup(force bool) error {
	args := c.Args
	if force && len(c.ForceArgs) > 0 {
		args = c.ForceArgs
	}
	if _, err := exec.LookPath(c.Bin); err != nil {
		return ErrBackendUnavailable(c.CleanerName, "binary not found")
	}
	return exec.Command(c.Bin, args...).Run()
}
