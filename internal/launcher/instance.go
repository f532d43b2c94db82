package launcher

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"launcherd/pkg/types"
)

// InstanceState is the lifecycle state of one supervised process.
type InstanceState string

const (
	StateStopped  InstanceState = "stopped"
	StateStarting InstanceState = "starting"
	StateRunning  InstanceState = "running"
	StateStopping InstanceState = "stopping"
	StateCrashed  InstanceState = "crashed"
)

const readerBufBytes = 1 << 20 // tolerate very long single lines (progress bars)

// Instance owns one OS subprocess: its command handle, reader goroutines, and
// output buffer. All state transitions happen under mu; pipe reads happen on
// dedicated goroutines so blocking I/O never holds the lock.
//
// Invariant: pid and cmd are set iff state is running (or stopping while the
// process winds down). A crashed or stopped instance keeps its slot, buffer,
// and last exit code for inspection and restart.
type Instance struct {
	tool  string
	index int
	buf   *OutputBuffer
	log   zerolog.Logger

	mu            sync.Mutex
	cmd           *exec.Cmd
	pid           int
	startTime     time.Time
	state         InstanceState
	exitCode      int
	stopRequested bool
	waitDone      chan struct{}
	lastCmd       []string
	lastDir       string

	// onExit is invoked exactly once per run after the process has exited
	// and its pipes are drained. crashed is true for nonzero exits that were
	// not user-requested stops.
	onExit func(inst *Instance, exit ExitInfo, crashed bool)
}

func newInstance(tool string, index int, buf *OutputBuffer, log zerolog.Logger) *Instance {
	return &Instance{
		tool:  tool,
		index: index,
		buf:   buf,
		state: StateStopped,
		log:   log.With().Str("tool", tool).Int("instance", index).Logger(),
	}
}

func (i *Instance) Tool() string          { return i.tool }
func (i *Instance) Index() int            { return i.index }
func (i *Instance) Buffer() *OutputBuffer { return i.buf }

// Start spawns the process from an argument vector. It fails with a spawn
// error when the executable does not resolve or the working directory is
// missing. Arguments are never joined into a shell string.
func (i *Instance) Start(command []string, dir string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == StateRunning || i.state == StateStarting || i.state == StateStopping {
		return ErrSpawn(i.tool, "instance already active")
	}
	if len(command) == 0 {
		return ErrSpawn(i.tool, "empty command")
	}
	bin, err := exec.LookPath(command[0])
	if err != nil {
		return ErrSpawn(i.tool, fmt.Sprintf("executable not found: %s", command[0]))
	}
	if dir != "" {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			return ErrSpawn(i.tool, fmt.Sprintf("working directory missing: %s", dir))
		}
	}

	cmd := exec.Command(bin, command[1:]...)
	cmd.Dir = dir
	setSysProcAttr(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ErrSpawn(i.tool, "stdout pipe: "+err.Error())
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ErrSpawn(i.tool, "stderr pipe: "+err.Error())
	}

	i.state = StateStarting
	if err := cmd.Start(); err != nil {
		i.state = StateStopped
		return ErrSpawn(i.tool, err.Error())
	}

	i.cmd = cmd
	i.pid = cmd.Process.Pid
	i.startTime = time.Now()
	i.state = StateRunning
	i.stopRequested = false
	i.waitDone = make(chan struct{})
	i.lastCmd = append([]string(nil), command...)
	i.lastDir = dir
	i.log.Info().Int("pid", i.pid).Strs("command", command).Msg("process started")

	var readers sync.WaitGroup
	readers.Add(2)
	go i.readPipe(stdout, types.StreamStdout, &readers)
	go i.readPipe(stderr, types.StreamStderr, &readers)
	go i.waitForExit(cmd, &readers, i.waitDone)
	return nil
}

// readPipe consumes one pipe line by line, pushing each line through the
// analyzer into the buffer. It terminates on EOF when the process exits; no
// external cancellation flag is needed.
func (i *Instance) readPipe(r io.Reader, stream types.OutputStream, wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), readerBufBytes)
	for sc.Scan() {
		i.buf.Push(Analyze(sc.Text(), stream))
	}
}

// waitForExit reaps the process after both pipes hit EOF and reconciles state.
func (i *Instance) waitForExit(cmd *exec.Cmd, readers *sync.WaitGroup, done chan struct{}) {
	readers.Wait()
	waitErr := cmd.Wait()

	i.mu.Lock()
	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	i.exitCode = code
	i.cmd = nil
	i.pid = 0
	crashed := !i.stopRequested && (waitErr != nil || code != 0)
	if crashed {
		i.state = StateCrashed
	} else {
		i.state = StateStopped
	}
	onExit := i.onExit
	i.mu.Unlock()
	close(done)

	exit := ExitInfo{Code: code, LastError: i.buf.LastError()}
	if waitErr != nil {
		exit.Err = waitErr.Error()
	}
	if crashed {
		i.log.Warn().Int("exit_code", code).Str("err", exit.Err).Msg("process crashed")
	} else {
		i.log.Info().Int("exit_code", code).Msg("process exited")
	}
	if onExit != nil {
		onExit(i, exit, crashed)
	}
}

// Stop terminates the process: TERM to the process tree, wait up to grace,
// then KILL. Idempotent and safe against a concurrent reader shutdown. On
// return the instance is always stopped with pid cleared, even when
// termination itself errored (best effort).
func (i *Instance) Stop(grace time.Duration) error {
	i.mu.Lock()
	i.stopRequested = true
	if i.state == StateStopping {
		// Another Stop is mid-escalation; wait for it instead of
		// rewriting state while the process may still be alive.
		done := i.waitDone
		i.mu.Unlock()
		select {
		case <-done:
		case <-time.After(grace + 2*time.Second):
		}
		return nil
	}
	if i.state != StateRunning && i.state != StateStarting {
		i.state = StateStopped
		i.mu.Unlock()
		return nil
	}
	i.state = StateStopping
	pid := i.pid
	done := i.waitDone
	i.mu.Unlock()

	if err := terminateTree(pid); err != nil {
		i.log.Debug().Err(err).Int("pid", pid).Msg("terminate signal failed")
	}
	select {
	case <-done:
		return nil
	case <-time.After(grace):
	}

	if err := killTree(pid); err != nil {
		i.log.Error().Err(err).Int("pid", pid).Msg("kill failed")
	}
	select {
	case <-done:
		return nil
	case <-time.After(2 * time.Second):
		// The process survived KILL (or the reaper is wedged behind it).
		// Force the bookkeeping into a consistent stopped shape anyway.
		i.mu.Lock()
		i.state = StateStopped
		i.pid = 0
		i.cmd = nil
		i.mu.Unlock()
		return ErrStop(i.tool, i.index, "process did not exit after kill")
	}
}

// Poll returns the current lifecycle state without blocking. The exit reaper
// reconciles running -> crashed on its own, so Poll observes crashes that
// happened since the last call without requiring an explicit Stop.
func (i *Instance) Poll() InstanceState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// PID returns the OS process id, 0 when not running.
func (i *Instance) PID() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pid
}

// StartTime returns when the current (or last) run began.
func (i *Instance) StartTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startTime
}

// ExitCode returns the exit code of the last completed run.
func (i *Instance) ExitCode() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

// StopRequested reports whether the last stop was user-initiated. Restart
// scheduling checks this so a deliberate stop is never undone by a queued
// auto-restart.
func (i *Instance) StopRequested() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopRequested
}

// lastCommand returns the vector and directory of the most recent Start, used
// by restart scheduling.
func (i *Instance) lastCommand() ([]string, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.lastCmd...), i.lastDir
}

func (i *Instance) setOnExit(fn func(*Instance, ExitInfo, bool)) {
	i.mu.Lock()
	i.onExit = fn
	i.mu.Unlock()
}
