package launcher

import "fmt"

// notFoundError signals an unknown tool or out-of-range instance index for
// 404 mapping. Lookup paths return it instead of panicking because they are
// reached from request handlers.
type notFoundError struct {
	tool  string
	index int
}

func (e notFoundError) Error() string {
	if e.index < 0 {
		return "tool not found: " + e.tool
	}
	return fmt.Sprintf("instance not found: %s[%d]", e.tool, e.index)
}

// ErrToolNotFound returns an error for an unknown tool name.
func ErrToolNotFound(tool string) error { return notFoundError{tool: tool, index: -1} }

// ErrInstanceNotFound returns an error for an out-of-range instance index.
func ErrInstanceNotFound(tool string, index int) error {
	return notFoundError{tool: tool, index: index}
}

// IsNotFound reports whether err indicates a missing tool or instance.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// spawnError signals that a process could not be started (bad executable,
// missing working directory, fork failure).
type spawnError struct {
	tool   string
	reason string
}

func (e spawnError) Error() string { return "spawn " + e.tool + ": " + e.reason }

// ErrSpawn constructs a spawnError.
func ErrSpawn(tool, reason string) error { return spawnError{tool: tool, reason: reason} }

// IsSpawn reports whether err indicates a failed process start.
func IsSpawn(err error) bool {
	_, ok := err.(spawnError)
	return ok
}

// stopError signals that a process survived both terminate and kill. Rare;
// logged by callers, never fatal.
type stopError struct {
	tool   string
	index  int
	reason string
}

func (e stopError) Error() string {
	return fmt.Sprintf("stop %s[%d]: %s", e.tool, e.index, e.reason)
}

// ErrStop constructs a stopError.
func ErrStop(tool string, index int, reason string) error {
	return stopError{tool: tool, index: index, reason: reason}
}

// IsStop reports whether err indicates a failed termination.
func IsStop(err error) bool {
	_, ok := err.(stopError)
	return ok
}
