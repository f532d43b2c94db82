package monitor

// backendUnavailableError signals that a specific GPU backend is not usable
// on this host (binary missing, driver absent). Always non-fatal: callers
// fall through to the next backend.
type backendUnavailableError struct {
	name string
	msg  string
}

func (e backendUnavailableError) Error() string { return "backend " + e.name + ": " + e.msg }

// ErrBackendUnavailable constructs a backendUnavailableError.
func ErrBackendUnavailable(name, msg string) error {
	return backendUnavailableError{name: name, msg: msg}
}

// IsBackendUnavailable reports whether err indicates a missing GPU backend.
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}
