package types

// Tool describes an external program the launcher can start and supervise.
type Tool struct {
	// Logical tool name, unique within the catalog.
	// example: oobabooga
	Name string `json:"name" yaml:"name" toml:"name" example:"oobabooga"`
	// Executable and arguments, passed as a vector (never a shell string).
	// example: ["python","server.py","--listen"]
	Command []string `json:"command" yaml:"command" toml:"command"`
	// Working directory for the process. Empty means the daemon's cwd.
	// example: /opt/oobabooga
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir" toml:"work_dir" example:"/opt/oobabooga"`
	// Whether crashed instances are restarted automatically.
	// example: true
	AutoRestart bool `json:"auto_restart,omitempty" yaml:"auto_restart" toml:"auto_restart" example:"true"`
}

// OutputStream identifies which pipe a line came from.
type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// OutputType classifies a single line of process output.
type OutputType string

const (
	OutputError   OutputType = "error"
	OutputWarning OutputType = "warning"
	OutputSuccess OutputType = "success"
	OutputInfo    OutputType = "info"
	OutputDebug   OutputType = "debug"
	OutputCommand OutputType = "command"
	OutputPlain   OutputType = "output"
	OutputUnknown OutputType = "unknown"
)

// OutputEntry is one classified line of process output. Entries are immutable
// once created and owned by the instance's output buffer.
type OutputEntry struct {
	// Unix timestamp in seconds (fractional).
	// example: 1700000000.25
	Timestamp float64 `json:"ts" example:"1700000000.25"`
	// The line content, trailing newline removed.
	// example: Error: CUDA out of memory
	Line string `json:"line" example:"Error: CUDA out of memory"`
	// Pipe the line was read from (stdout or stderr).
	// example: stderr
	Stream OutputStream `json:"stream" example:"stderr"`
	// Classified type of the line.
	// example: error
	Type OutputType `json:"type" example:"error"`
	// Severity 0 (benign) to 10 (fatal).
	// example: 8
	Severity int `json:"severity" example:"8"`
	// Keyword tags extracted from the line (may be empty).
	// example: ["memory"]
	Tags []string `json:"tags,omitempty"`
	// Advisory metadata (extracted numbers, urls, ...). Best effort.
	Meta map[string]string `json:"meta,omitempty"`
}

// VRAMSample is a single GPU memory reading kept in the guard's history.
type VRAMSample struct {
	// Unix timestamp in seconds.
	// example: 1700000000
	Timestamp float64 `json:"ts" example:"1700000000"`
	// Backend that produced the reading (e.g. nvidia_smi, none).
	// example: nvidia_smi
	Source string `json:"source" example:"nvidia_smi"`
	// Total VRAM in GB.
	// example: 24.0
	TotalGB float64 `json:"total_gb" example:"24.0"`
	// Used VRAM in GB.
	// example: 19.5
	UsedGB float64 `json:"used_gb" example:"19.5"`
	// Free VRAM in GB.
	// example: 4.5
	FreeGB float64 `json:"free_gb" example:"4.5"`
	// Used/total in percent.
	// example: 81.25
	UsagePercent float64 `json:"usage_percent" example:"81.25"`
}
