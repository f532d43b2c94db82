package types

// ToolsResponse wraps the tool catalog returned by GET /tools.
type ToolsResponse struct {
	// Known tools the launcher can start.
	Tools []Tool `json:"tools"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: tool not found: oobabooga
	Error string `json:"error" example:"tool not found: oobabooga"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StartResponse is returned by POST /instances/{tool}/start.
type StartResponse struct {
	// Tool the instance belongs to.
	// example: oobabooga
	Tool string `json:"tool" example:"oobabooga"`
	// Index of the instance within its tool's slot list.
	// example: 0
	Index int `json:"index" example:"0"`
	// Process ID of the spawned process.
	// example: 12345
	PID int `json:"pid" example:"12345"`
}

// InstanceStatus summarizes one instance for GET /status.
type InstanceStatus struct {
	// Tool the instance belongs to.
	// example: oobabooga
	Tool string `json:"tool" example:"oobabooga"`
	// Index of the instance within its tool's slot list.
	// example: 0
	Index int `json:"index" example:"0"`
	// Lifecycle state (stopped, starting, running, stopping, crashed).
	// example: running
	State string `json:"state" example:"running"`
	// Process ID while running, 0 otherwise.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Start time in unix seconds, 0 when never started.
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
	// Uptime in seconds while running.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds,omitempty" example:"3600"`
	// Last sampled CPU usage in percent.
	// example: 42.5
	CPUPercent float64 `json:"cpu_percent,omitempty" example:"42.5"`
	// Last sampled resident memory in MB.
	// example: 2048
	MemoryMB float64 `json:"memory_mb,omitempty" example:"2048"`
	// Automatic restarts performed for this slot within the current window.
	// example: 1
	Restarts int `json:"restarts,omitempty" example:"1"`
	// Exit code of the last run, meaningful when state is crashed or stopped.
	// example: 1
	ExitCode int `json:"exit_code,omitempty" example:"1"`
	// Number of buffered output lines.
	// example: 120
	OutputLines int `json:"output_lines" example:"120"`
}

// VRAMSummary is returned by GET /vram.
type VRAMSummary struct {
	// Whether a VRAM guard is running.
	// example: true
	Monitoring bool `json:"monitoring" example:"true"`
	// Backend the last reading came from (nvidia_smi, none, ...).
	// example: nvidia_smi
	Source string `json:"source" example:"nvidia_smi"`
	// Total VRAM in GB, 0 when no backend is available.
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
	// Current guard level (normal, warning, critical).
	// example: warning
	Level string `json:"level,omitempty" example:"warning"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// All known instances across tools.
	Instances []InstanceStatus `json:"instances"`
	// Current VRAM summary.
	VRAM VRAMSummary `json:"vram"`
	// Daemon uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total successful instance starts.
	// example: 12
	StartsTotal uint64 `json:"starts_total" example:"12"`
	// Total instance crashes observed.
	// example: 2
	CrashesTotal uint64 `json:"crashes_total" example:"2"`
	// Total automatic restarts scheduled.
	// example: 2
	RestartsTotal uint64 `json:"restarts_total" example:"2"`
	// Number of instances currently running.
	// example: 3
	RunningCount int `json:"running_count" example:"3"`
	// Number of instances currently crashed.
	// example: 1
	CrashedCount int `json:"crashed_count" example:"1"`
}

// OutputResponse wraps a filtered view of an instance's output buffer.
type OutputResponse struct {
	// Tool the instance belongs to.
	// example: oobabooga
	Tool string `json:"tool" example:"oobabooga"`
	// Index of the instance.
	// example: 0
	Index int `json:"index" example:"0"`
	// Classified output lines, oldest first.
	Entries []OutputEntry `json:"entries"`
}

// VRAMHistoryResponse wraps the guard's rolling sample history.
type VRAMHistoryResponse struct {
	// Samples, oldest first.
	Samples []VRAMSample `json:"samples"`
}
