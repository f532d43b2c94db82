// Package launcher provides process lifecycle, output capture, and restart
// coordination for external tool instances. It is structured into small files
// by concern:
//
//   - launcher.go: core Launcher type, constructor, start/stop/output API.
//   - config.go: Config and package defaults, applied by New.
//   - analyzer.go: line classification (type, severity, tags) as static data.
//   - buffer.go: per-instance bounded output buffer with filters.
//   - instance.go: one OS subprocess with reader goroutines and stop logic.
//   - registry.go: tool name -> instance slots with stable indices.
//   - restart.go: flat-window automatic restart policy.
//   - errors.go: error types and helpers (IsNotFound, IsSpawn, IsStop).
//   - events.go: Event type and observer interfaces.
//   - status_report.go: Status projection for the HTTP layer.
//   - metrics.go: prometheus counters for process lifecycle.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New, StartInstance, StopInstance,
// Output, Status, Close). Internal types are subject to change.
package launcher
