// Package monitor polls OS-level resource usage for supervised processes and
// guards GPU memory. VRAM readings come from pluggable backends tried in a
// fixed preference order; absence of every backend degrades to a permanent
// "no GPU" report, never an error. The guard's poll loop survives any single
// iteration failure by sleeping a longer fallback interval and retrying.
package monitor
