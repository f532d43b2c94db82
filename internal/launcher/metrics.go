package launcher

import "github.com/prometheus/client_golang/prometheus"

var (
	processStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcherd",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Total successful process starts",
		},
		[]string{"tool"},
	)

	processCrashesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcherd",
			Subsystem: "process",
			Name:      "crashes_total",
			Help:      "Total process crashes observed",
		},
		[]string{"tool"},
	)

	processRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcherd",
			Subsystem: "process",
			Name:      "restarts_total",
			Help:      "Total automatic restarts scheduled",
		},
		[]string{"tool"},
	)

	instancesRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "launcherd",
			Subsystem: "process",
			Name:      "instances_running",
			Help:      "Instances currently in the running state",
		},
		[]string{"tool"},
	)
)

func init() {
	prometheus.MustRegister(processStartsTotal, processCrashesTotal, processRestartsTotal, instancesRunning)
}
