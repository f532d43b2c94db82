package launcher

import (
	"sort"
	"time"

	"launcherd/pkg/types"
)

// Status builds a detailed status response for /status.
func (l *Launcher) Status() types.StatusResponse {
	now := time.Now()
	resp := types.StatusResponse{
		UptimeSeconds:  int64(now.Sub(l.startAt).Seconds()),
		ServerTimeUnix: now.Unix(),
		StartsTotal:    l.starts.Load(),
		CrashesTotal:   l.crashes.Load(),
		RestartsTotal:  l.restarts.Load(),
	}

	instances := l.reg.All()
	sort.Slice(instances, func(a, b int) bool {
		if instances[a].Tool() != instances[b].Tool() {
			return instances[a].Tool() < instances[b].Tool()
		}
		return instances[a].Index() < instances[b].Index()
	})

	resp.Instances = make([]types.InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		is := l.instanceStatus(inst, now)
		switch InstanceState(is.State) {
		case StateRunning, StateStarting, StateStopping:
			resp.RunningCount++
		case StateCrashed:
			resp.CrashedCount++
		}
		resp.Instances = append(resp.Instances, is)
	}

	resp.VRAM = l.VRAMSummary()
	return resp
}

// InstanceStatus projects a single instance for the HTTP layer's detail view.
func (l *Launcher) InstanceStatus(tool string, index int) (types.InstanceStatus, error) {
	inst, err := l.reg.Find(tool, index)
	if err != nil {
		return types.InstanceStatus{}, err
	}
	return l.instanceStatus(inst, time.Now()), nil
}

func (l *Launcher) instanceStatus(inst *Instance, now time.Time) types.InstanceStatus {
	st := inst.Poll()
	is := types.InstanceStatus{
		Tool:        inst.Tool(),
		Index:       inst.Index(),
		State:       string(st),
		Restarts:    l.policy.Attempts(inst.Tool(), inst.Index()),
		OutputLines: inst.Buffer().Len(),
	}
	switch st {
	case StateRunning, StateStarting, StateStopping:
		is.PID = inst.PID()
		started := inst.StartTime()
		is.StartedUnix = started.Unix()
		is.UptimeSeconds = int64(now.Sub(started).Seconds())
		if l.sampler != nil && is.PID > 0 {
			if ps, err := l.sampler.Sample(is.PID); err == nil {
				is.CPUPercent = ps.CPUPercent
				is.MemoryMB = ps.MemoryMB
			}
		}
	default:
		is.ExitCode = inst.ExitCode()
	}
	return is
}

// VRAMSummary reports the guard's current view; without a guard the summary
// degrades to monitoring=false with source "none".
func (l *Launcher) VRAMSummary() types.VRAMSummary {
	if l.guard == nil {
		return types.VRAMSummary{Monitoring: false, Source: "none"}
	}
	return l.guard.Summary()
}

// VRAMHistory returns the guard's rolling sample history, empty without a guard.
func (l *Launcher) VRAMHistory() []types.VRAMSample {
	if l.guard == nil {
		return nil
	}
	return l.guard.History().Samples()
}
