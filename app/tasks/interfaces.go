package tasks

import (
	"context"

	"github.com/lysyi3m/dtube-pinner/app/pipeline"
)

// CycleRunner runs a single pinning cycle. *pipeline.Pipeline implements it.
type CycleRunner interface {
	RunCycle(ctx context.Context, cycleID string, names []string) pipeline.CycleStats
}

// TaskSchedulerInterface defines the interface for cycle scheduling.
// Example usage:
//
//	scheduler := NewScheduler(p, names, interval, ModeFixedRate)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
}
