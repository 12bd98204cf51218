package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/dtube-pinner/app/pipeline"
)

type CycleTask struct {
	Task
	Stats  pipeline.CycleStats
	runner CycleRunner
	names  []string
	onDone func(stats pipeline.CycleStats)
}

func NewCycleTask(runner CycleRunner, names []string) *CycleTask {
	return &CycleTask{
		Task:   NewTask(TaskTypePinCycle),
		runner: runner,
		names:  names,
	}
}

// Execute runs one fetch, extract and pin cycle over every feed. Item failures
// are counted in Stats, so the only error is a context cancelled before start.
func (t *CycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.Stats = t.runner.RunCycle(ctx, t.ID, t.names)

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"feeds", t.Stats.Feeds,
		"feed_errors", t.Stats.FeedErrors,
		"posts", t.Stats.Posts,
		"tracked", t.Stats.Tracked,
		"schema_errors", t.Stats.SchemaErrors,
		"pinned", t.Stats.Pinned,
		"pin_errors", t.Stats.PinErrors,
		"pins_skipped", t.Stats.PinsSkipped)

	if t.onDone != nil {
		t.onDone(t.Stats)
	}

	return nil
}
