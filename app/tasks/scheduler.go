package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/dtube-pinner/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Mode string

const (
	// ModeFixedRate starts cycle N+1 at start + N*interval regardless of how
	// long earlier cycles take. Overlapping cycles share the pipeline pools.
	ModeFixedRate Mode = "fixed-rate"
	// ModeFixedDelay starts the next cycle interval after the previous one
	// finished.
	ModeFixedDelay Mode = "fixed-delay"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFixedRate, ModeFixedDelay:
		return Mode(s), nil
	case "":
		return ModeFixedRate, nil
	}
	return "", fmt.Errorf("unknown schedule mode %q", s)
}

type Scheduler struct {
	runner   CycleRunner
	names    []string
	interval time.Duration
	mode     Mode
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// OnCycleDone, when set, is called after every completed cycle. It may be
	// called concurrently in fixed-rate mode.
	OnCycleDone func(stats pipeline.CycleStats)
}

func NewScheduler(runner CycleRunner, names []string, interval time.Duration, mode Mode) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		names:    names,
		interval: interval,
		mode:     mode,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the first cycle immediately and keeps scheduling cycles until
// Stop is called.
func (s *Scheduler) Start() {
	slog.Debug("Starting scheduler", "mode", string(s.mode), "interval", s.interval, "feeds", len(s.names))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.mode == ModeFixedDelay {
			s.runFixedDelay()
			return
		}
		s.runFixedRate()
	}()
}

// Stop cancels in-flight cycles and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runFixedRate() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.dispatch()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch()
		}
	}
}

func (s *Scheduler) runFixedDelay() {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.executeTask(s.newCycleTask())
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) dispatch() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeTask(s.newCycleTask())
	}()
}

func (s *Scheduler) newCycleTask() *CycleTask {
	task := NewCycleTask(s.runner, s.names)
	task.onDone = s.OnCycleDone
	return task
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	if err := task.Execute(s.ctx); err != nil {
		slog.Debug("Task not run", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}
