package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/dtube-pinner/app/pipeline"
)

type fakeRunner struct {
	duration time.Duration
	block    bool

	mu        sync.Mutex
	starts    []time.Time
	cycleIDs  []string
	names     []string
	cancelled atomic.Int64
}

func (r *fakeRunner) RunCycle(ctx context.Context, cycleID string, names []string) pipeline.CycleStats {
	r.mu.Lock()
	r.starts = append(r.starts, time.Now())
	r.cycleIDs = append(r.cycleIDs, cycleID)
	r.names = names
	r.mu.Unlock()

	wait := r.duration
	if r.block {
		wait = time.Hour
	}

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		r.cancelled.Add(1)
	}

	return pipeline.CycleStats{Feeds: len(names)}
}

func (r *fakeRunner) startTimes() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.starts...)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
		wantErr  bool
	}{
		{"fixed-rate", ModeFixedRate, false},
		{"fixed-delay", ModeFixedDelay, false},
		{"", ModeFixedRate, false},
		{"cron", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if mode != tt.expected {
				t.Errorf("Expected mode '%s', got '%s'", tt.expected, mode)
			}
		})
	}
}

func TestCycleTask_Execute(t *testing.T) {
	runner := &fakeRunner{}
	task := NewCycleTask(runner, []string{"alice", "bob"})

	if _, err := uuid.Parse(task.GetID()); err != nil {
		t.Errorf("Expected uuid task ID, got '%s'", task.GetID())
	}
	if task.GetType() != TaskTypePinCycle {
		t.Errorf("Expected type '%s', got '%s'", TaskTypePinCycle, task.GetType())
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.Stats.Feeds != 2 {
		t.Errorf("Expected 2 feeds in stats, got %d", task.Stats.Feeds)
	}
	if len(runner.cycleIDs) != 1 || runner.cycleIDs[0] != task.GetID() {
		t.Errorf("Expected cycle ID to be the task ID, got %v", runner.cycleIDs)
	}
	if task.GetDuration() <= 0 {
		t.Error("Expected positive duration after start")
	}
}

func TestCycleTask_ExecuteCancelled(t *testing.T) {
	runner := &fakeRunner{}
	task := NewCycleTask(runner, []string{"alice"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
	if len(runner.startTimes()) != 0 {
		t.Error("Expected runner not to be called")
	}
}

func TestNewCycleTask_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewCycleTask(&fakeRunner{}, nil).GetID()
		if seen[id] {
			t.Fatalf("Duplicate task ID %s", id)
		}
		seen[id] = true
	}
}

func TestScheduler_FixedRateNotDelayedBySlowCycles(t *testing.T) {
	interval := 50 * time.Millisecond
	runner := &fakeRunner{duration: 4 * interval}

	scheduler := NewScheduler(runner, []string{"phc"}, interval, ModeFixedRate)
	started := time.Now()
	scheduler.Start()

	time.Sleep(5*interval + interval/2)
	scheduler.Stop()

	starts := runner.startTimes()
	if len(starts) < 4 {
		t.Fatalf("Expected at least 4 cycles to start, got %d", len(starts))
	}
	if first := starts[0].Sub(started); first > interval/2 {
		t.Errorf("Expected first cycle to start immediately, started after %v", first)
	}
	// The first cycle is still running when the second one starts.
	if gap := starts[1].Sub(starts[0]); gap > 2*interval {
		t.Errorf("Expected second cycle about %v after the first, got %v", interval, gap)
	}
}

func TestScheduler_FixedDelayWaitsForCompletion(t *testing.T) {
	interval := 20 * time.Millisecond
	duration := 60 * time.Millisecond
	runner := &fakeRunner{duration: duration}

	scheduler := NewScheduler(runner, []string{"phc"}, interval, ModeFixedDelay)
	scheduler.Start()

	time.Sleep(200 * time.Millisecond)
	scheduler.Stop()

	starts := runner.startTimes()
	if len(starts) < 2 {
		t.Fatalf("Expected at least 2 cycles to start, got %d", len(starts))
	}
	if gap := starts[1].Sub(starts[0]); gap < duration+interval {
		t.Errorf("Expected at least %v between cycles, got %v", duration+interval, gap)
	}
}

func TestScheduler_StopCancelsRunningCycles(t *testing.T) {
	runner := &fakeRunner{block: true}

	scheduler := NewScheduler(runner, []string{"phc"}, time.Hour, ModeFixedRate)
	scheduler.Start()

	deadline := time.Now().Add(time.Second)
	for len(runner.startTimes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if runner.cancelled.Load() != 1 {
		t.Errorf("Expected the running cycle to observe cancellation, got %d", runner.cancelled.Load())
	}
}

type recordingTask struct {
	Task
	started  bool
	executed bool
	err      error
}

func (t *recordingTask) Start() {
	t.started = true
	t.Task.Start()
}

func (t *recordingTask) Execute(ctx context.Context) error {
	t.executed = true
	return t.err
}

func TestScheduler_ExecuteTask(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(&fakeRunner{}, nil, time.Hour, ModeFixedRate)
			task := &recordingTask{Task: NewTask(TaskTypePinCycle), err: tt.err}

			scheduler.executeTask(task)

			if !task.started || !task.executed {
				t.Errorf("Expected task to be started and executed, got started=%v executed=%v", task.started, task.executed)
			}
			if task.StartedAt == nil {
				t.Error("Expected start time to be recorded")
			}
		})
	}
}

func TestScheduler_OnCycleDone(t *testing.T) {
	runner := &fakeRunner{}

	var calls atomic.Int64
	done := make(chan pipeline.CycleStats, 1)

	scheduler := NewScheduler(runner, []string{"alice", "bob", "carol"}, time.Hour, ModeFixedRate)
	scheduler.OnCycleDone = func(stats pipeline.CycleStats) {
		if calls.Add(1) == 1 {
			done <- stats
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	select {
	case stats := <-done:
		if stats.Feeds != 3 {
			t.Errorf("Expected 3 feeds, got %d", stats.Feeds)
		}
	case <-time.After(time.Second):
		t.Fatal("OnCycleDone was not called")
	}
}
