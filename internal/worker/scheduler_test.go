package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
)

// recordingRunner completes jobs through the registry and records the order
// it saw them in, tracking concurrent invocations.
type recordingRunner struct {
	registry *registry.Registry
	mu       sync.Mutex
	order    []string
	failFor  map[string]bool
	active   int32
	maxSeen  int32
}

func (r *recordingRunner) Run(ctx context.Context, job *model.Job) error {
	active := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		seen := atomic.LoadInt32(&r.maxSeen)
		if active <= seen || atomic.CompareAndSwapInt32(&r.maxSeen, seen, active) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.order = append(r.order, job.ID)
	failed := r.failFor[job.ID]
	r.mu.Unlock()

	if failed {
		return errors.New("simulated run failure")
	}
	if _, err := r.registry.Complete(job.ID); err != nil {
		return err
	}
	return nil
}

func (r *recordingRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func TestSchedulerProcessesInOrder(t *testing.T) {
	reg := registry.New(testEndpoints)
	runner := &recordingRunner{registry: reg}
	sched := NewScheduler(reg, runner, 8, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		job := reg.Create(model.JobSpec{Prompt: "p", PromptMode: model.PromptModeSame, Count: 1}, i)
		ids = append(ids, job.ID)
		if err := sched.Enqueue(job.ID); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitFor(t, 2*time.Second, func() bool { return len(runner.seen()) == 3 })

	got := runner.seen()
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("processing order %v, want submission order %v", got, ids)
		}
	}
	if max := atomic.LoadInt32(&runner.maxSeen); max != 1 {
		t.Errorf("saw %d concurrent jobs, scheduler must be single-flight", max)
	}
}

func TestSchedulerSkipsCancelledJob(t *testing.T) {
	reg := registry.New(testEndpoints)
	runner := &recordingRunner{registry: reg}
	sched := NewScheduler(reg, runner, 8, nil)

	first := reg.Create(model.JobSpec{Prompt: "p", PromptMode: model.PromptModeSame, Count: 1}, 0)
	second := reg.Create(model.JobSpec{Prompt: "p", PromptMode: model.PromptModeSame, Count: 1}, 1)
	sched.Enqueue(first.ID)
	sched.Enqueue(second.ID)

	if _, err := reg.Cancel(first.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitFor(t, 2*time.Second, func() bool {
		job, err := reg.Get(second.ID)
		return err == nil && job.Status == model.JobStatusComplete
	})

	got, _ := reg.Get(first.ID)
	if got.Status != model.JobStatusCancelled {
		t.Errorf("cancelled job status = %q, want cancelled", got.Status)
	}
	for _, id := range runner.seen() {
		if id == first.ID {
			t.Error("runner must never see a cancelled job")
		}
	}
}

func TestSchedulerContinuesAfterFailure(t *testing.T) {
	reg := registry.New(testEndpoints)
	first := reg.Create(model.JobSpec{Prompt: "p", PromptMode: model.PromptModeSame, Count: 1}, 0)
	second := reg.Create(model.JobSpec{Prompt: "p", PromptMode: model.PromptModeSame, Count: 1}, 1)

	runner := &recordingRunner{registry: reg, failFor: map[string]bool{first.ID: true}}
	sched := NewScheduler(reg, runner, 8, nil)
	sched.Enqueue(first.ID)
	sched.Enqueue(second.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitFor(t, 2*time.Second, func() bool {
		job, err := reg.Get(second.ID)
		return err == nil && job.Status == model.JobStatusComplete
	})

	got, _ := reg.Get(first.ID)
	if got.Status != model.JobStatusError {
		t.Errorf("failed job status = %q, want error", got.Status)
	}
	if got.Error != "simulated run failure" {
		t.Errorf("failed job error = %q", got.Error)
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	reg := registry.New(testEndpoints)
	sched := NewScheduler(reg, &recordingRunner{registry: reg}, 1, nil)

	if err := sched.Enqueue("a"); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := sched.Enqueue("b"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if sched.QueueDepth() != 1 {
		t.Errorf("queue depth = %d, want 1", sched.QueueDepth())
	}
}

func TestSchedulerDrain(t *testing.T) {
	reg := registry.New(testEndpoints)
	sched := NewScheduler(reg, &recordingRunner{registry: reg}, 8, nil)

	sched.Enqueue("a")
	sched.Enqueue("b")
	sched.Enqueue("c")

	if drained := sched.Drain(); drained != 3 {
		t.Errorf("drained %d, want 3", drained)
	}
	if sched.QueueDepth() != 0 {
		t.Errorf("queue depth after drain = %d, want 0", sched.QueueDepth())
	}
}
