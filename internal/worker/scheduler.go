package worker

import (
	"context"
	"errors"
	"log"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
)

// ErrQueueFull is returned when a submission would exceed the queue buffer.
var ErrQueueFull = errors.New("job queue is full")

// Runner executes one job to completion. Implemented by JobRunner.
type Runner interface {
	Run(ctx context.Context, job *model.Job) error
}

// Scheduler is the single sequential queue worker: it consumes submitted
// jobs strictly in arrival order, one at a time. Cancelled (or cleared)
// jobs are skipped at dequeue. A job's failure never stops the loop.
type Scheduler struct {
	registry *registry.Registry
	runner   Runner
	notify   ProgressNotifier
	tasks    chan string
}

// NewScheduler creates a scheduler with the given queue buffer size.
// The notifier may be nil.
func NewScheduler(reg *registry.Registry, runner Runner, queueSize int, notify ProgressNotifier) *Scheduler {
	if queueSize <= 0 {
		queueSize = 256
	}
	if notify == nil {
		notify = noopNotifier{}
	}
	return &Scheduler{
		registry: reg,
		runner:   runner,
		notify:   notify,
		tasks:    make(chan string, queueSize),
	}
}

// Enqueue submits a job id without blocking the caller.
func (s *Scheduler) Enqueue(jobID string) error {
	select {
	case s.tasks <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of queued task references. Cancelled jobs
// still occupy their slot until the worker reaches and skips them, so this
// is advisory, like the queue positions derived from it.
func (s *Scheduler) QueueDepth() int {
	return len(s.tasks)
}

// Drain empties the queue without running anything and reports how many
// task references it removed.
func (s *Scheduler) Drain() int {
	drained := 0
	for {
		select {
		case <-s.tasks:
			drained++
		default:
			return drained
		}
	}
}

// Run processes the queue until the context is cancelled. Call it from a
// dedicated goroutine; exactly one must run.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[Scheduler] Queue worker started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] Queue worker stopped")
			return
		case jobID := <-s.tasks:
			s.process(ctx, jobID)
		}
	}
}

func (s *Scheduler) process(ctx context.Context, jobID string) {
	job, err := s.registry.Start(jobID)
	if err != nil {
		// Cancelled while queued, or cleared away
		log.Printf("[Scheduler] Skipping job %s: %v", jobID, err)
		return
	}

	log.Printf("[Scheduler] Running job %s (count=%d, mode=%s, random=%t)",
		job.ID, job.Spec.Count, job.Spec.PromptMode, job.Spec.Random)

	if err := s.runner.Run(ctx, job); err != nil {
		log.Printf("[Scheduler] Job %s failed: %v", job.ID, err)
		s.registry.Fail(job.ID, err.Error())
		s.notify.BroadcastError(job.ID, "JOB_FAILED", err.Error())
	}
}
