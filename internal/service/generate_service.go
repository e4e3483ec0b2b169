package service

import (
	"errors"
	"strings"

	"github.com/dualgen/api/internal/config"
	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
	"github.com/dualgen/api/internal/worker"
)

// ErrPromptRequired rejects submissions with no prompt and random disabled.
var ErrPromptRequired = errors.New("prompt is required when not using random mode")

// GenerateService validates submissions, creates job records, and exposes
// the registry's read/cancel/clear operations to the HTTP layer.
type GenerateService struct {
	registry  *registry.Registry
	scheduler *worker.Scheduler
	defaults  config.GenerationConfig
}

// NewGenerateService creates the generation service.
func NewGenerateService(reg *registry.Registry, scheduler *worker.Scheduler, defaults config.GenerationConfig) *GenerateService {
	return &GenerateService{
		registry:  reg,
		scheduler: scheduler,
		defaults:  defaults,
	}
}

// Submit validates a request, registers a queued job, and enqueues it.
// It never blocks on job execution.
func (s *GenerateService) Submit(req *model.GenerateRequest) (*model.GenerateResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	prompt2 := strings.TrimSpace(req.Prompt2)

	if !req.Random && prompt == "" {
		return nil, ErrPromptRequired
	}

	spec := model.JobSpec{
		Prompt:      prompt,
		Prompt2:     prompt2,
		PromptMode:  model.PromptMode(req.PromptMode),
		Random:      req.Random,
		Count:       req.Count,
		HasImage:    req.Image != "",
		ImageBase64: req.Image,
		Params: model.GenerationParams{
			Orientation: req.Orientation,
			Size:        req.Size,
			Steps:       req.Steps,
			Seed:        req.Seed,
			Strength:    req.Strength,
		},
	}
	s.applyDefaults(&spec)

	// The steering concept for random generation is the submitted text
	if spec.Random {
		spec.SteeringConcept = prompt
	}
	if spec.PromptMode == model.PromptModeDifferent && !spec.Random && spec.Prompt2 == "" {
		spec.Prompt2 = spec.Prompt
	}

	job := s.registry.Create(spec, s.queuePosition())
	if err := s.scheduler.Enqueue(job.ID); err != nil {
		s.registry.Fail(job.ID, err.Error())
		return nil, err
	}

	return &model.GenerateResponse{
		JobID:         job.ID,
		Status:        job.Status,
		QueuePosition: job.QueuePosition,
	}, nil
}

// Status returns one job record.
func (s *GenerateService) Status(jobID string) (*model.Job, error) {
	return s.registry.Get(jobID)
}

// Jobs returns all job records, most recent first.
func (s *GenerateService) Jobs() []*model.Job {
	return s.registry.List()
}

// Queue returns the partitioned queue snapshot.
func (s *GenerateService) Queue() *model.QueueSnapshot {
	return s.registry.Snapshot(s.scheduler.QueueDepth())
}

// Cancel cancels a queued job.
func (s *GenerateService) Cancel(jobID string) (*model.CancelResponse, error) {
	job, err := s.registry.Cancel(jobID)
	if err != nil {
		return nil, err
	}
	return &model.CancelResponse{
		Success: true,
		JobID:   job.ID,
		Status:  job.Status,
	}, nil
}

// Clear drains the queue and discards every record except the running job.
func (s *GenerateService) Clear() *model.ClearResponse {
	s.scheduler.Drain()
	removed := s.registry.Clear()
	return &model.ClearResponse{
		Success: true,
		Removed: removed,
	}
}

// queuePosition computes the advisory position of a new submission: jobs
// already waiting, plus one if a job is currently running.
func (s *GenerateService) queuePosition() int {
	position := s.scheduler.QueueDepth()
	if s.registry.CurrentJobID() != "" {
		position++
	}
	return position
}

func (s *GenerateService) applyDefaults(spec *model.JobSpec) {
	if spec.PromptMode == "" {
		spec.PromptMode = model.PromptModeSame
	}
	if spec.Count < 1 {
		spec.Count = 1
	}
	if spec.Params.Orientation == "" {
		spec.Params.Orientation = s.defaults.Orientation
	}
	if spec.Params.Size == "" {
		spec.Params.Size = s.defaults.Size
	}
	if spec.Params.Steps <= 0 {
		spec.Params.Steps = s.defaults.Steps
	}
	if spec.Params.Strength <= 0 {
		spec.Params.Strength = s.defaults.Strength
	}
}
