package registry

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dualgen/api/internal/model"
)

var (
	// ErrJobNotFound is returned for lookups of unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidJobState is returned when an operation requires a job
	// state the job is not in (e.g. cancelling a running job).
	ErrInvalidJobState = errors.New("invalid job state")
)

// CompletedHistoryLimit caps the completed partition of queue snapshots.
const CompletedHistoryLimit = 20

// Registry is the process-wide record of all jobs. All mutation goes through
// its methods under the lock; every job handed out is a deep copy, so readers
// never observe a record mid-mutation.
type Registry struct {
	mu            sync.RWMutex
	jobs          map[string]*model.Job
	endpointNames []string
	currentID     string
}

// New creates a registry for the given configured endpoint set.
func New(endpoints []model.Endpoint) *Registry {
	names := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		names = append(names, ep.Name)
	}
	return &Registry{
		jobs:          make(map[string]*model.Job),
		endpointNames: names,
	}
}

// Create registers a new queued job and returns its record. The queue
// position is advisory and computed by the caller at submission time.
func (r *Registry) Create(spec model.JobSpec, queuePosition int) *model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &model.Job{
		ID:            uuid.New().String()[:8],
		Status:        model.JobStatusQueued,
		Spec:          spec,
		QueuePosition: queuePosition,
		Results:       []model.RunResult{},
		CreatedAt:     time.Now(),
	}
	r.jobs[job.ID] = job
	return job.Clone()
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// List returns copies of all jobs, most recent first.
func (r *Registry) List() []*model.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedClonesLocked()
}

// Snapshot partitions all jobs into pending/running/completed, most recent
// first, with the completed partition capped at CompletedHistoryLimit.
func (r *Registry) Snapshot(queueSize int) *model.QueueSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &model.QueueSnapshot{
		Pending:      []*model.Job{},
		Running:      []*model.Job{},
		Completed:    []*model.Job{},
		CurrentJobID: r.currentID,
		QueueSize:    queueSize,
	}
	for _, job := range r.sortedClonesLocked() {
		switch job.Status {
		case model.JobStatusQueued:
			snap.Pending = append(snap.Pending, job)
		case model.JobStatusRunning:
			snap.Running = append(snap.Running, job)
		case model.JobStatusComplete, model.JobStatusError:
			if len(snap.Completed) < CompletedHistoryLimit {
				snap.Completed = append(snap.Completed, job)
			}
		}
	}
	return snap
}

// CurrentJobID returns the id of the running job, or "" when idle.
func (r *Registry) CurrentJobID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentID
}

// Cancel marks a queued job cancelled. Only queued jobs may be cancelled;
// anything else is ErrInvalidJobState.
func (r *Registry) Cancel(id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusQueued {
		return nil, ErrInvalidJobState
	}
	job.Status = model.JobStatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	return job.Clone(), nil
}

// Clear discards every job record except the currently running one.
// It returns the number of removed records.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id := range r.jobs {
		if id == r.currentID {
			continue
		}
		delete(r.jobs, id)
		removed++
	}
	return removed
}

// Start transitions a queued job to running and makes it the current job.
// Jobs cancelled while queued (or cleared away) report an error so the
// scheduler can skip them.
func (r *Registry) Start(id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusQueued {
		return nil, ErrInvalidJobState
	}

	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.CurrentRun = 0
	job.Results = []model.RunResult{}
	job.EndpointStatus = make(map[string]model.EndpointStatus, len(r.endpointNames))
	for _, name := range r.endpointNames {
		job.EndpointStatus[name] = model.EndpointStatus{State: model.EndpointStatePending}
	}
	if job.Spec.Random {
		job.LLMStatus = &model.LLMStatus{State: model.LLMStateIdle}
	}
	r.currentID = id
	return job.Clone(), nil
}

// SetLLMStatus records a prompt-generation state transition.
func (r *Registry) SetLLMStatus(id string, status model.LLMStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		st := status
		job.LLMStatus = &st
	}
}

// BeginRun records the start of one run: the resolved prompts and every
// endpoint flipped to generating with a shared start timestamp.
func (r *Registry) BeginRun(id string, run int, prompt string, endpointPrompts map[string]string, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.CurrentRun = run
	job.CurrentPrompt = prompt
	job.EndpointPrompts = endpointPrompts
	start := startedAt
	for _, name := range r.endpointNames {
		job.EndpointStatus[name] = model.EndpointStatus{
			State:     model.EndpointStateGenerating,
			StartedAt: &start,
		}
	}
}

// SetEndpointStatus flips one endpoint's state within the current run.
func (r *Registry) SetEndpointStatus(id, endpoint string, status model.EndpointStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.EndpointStatus[endpoint] = status
	}
}

// AppendResult appends one completed run's record.
func (r *Registry) AppendResult(id string, result model.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.Results = append(job.Results, result)
	}
}

// Complete marks the running job complete and releases the current slot.
func (r *Registry) Complete(id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusRunning {
		return nil, ErrInvalidJobState
	}

	job.Status = model.JobStatusComplete
	r.finishLocked(job)
	return job.Clone(), nil
}

// Fail marks a job errored with the message preserved. Completed runs in
// Results are retained as-is.
func (r *Registry) Fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = model.JobStatusError
	job.Error = message
	r.finishLocked(job)
}

func (r *Registry) finishLocked(job *model.Job) {
	now := time.Now()
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.TotalElapsed = round1(now.Sub(*job.StartedAt).Seconds())
	}
	if r.currentID == job.ID {
		r.currentID = ""
	}
}

func (r *Registry) sortedClonesLocked() []*model.Job {
	jobs := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
