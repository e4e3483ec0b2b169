package worker

import (
	"context"
	"log"
	"time"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
)

// PromptGenerator resolves one prompt per invocation, reporting its source.
type PromptGenerator interface {
	Generate(ctx context.Context, steeringConcept, imageBase64 string) model.PromptResult
}

// JobRunner owns the lifecycle of a single running job: it executes exactly
// Spec.Count sequential runs, resolving the prompt(s) for each run and
// delegating the fan-out to the RunExecutor. It never runs two jobs at once;
// the Scheduler guarantees single-flight.
type JobRunner struct {
	registry  *registry.Registry
	executor  *RunExecutor
	prompts   PromptGenerator
	endpoints []model.Endpoint
	notify    ProgressNotifier
}

// NewJobRunner creates a job runner. The notifier may be nil.
func NewJobRunner(reg *registry.Registry, executor *RunExecutor, prompts PromptGenerator, endpoints []model.Endpoint, notify ProgressNotifier) *JobRunner {
	if notify == nil {
		notify = noopNotifier{}
	}
	return &JobRunner{
		registry:  reg,
		executor:  executor,
		prompts:   prompts,
		endpoints: endpoints,
		notify:    notify,
	}
}

// Run executes all runs of an already-started job. A returned error makes
// the scheduler mark the job errored; completed runs are retained.
func (r *JobRunner) Run(ctx context.Context, job *model.Job) error {
	for i := 1; i <= job.Spec.Count; i++ {
		endpointPrompts := r.resolvePrompts(ctx, job)

		currentPrompt := ""
		if len(r.endpoints) > 0 {
			currentPrompt = endpointPrompts[r.endpoints[0].Name]
		}

		start := time.Now()
		r.registry.BeginRun(job.ID, i, currentPrompt, endpointPrompts, start)
		r.notify.BroadcastRunStarted(job.ID, i, currentPrompt, endpointPrompts)
		log.Printf("[Runner] Job %s run %d/%d: %q", job.ID, i, job.Spec.Count, currentPrompt)

		images := r.executor.ExecuteRun(ctx, job.ID, i, endpointPrompts, job.Spec.ImageBase64, job.Spec.Params, start)

		r.registry.AppendResult(job.ID, model.RunResult{
			Prompt:          currentPrompt,
			EndpointPrompts: endpointPrompts,
			Images:          images,
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	done, err := r.registry.Complete(job.ID)
	if err != nil {
		return err
	}
	r.notify.BroadcastComplete(done.ID, done.Status, done.TotalElapsed)
	log.Printf("[Runner] Job %s complete in %.1fs", done.ID, done.TotalElapsed)
	return nil
}

// resolvePrompts determines what each endpoint receives for one run.
// In different+random mode every endpoint triggers an independent LLM call,
// so endpoints may legitimately receive distinct prompts.
func (r *JobRunner) resolvePrompts(ctx context.Context, job *model.Job) map[string]string {
	spec := job.Spec
	endpointPrompts := make(map[string]string, len(r.endpoints))

	switch {
	case spec.PromptMode == model.PromptModeDifferent && spec.Random:
		r.setLLMStatus(job.ID, model.LLMStatus{State: model.LLMStateGenerating})
		var last model.PromptResult
		for _, ep := range r.endpoints {
			last = r.prompts.Generate(ctx, spec.SteeringConcept, spec.ImageBase64)
			endpointPrompts[ep.Name] = last.Prompt
		}
		r.setLLMStatus(job.ID, llmStatusFrom(last))

	case spec.PromptMode == model.PromptModeDifferent:
		second := spec.Prompt2
		if second == "" {
			second = spec.Prompt
		}
		for idx, ep := range r.endpoints {
			if idx == 0 {
				endpointPrompts[ep.Name] = spec.Prompt
			} else {
				endpointPrompts[ep.Name] = second
			}
		}

	case spec.Random:
		r.setLLMStatus(job.ID, model.LLMStatus{State: model.LLMStateGenerating})
		result := r.prompts.Generate(ctx, spec.SteeringConcept, spec.ImageBase64)
		r.setLLMStatus(job.ID, llmStatusFrom(result))
		for _, ep := range r.endpoints {
			endpointPrompts[ep.Name] = result.Prompt
		}

	default:
		for _, ep := range r.endpoints {
			endpointPrompts[ep.Name] = spec.Prompt
		}
	}

	return endpointPrompts
}

func (r *JobRunner) setLLMStatus(jobID string, status model.LLMStatus) {
	r.registry.SetLLMStatus(jobID, status)
	r.notify.BroadcastLLMStatus(jobID, status)
}

func llmStatusFrom(result model.PromptResult) model.LLMStatus {
	state := model.LLMStateDone
	if result.Source != model.PromptSourceLLM {
		state = model.LLMStateFallback
	}
	return model.LLMStatus{
		State:   state,
		Elapsed: result.Elapsed,
		Model:   result.Model,
		Source:  result.Source,
		Error:   result.Error,
	}
}
