package worker

import (
	"context"
	"math"
	"time"

	"github.com/dualgen/api/internal/client"
	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
)

// ResultLogger receives every run outcome, successful or not.
type ResultLogger interface {
	Append(outcome model.RunOutcome, prompt string)
}

// RunExecutor fans one run out to all configured endpoints concurrently and
// collects every outcome. The endpoint set is small and fixed, so each
// dispatch gets its own goroutine rather than a pool.
type RunExecutor struct {
	registry   *registry.Registry
	dispatcher client.Dispatcher
	results    ResultLogger
	endpoints  []model.Endpoint
	notify     ProgressNotifier
}

// NewRunExecutor creates a run executor. The notifier may be nil.
func NewRunExecutor(reg *registry.Registry, dispatcher client.Dispatcher, results ResultLogger, endpoints []model.Endpoint, notify ProgressNotifier) *RunExecutor {
	if notify == nil {
		notify = noopNotifier{}
	}
	return &RunExecutor{
		registry:   reg,
		dispatcher: dispatcher,
		results:    results,
		endpoints:  endpoints,
		notify:     notify,
	}
}

// ExecuteRun dispatches to every endpoint and blocks until all have
// reported. Outcomes are recorded in completion order; one endpoint's
// failure never cancels its siblings. The caller has already marked all
// endpoints generating with the shared start time.
func (e *RunExecutor) ExecuteRun(ctx context.Context, jobID string, run int, endpointPrompts map[string]string, imageBase64 string, params model.GenerationParams, start time.Time) []model.RunOutcome {
	outcomes := make(chan model.RunOutcome, len(e.endpoints))

	for _, ep := range e.endpoints {
		go func(ep model.Endpoint) {
			outcomes <- e.dispatcher.Dispatch(ctx, ep, endpointPrompts[ep.Name], imageBase64, params)
		}(ep)
	}

	collected := make([]model.RunOutcome, 0, len(e.endpoints))
	for range e.endpoints {
		outcome := <-outcomes
		outcome.PromptUsed = endpointPrompts[outcome.Endpoint]

		state := model.EndpointStateDone
		if !outcome.Success {
			state = model.EndpointStateError
		}
		sharedStart := start
		status := model.EndpointStatus{
			State:     state,
			StartedAt: &sharedStart,
			Elapsed:   round1(time.Since(start).Seconds()),
		}
		e.registry.SetEndpointStatus(jobID, outcome.Endpoint, status)
		e.notify.BroadcastEndpointStatus(jobID, run, outcome.Endpoint, status)

		if e.results != nil {
			e.results.Append(outcome, outcome.PromptUsed)
		}
		collected = append(collected, outcome)
	}

	return collected
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
