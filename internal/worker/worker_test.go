package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
)

var testEndpoints = []model.Endpoint{
	{Name: "E1", Host: "10.0.0.1", Port: 2222},
	{Name: "E2", Host: "10.0.0.2", Port: 2222},
}

// fakeDispatcher scripts per-endpoint outcomes with optional delays.
type fakeDispatcher struct {
	mu    sync.Mutex
	delay map[string]time.Duration
	fail  map[string]bool
	calls []string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, endpoint model.Endpoint, prompt, imageBase64 string, params model.GenerationParams) model.RunOutcome {
	d.mu.Lock()
	delay := d.delay[endpoint.Name]
	d.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	d.mu.Lock()
	d.calls = append(d.calls, endpoint.Name)
	failed := d.fail[endpoint.Name]
	d.mu.Unlock()

	if failed {
		return model.RunOutcome{
			Success:  false,
			Endpoint: endpoint.Name,
			Error:    "dispatch failed",
			Duration: delay.Seconds(),
		}
	}
	return model.RunOutcome{
		Success:   true,
		Endpoint:  endpoint.Name,
		LocalPath: "output/gen_" + endpoint.Name + ".png",
		Duration:  delay.Seconds(),
	}
}

// fakePromptGen returns scripted prompt results and counts invocations.
type fakePromptGen struct {
	mu     sync.Mutex
	calls  int
	result model.PromptResult
}

func (g *fakePromptGen) Generate(ctx context.Context, steeringConcept, imageBase64 string) model.PromptResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	res := g.result
	if res.Prompt == "" {
		res.Prompt = "generated prompt"
		res.Source = model.PromptSourceLLM
	}
	return res
}

func (g *fakePromptGen) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// countingLogger counts result-log appends.
type countingLogger struct {
	mu    sync.Mutex
	count int
}

func (l *countingLogger) Append(outcome model.RunOutcome, prompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
}

func (l *countingLogger) appended() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func newTestRunner(dispatcher *fakeDispatcher, prompts *fakePromptGen) (*registry.Registry, *JobRunner, *countingLogger) {
	reg := registry.New(testEndpoints)
	logged := &countingLogger{}
	executor := NewRunExecutor(reg, dispatcher, logged, testEndpoints, nil)
	runner := NewJobRunner(reg, executor, prompts, testEndpoints, nil)
	return reg, runner, logged
}

func submitAndStart(t *testing.T, reg *registry.Registry, spec model.JobSpec) *model.Job {
	t.Helper()
	job := reg.Create(spec, 0)
	started, err := reg.Start(job.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return started
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
