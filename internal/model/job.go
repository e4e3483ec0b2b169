package model

import (
	"fmt"
	"time"
)

// Endpoint is one configured remote rendering target.
type Endpoint struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// BaseURL returns the endpoint's HTTP base URL.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

// GenerationParams are the rendering parameters forwarded to every endpoint.
type GenerationParams struct {
	Orientation string  `json:"orientation"`
	Size        string  `json:"size"`
	Steps       int     `json:"steps"`
	Seed        *int64  `json:"seed,omitempty"`
	Strength    float64 `json:"strength"`
}

// JobSpec holds the immutable submission parameters of a job.
type JobSpec struct {
	Prompt          string           `json:"prompt"`
	Prompt2         string           `json:"prompt2,omitempty"`
	PromptMode      PromptMode       `json:"prompt_mode"`
	Random          bool             `json:"random"`
	SteeringConcept string           `json:"steering_concept,omitempty"`
	Count           int              `json:"count"`
	HasImage        bool             `json:"has_image"`
	ImageBase64     string           `json:"-"`
	Params          GenerationParams `json:"params"`
}

// EndpointStatus is the live per-endpoint state within the current run.
type EndpointStatus struct {
	State     EndpointState `json:"state"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Elapsed   float64       `json:"elapsed,omitempty"`
}

// LLMStatus tracks prompt generation for the current run. Present only
// when the job uses random prompts.
type LLMStatus struct {
	State   LLMState     `json:"state"`
	Elapsed float64      `json:"elapsed,omitempty"`
	Model   string       `json:"model,omitempty"`
	Source  PromptSource `json:"source,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ImageStats carries the endpoint's own metadata about a generated image.
type ImageStats struct {
	Filename string             `json:"filename"`
	Seed     *int64             `json:"seed,omitempty"`
	Timings  map[string]float64 `json:"timings,omitempty"`
}

// RunOutcome is the result of dispatching one prompt to one endpoint.
type RunOutcome struct {
	Success    bool        `json:"success"`
	Endpoint   string      `json:"endpoint"`
	LocalPath  string      `json:"local_path,omitempty"`
	Error      string      `json:"error,omitempty"`
	Stats      *ImageStats `json:"stats,omitempty"`
	PromptUsed string      `json:"prompt_used,omitempty"`
	Duration   float64     `json:"duration"`
}

// RunResult is one completed fan-out cycle across all endpoints.
type RunResult struct {
	Prompt          string            `json:"prompt"`
	EndpointPrompts map[string]string `json:"endpoint_prompts"`
	Images          []RunOutcome      `json:"images"`
}

// PromptResult is what the prompt generator reports for one invocation.
type PromptResult struct {
	Prompt  string       `json:"prompt"`
	Source  PromptSource `json:"source"`
	Model   string       `json:"model,omitempty"`
	Elapsed float64      `json:"elapsed"`
	Error   string       `json:"error,omitempty"`
}

// Job is the mutable progress record of one generation job.
type Job struct {
	ID              string                    `json:"id"`
	Status          JobStatus                 `json:"status"`
	Spec            JobSpec                   `json:"spec"`
	QueuePosition   int                       `json:"queue_position"`
	CurrentRun      int                       `json:"current_run"`
	CurrentPrompt   string                    `json:"current_prompt,omitempty"`
	EndpointPrompts map[string]string         `json:"endpoint_prompts,omitempty"`
	EndpointStatus  map[string]EndpointStatus `json:"endpoint_status,omitempty"`
	LLMStatus       *LLMStatus                `json:"llm_status,omitempty"`
	Results         []RunResult               `json:"results"`
	Error           string                    `json:"error,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	StartedAt       *time.Time                `json:"started_at,omitempty"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
	TotalElapsed    float64                   `json:"total_elapsed,omitempty"`
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (j *Job) Clone() *Job {
	c := *j
	if j.EndpointPrompts != nil {
		c.EndpointPrompts = make(map[string]string, len(j.EndpointPrompts))
		for k, v := range j.EndpointPrompts {
			c.EndpointPrompts[k] = v
		}
	}
	if j.EndpointStatus != nil {
		c.EndpointStatus = make(map[string]EndpointStatus, len(j.EndpointStatus))
		for k, v := range j.EndpointStatus {
			c.EndpointStatus[k] = v
		}
	}
	if j.LLMStatus != nil {
		s := *j.LLMStatus
		c.LLMStatus = &s
	}
	if j.Results != nil {
		c.Results = make([]RunResult, len(j.Results))
		copy(c.Results, j.Results)
	}
	return &c
}
