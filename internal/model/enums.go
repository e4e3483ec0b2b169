package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusComplete  JobStatus = "complete"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusComplete, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// Prompt modes
type PromptMode string

const (
	PromptModeSame      PromptMode = "same"
	PromptModeDifferent PromptMode = "different"
)

var ValidPromptModes = []PromptMode{PromptModeSame, PromptModeDifferent}

// Per-endpoint run state
type EndpointState string

const (
	EndpointStatePending    EndpointState = "pending"
	EndpointStateGenerating EndpointState = "generating"
	EndpointStateDone       EndpointState = "done"
	EndpointStateError      EndpointState = "error"
)

// LLM prompt-generation state
type LLMState string

const (
	LLMStateIdle       LLMState = "idle"
	LLMStateGenerating LLMState = "generating"
	LLMStateDone       LLMState = "done"
	LLMStateFallback   LLMState = "fallback"
)

// Prompt source
type PromptSource string

const (
	PromptSourceLLM      PromptSource = "llm"
	PromptSourceFallback PromptSource = "fallback"
)
