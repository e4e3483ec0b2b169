package worker

import "github.com/dualgen/api/internal/model"

// ProgressNotifier receives live progress while a job runs. The websocket
// hub implements it; tests substitute fakes.
type ProgressNotifier interface {
	BroadcastRunStarted(jobID string, run int, prompt string, endpointPrompts map[string]string)
	BroadcastEndpointStatus(jobID string, run int, endpoint string, status model.EndpointStatus)
	BroadcastLLMStatus(jobID string, status model.LLMStatus)
	BroadcastComplete(jobID string, status model.JobStatus, totalElapsed float64)
	BroadcastError(jobID, code, message string)
}

type noopNotifier struct{}

func (noopNotifier) BroadcastRunStarted(string, int, string, map[string]string)       {}
func (noopNotifier) BroadcastEndpointStatus(string, int, string, model.EndpointStatus) {}
func (noopNotifier) BroadcastLLMStatus(string, model.LLMStatus)                        {}
func (noopNotifier) BroadcastComplete(string, model.JobStatus, float64)                {}
func (noopNotifier) BroadcastError(string, string, string)                             {}
