package model

// WebSocket message types
const (
	WSMessageTypeRunStarted     = "run_started"
	WSMessageTypeEndpointStatus = "endpoint_status"
	WSMessageTypeLLMStatus      = "llm_status"
	WSMessageTypeComplete       = "complete"
	WSMessageTypeError          = "error"
	WSMessageTypePing           = "ping"
	WSMessageTypePong           = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSRunStartedMessage announces that a run's fan-out has begun.
type WSRunStartedMessage struct {
	Type            string            `json:"type"`
	JobID           string            `json:"job_id"`
	Run             int               `json:"run"`
	Prompt          string            `json:"prompt"`
	EndpointPrompts map[string]string `json:"endpoint_prompts"`
}

// WSEndpointStatusMessage carries one endpoint's state flip within a run.
type WSEndpointStatusMessage struct {
	Type     string         `json:"type"`
	JobID    string         `json:"job_id"`
	Run      int            `json:"run"`
	Endpoint string         `json:"endpoint"`
	Status   EndpointStatus `json:"status"`
}

// WSLLMStatusMessage carries a prompt-generation state transition.
type WSLLMStatusMessage struct {
	Type   string    `json:"type"`
	JobID  string    `json:"job_id"`
	Status LLMStatus `json:"status"`
}

// WSCompleteMessage announces that a job reached a terminal success state.
type WSCompleteMessage struct {
	Type         string    `json:"type"`
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	TotalElapsed float64   `json:"total_elapsed"`
}

// WSErrorMessage announces a job failure.
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"job_id"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
