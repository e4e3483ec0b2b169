package model

import "time"

// GenerateRequest is the body of POST /api/generate. The same fields are
// accepted as multipart form values when an image file is attached.
type GenerateRequest struct {
	Prompt      string  `json:"prompt" form:"prompt"`
	Prompt2     string  `json:"prompt2" form:"prompt2"`
	PromptMode  string  `json:"prompt_mode" form:"prompt_mode" validate:"omitempty,oneof=same different"`
	Random      bool    `json:"random" form:"random"`
	Count       int     `json:"count" form:"count" validate:"omitempty,min=1,max=100"`
	Orientation string  `json:"orientation" form:"orientation"`
	Size        string  `json:"size" form:"size"`
	Steps       int     `json:"steps" form:"steps" validate:"omitempty,min=1,max=150"`
	Seed        *int64  `json:"seed" form:"seed"`
	Strength    float64 `json:"strength" form:"strength" validate:"omitempty,gt=0,lte=1"`
	Image       string  `json:"image,omitempty" form:"-"`
}

// GenerateResponse acknowledges a queued submission.
type GenerateResponse struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	QueuePosition int       `json:"queue_position"`
}

// CancelResponse acknowledges a queued-job cancellation.
type CancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
}

// ClearResponse reports how many records a queue clear removed.
type ClearResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

// QueueSnapshot is the partitioned view returned by GET /api/queue.
type QueueSnapshot struct {
	Pending      []*Job `json:"pending"`
	Running      []*Job `json:"running"`
	Completed    []*Job `json:"completed"`
	CurrentJobID string `json:"current_job_id,omitempty"`
	QueueSize    int    `json:"queue_size"`
}

// EndpointHealth is one entry of the GET /api/endpoints sweep.
type EndpointHealth struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Status string `json:"status"`
}

// Endpoint health states
const (
	EndpointHealthOnline  = "online"
	EndpointHealthOffline = "offline"
	EndpointHealthTimeout = "timeout"
)

// GalleryImage is one entry of the GET /api/gallery listing.
type GalleryImage struct {
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
	Created  time.Time `json:"created"`
	Size     int64     `json:"size"`
}
