package results

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dualgen/api/internal/model"
)

// Logger appends every run outcome to a JSONL file, one line per outcome.
// Logging failures are reported but never fail the run.
type Logger struct {
	mu   sync.Mutex
	path string
}

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Endpoint  string    `json:"endpoint"`
	Prompt    string    `json:"prompt"`
	Success   bool      `json:"success"`
	LocalPath string    `json:"local_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration"`
}

// NewLogger creates a result logger writing to the given path.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Append records one outcome with the prompt that produced it.
func (l *Logger) Append(outcome model.RunOutcome, prompt string) {
	line, err := json.Marshal(entry{
		Timestamp: time.Now(),
		Endpoint:  outcome.Endpoint,
		Prompt:    prompt,
		Success:   outcome.Success,
		LocalPath: outcome.LocalPath,
		Error:     outcome.Error,
		Duration:  outcome.Duration,
	})
	if err != nil {
		log.Printf("[Results] Failed to marshal entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[Results] Failed to open %s: %v", l.path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("[Results] Failed to write entry: %v", err)
	}
}
