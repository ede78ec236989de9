package model

import "time"

// RunStatus represents the current state of a command run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of a pipeline command.
type Run struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	Status     RunStatus  `json:"status"`
	Output     string     `json:"output,omitempty"`
	Result     *RunResult `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult holds the counters recorded when a run completes.
type RunResult struct {
	Features int `json:"features"`
	Parks    int `json:"parks"`
	Fetches  int `json:"fetches"`
}
