package store

import (
	"time"

	"github.com/ibeckermayer/naverpost/internal/types"
)

// RunSummary is one row of the run history
type RunSummary struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Success    bool           `json:"success"`
	FailedStep types.StepName `json:"failed_step,omitempty"`
	FinalURL   string         `json:"final_url,omitempty"`
}

// Duration returns how long the run took
func (r RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
