package types

import "time"

// Draft is the post content handed to the editor steps.
type Draft struct {
	Title string `json:"title" toml:"title"`
	Body  string `json:"body" toml:"body"`
	Lines int    `json:"lines" toml:"lines"` // times Body is typed, one per line
}

// StepName identifies one step of a posting run
type StepName string

const (
	StepAcquireDriver    StepName = "acquire_driver"
	StepSignIn           StepName = "sign_in"
	StepNavigateToEditor StepName = "navigate_to_editor"
	StepEnterEditorFrame StepName = "enter_editor_frame"
	StepDismissOverlay   StepName = "dismiss_overlay"
	StepEnterTitle       StepName = "enter_title"
	StepEnterBody        StepName = "enter_body"
	StepSave             StepName = "save"
)

// StepResult records the outcome of a single step
type StepResult struct {
	Step      StepName      `json:"step"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunReport is the record of one end-to-end posting attempt
type RunReport struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
	FinalURL   string       `json:"final_url,omitempty"`
	Success    bool         `json:"success"`
	FailedStep StepName     `json:"failed_step,omitempty"`

	// Screenshot of the page at the point of failure, if one could be taken.
	Screenshot []byte `json:"-"`
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Step returns the result recorded for the given step, if it ran.
func (r *RunReport) Step(name StepName) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}
