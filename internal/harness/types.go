package harness

import (
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// TraceEvent is the replay record of one call.
type TraceEvent struct {
	Index       int      `json:"index"`
	Line        int      `json:"line"`
	Call        string   `json:"call"`
	Known       bool     `json:"known"`
	Branch      string   `json:"branch,omitempty"`
	Transitions []string `json:"transitions"`
	Violations  []string `json:"violations"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per replayed call.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Validation *engine.ValidationResult `json:"validation"`
	Metrics    *ir.QualityMetrics       `json:"metrics,omitempty"`
	ScoreError string                   `json:"score_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
