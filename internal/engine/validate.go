package engine

import (
	"log/slog"

	"github.com/roach88/seqscore/internal/ir"
)

// Options configures a sequence replay.
type Options struct {
	Mode Mode
}

// CallTrace is the replay record of one call.
type CallTrace struct {
	Index       int             `json:"index"`
	Line        int             `json:"line,omitempty"`
	Function    string          `json:"function"`
	Known       bool            `json:"known"`
	Shapes      []string        `json:"shapes,omitempty"`
	Transitions []ir.Transition `json:"transitions,omitempty"`
	Violations  []Violation     `json:"violations,omitempty"`
	Created     int             `json:"created"`
	Produced    []int           `json:"produced,omitempty"`
}

// ValidationResult is the outcome of replaying one sequence.
type ValidationResult struct {
	OK             bool                 `json:"ok"`
	Halted         bool                 `json:"halted"`
	Violations     []Violation          `json:"violations"`
	UnknownSymbols []UnknownSymbolError `json:"unknown_symbols"`
	FinalStates    map[string]ir.State  `json:"final_states"`
	Transitions    []ir.Transition      `json:"transitions"`
	LeakCandidates []LeakCandidate      `json:"leak_candidates"`
	Instances      []ir.HandleInstance  `json:"instances"`
	Calls          []CallTrace          `json:"calls"`
}

// Validate replays seq against model in a single linear pass.
//
// Each call is resolved by name; unknown names are recorded as
// UnknownSymbolError and skipped. Arguments are resolved against the live
// variable table and applied through a private Tracker. In strict mode replay
// halts at the first violation or unknown symbol. If replay reaches the end,
// every instance of a release-requiring type that is still Live is reported
// as UnreleasedResource.
//
// Validate has no side effects and shares no state between calls; it is safe
// to run concurrently on the same model.
func Validate(model *ir.InterfaceModel, seq *ir.SequenceRecord, opts Options) *ValidationResult {
	if opts.Mode == "" {
		opts.Mode = ModeStrict
	}

	tracker := NewTracker(model)
	clock := NewClock()
	result := &ValidationResult{
		Violations:     []Violation{},
		UnknownSymbols: []UnknownSymbolError{},
	}

	for _, call := range seq.Calls {
		idx := clock.Next()
		trace := CallTrace{
			Index:    idx,
			Line:     call.Line,
			Function: call.Function,
			Created:  noInstance,
		}

		fn, ok := model.Function(call.Function)
		if !ok {
			result.UnknownSymbols = append(result.UnknownSymbols, UnknownSymbolError{
				Call:     idx,
				Line:     call.Line,
				Function: call.Function,
			})
			result.Calls = append(result.Calls, trace)
			if opts.Mode == ModeStrict {
				result.Halted = true
				break
			}
			continue
		}
		trace.Known = true

		args := make([]Resolved, len(call.Args))
		for i, b := range call.Args {
			args[i] = tracker.Resolve(b)
		}

		site := ir.Site{Index: idx, Line: call.Line, Function: call.Function}
		outcome := tracker.Apply(fn, args, call.Dest, site)

		trace.Shapes = outcome.Shapes
		trace.Transitions = outcome.Transitions
		trace.Violations = outcome.Violations
		trace.Created = outcome.Created
		trace.Produced = outcome.Produced
		result.Calls = append(result.Calls, trace)
		result.Violations = append(result.Violations, outcome.Violations...)

		if opts.Mode == ModeStrict && len(outcome.Violations) > 0 {
			result.Halted = true
			break
		}
	}

	if !result.Halted {
		result.Violations = append(result.Violations, tracker.Unreleased()...)
	}

	result.FinalStates = tracker.FinalStates()
	result.Transitions = tracker.Transitions()
	result.LeakCandidates = tracker.LeakCandidates()
	result.Instances = tracker.Instances()
	result.OK = len(result.Violations) == 0 && len(result.UnknownSymbols) == 0

	slog.Debug("sequence validated",
		"id", seq.ID,
		"path", seq.Path,
		"calls", len(seq.Calls),
		"ok", result.OK,
		"violations", len(result.Violations),
		"unknown_symbols", len(result.UnknownSymbols),
		"halted", result.Halted,
	)

	return result
}
