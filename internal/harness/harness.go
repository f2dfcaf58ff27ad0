package harness

import (
	"fmt"

	"github.com/roach88/seqscore/internal/compiler"
	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/score"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the manifest
//  2. Extract the calls of the scenario source
//  3. Replay them in the scenario's mode
//  4. Score the replay with the default weights
//  5. Evaluate the assertions
func Run(scenario *Scenario) (*Result, error) {
	model, err := compiler.LoadManifest(scenario.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return RunModel(model, scenario)
}

// RunModel executes a scenario against an already loaded model.
// Scenario.Manifest is ignored.
func RunModel(model *ir.InterfaceModel, scenario *Scenario) (*Result, error) {
	mode := engine.ModeStrict
	if scenario.Mode != "" {
		m, err := engine.ParseMode(scenario.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	seq := &ir.SequenceRecord{
		Path:     scenario.Name,
		Strategy: ir.StrategyBaseline,
		Calls:    corpus.NewExtractor(model).Extract([]byte(scenario.Source)),
	}

	result := NewResult()
	result.Validation = engine.Validate(model, seq, engine.Options{Mode: mode})

	for _, ct := range result.Validation.Calls {
		ev := TraceEvent{
			Index:       ct.Index,
			Line:        ct.Line,
			Call:        seq.Calls[ct.Index].String(),
			Known:       ct.Known,
			Transitions: []string{},
			Violations:  []string{},
		}
		if ct.Known {
			ev.Branch = score.BranchKey(ct.Function, ct.Shapes)
		}
		for _, tr := range ct.Transitions {
			ev.Transitions = append(ev.Transitions, tr.String())
		}
		for _, v := range ct.Violations {
			ev.Violations = append(ev.Violations, v.Error())
		}
		result.Trace = append(result.Trace, ev)
	}

	if q, err := score.Score(model, seq, result.Validation, score.DefaultWeights()); err == nil {
		result.Metrics = &q
	} else {
		result.ScoreError = err.Error()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
