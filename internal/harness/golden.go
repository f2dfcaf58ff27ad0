package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/ir"
)

// Snapshot converts a result to a map[string]any for canonical JSON
// serialization. ir.MarshalCanonical rejects floats, so the score is
// rendered the way Quality headers render it and density is left out.
func Snapshot(name, mode string, result *Result) map[string]any {
	if mode == "" {
		mode = "strict"
	}

	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"index":       ev.Index,
			"line":        ev.Line,
			"call":        ev.Call,
			"known":       ev.Known,
			"transitions": ev.Transitions,
			"violations":  ev.Violations,
		}
		if ev.Branch != "" {
			m["branch"] = ev.Branch
		}
		trace[i] = m
	}

	kinds := []string{}
	for _, v := range result.Validation.Violations {
		kinds = append(kinds, string(v.Kind))
	}

	snap := map[string]any{
		"scenario_name": name,
		"mode":          mode,
		"ok":            result.Validation.OK,
		"halted":        result.Validation.Halted,
		"trace":         trace,
		"violations":    kinds,
	}
	if q := result.Metrics; q != nil {
		snap["metrics"] = map[string]any{
			"branches":       q.BranchKeys(),
			"library_calls":  q.LibraryCalls,
			"critical_calls": q.CriticalCalls,
			"visited":        q.Visited,
			"score":          corpus.FormatScore(q.Score),
		}
	} else {
		snap["score_error"] = result.ScoreError
	}
	return snap
}

// MarshalSnapshot renders the canonical JSON snapshot of a scenario result.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot(scenario.Name, scenario.Mode, result))
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	data, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return err
	}
	assertBytes(t, scenario.Name, data)
	return nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	data, err := ir.MarshalCanonical(Snapshot(scenarioName, "", result))
	if err != nil {
		return err
	}
	assertBytes(t, scenarioName, data)
	return nil
}

func assertBytes(t *testing.T, name string, data []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
