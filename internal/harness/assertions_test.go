package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

func ptr[T any](v T) *T { return &v }

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{{Index: 0, Call: "d = Create()", Known: true}}
	r.Validation = &engine.ValidationResult{
		Violations: []engine.Violation{
			{Kind: engine.DoubleRelease, Call: 2, Function: "Destroy", Message: "released twice"},
			{Kind: engine.UnreleasedResource, Call: engine.EndOfSequence, Message: "never released"},
		},
		UnknownSymbols: []engine.UnknownSymbolError{{Call: 1, Function: "Dump"}},
		FinalStates:    map[string]ir.State{"d": ir.StatePoisoned},
		Transitions:    []ir.Transition{{Type: "Doc", From: ir.StateUnborn, To: ir.StateLive}},
		Halted:         true,
	}
	q := ir.EmptyMetrics()
	q.UniqueBranches["Create()"] = 1
	q.LibraryCalls = []string{"Create", "Destroy"}
	q.CriticalCalls = []string{"Destroy"}
	q.Visited = 1
	q.Density = 0.5
	r.Metrics = &q
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantFail  string
	}{
		{"ok", Assertion{Type: AssertOK, Expect: ptr(false)}, ""},
		{"ok mismatch", Assertion{Type: AssertOK, Expect: ptr(true)}, "ok = true"},
		{"halted", Assertion{Type: AssertHalted, Expect: ptr(true)}, ""},
		{"violation kind", Assertion{Type: AssertViolation, Kind: "DoubleRelease"}, ""},
		{"violation at call", Assertion{Type: AssertViolation, Kind: "DoubleRelease", Call: ptr(2)}, ""},
		{"violation wrong call", Assertion{Type: AssertViolation, Kind: "DoubleRelease", Call: ptr(3)}, "violation DoubleRelease at call #3"},
		{"violation at end", Assertion{Type: AssertViolation, Kind: "UnreleasedResource", Call: ptr(-1), Count: ptr(1)}, ""},
		{"violation count", Assertion{Type: AssertViolation, Kind: "DoubleRelease", Count: ptr(2)}, "1 found"},
		{"violation absent", Assertion{Type: AssertViolation, Kind: "TypeMismatch", Count: ptr(0)}, ""},
		{"violation missing", Assertion{Type: AssertViolation, Kind: "TypeMismatch"}, "not found (DoubleRelease, UnreleasedResource, UnknownSymbol)"},
		{"no violations", Assertion{Type: AssertNoViolations}, "no violations"},
		{"final state", Assertion{Type: AssertFinalState, Var: "d", State: "Poisoned"}, ""},
		{"final state mismatch", Assertion{Type: AssertFinalState, Var: "d", State: "Live"}, "d in state Poisoned"},
		{"final state unbound", Assertion{Type: AssertFinalState, Var: "x", State: "Live"}, "x is not bound"},
		{"transition", Assertion{Type: AssertTransition, Transition: "Doc:Unborn->Live"}, ""},
		{"transition missing", Assertion{Type: AssertTransition, Transition: "Doc:Live->Released"}, "visited [Doc:Unborn->Live]"},
		{"branch", Assertion{Type: AssertBranch, Branch: "Create()"}, ""},
		{"branch missing", Assertion{Type: AssertBranch, Branch: "Destroy(consumes:Doc)"}, "branches [Create()]"},
		{"metric visited", Assertion{Type: AssertMetric, Metric: "visited", Value: ptr(1.0)}, ""},
		{"metric density", Assertion{Type: AssertMetric, Metric: "density", Value: ptr(0.5)}, ""},
		{"metric library calls", Assertion{Type: AssertMetric, Metric: "library_calls", Value: ptr(2.0)}, ""},
		{"metric mismatch", Assertion{Type: AssertMetric, Metric: "critical_calls", Value: ptr(3.0)}, "critical_calls = 1"},
		{"unknown symbol", Assertion{Type: AssertUnknownSymbol, Function: "Dump"}, ""},
		{"unknown symbol missing", Assertion{Type: AssertUnknownSymbol, Function: "Load"}, "1 unknown symbol(s)"},
		{"unknown type", Assertion{Type: "sometimes"}, `unknown assertion type "sometimes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if tt.wantFail == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantFail)
		})
	}
}

func TestEvaluateAssertions_NotScored(t *testing.T) {
	r := sampleResult()
	r.Metrics = nil
	r.ScoreError = "unknown symbols: Dump"

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertMetric, Metric: "score", Value: ptr(0.0)},
		{Type: AssertBranch, Branch: "Create()"},
	})
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Contains(t, e, "not scored: unknown symbols: Dump")
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOK,
		Expected: "ok = true",
		Actual:   "ok = false",
		Trace:    []TraceEvent{{Index: 0, Call: "Destroy(d)", Violations: []string{"DoubleRelease at call #0 Destroy: x"}}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: ok")
	assert.Contains(t, msg, "  [0] Destroy(d)")
	assert.Contains(t, msg, "      DoubleRelease at call #0 Destroy: x")
}
