package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the replay trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Index, event.Call)
		for _, v := range event.Violations {
			fmt.Fprintf(&buf, "      %s\n", v)
		}
	}

	return buf.String()
}

func fail(result *Result, typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Trace: result.Trace}
}

func assertFlag(result *Result, a Assertion, actual bool) error {
	if a.Expect == nil {
		return fmt.Errorf("%s: expect is required", a.Type)
	}
	if *a.Expect == actual {
		return nil
	}
	return fail(result, a.Type, fmt.Sprintf("%s = %t", a.Type, *a.Expect), fmt.Sprintf("%s = %t", a.Type, actual))
}

// assertViolation checks for violations of one kind, optionally pinned to
// a call index and an exact count.
func assertViolation(result *Result, a Assertion) error {
	n := 0
	for _, v := range result.Validation.Violations {
		if string(v.Kind) != a.Kind {
			continue
		}
		if a.Call != nil && v.Call != *a.Call {
			continue
		}
		n++
	}

	want := fmt.Sprintf("violation %s", a.Kind)
	if a.Call != nil {
		want += fmt.Sprintf(" at call #%d", *a.Call)
	}
	switch {
	case a.Count != nil && n != *a.Count:
		return fail(result, a.Type, fmt.Sprintf("%d x %s", *a.Count, want), fmt.Sprintf("%d found (%s)", n, kinds(result)))
	case a.Count == nil && n == 0:
		return fail(result, a.Type, want, fmt.Sprintf("not found (%s)", kinds(result)))
	}
	return nil
}

func assertNoViolations(result *Result, a Assertion) error {
	v := result.Validation
	if len(v.Violations) == 0 && len(v.UnknownSymbols) == 0 {
		return nil
	}
	return fail(result, a.Type, "no violations", kinds(result))
}

func assertFinalState(result *Result, a Assertion) error {
	state, ok := result.Validation.FinalStates[a.Var]
	if !ok {
		return fail(result, a.Type, fmt.Sprintf("%s in state %s", a.Var, a.State), fmt.Sprintf("%s is not bound", a.Var))
	}
	if state != ir.State(a.State) {
		return fail(result, a.Type, fmt.Sprintf("%s in state %s", a.Var, a.State), fmt.Sprintf("%s in state %s", a.Var, state))
	}
	return nil
}

func assertTransition(result *Result, a Assertion) error {
	var seen []string
	for _, tr := range result.Validation.Transitions {
		if tr.String() == a.Transition {
			return nil
		}
		seen = append(seen, tr.String())
	}
	return fail(result, a.Type, a.Transition, fmt.Sprintf("visited [%s]", strings.Join(seen, ", ")))
}

func assertBranch(result *Result, a Assertion) error {
	if result.Metrics == nil {
		return fail(result, a.Type, a.Branch, "not scored: "+result.ScoreError)
	}
	if _, ok := result.Metrics.UniqueBranches[a.Branch]; ok {
		return nil
	}
	return fail(result, a.Type, a.Branch, fmt.Sprintf("branches [%s]", strings.Join(result.Metrics.BranchKeys(), ", ")))
}

func assertMetric(result *Result, a Assertion) error {
	q := result.Metrics
	if q == nil {
		return fail(result, a.Type, a.Metric, "not scored: "+result.ScoreError)
	}

	var actual float64
	switch a.Metric {
	case "score":
		actual = q.Score
	case "visited":
		actual = float64(q.Visited)
	case "density":
		actual = q.Density
	case "branches":
		actual = float64(len(q.UniqueBranches))
	case "library_calls":
		actual = float64(len(q.LibraryCalls))
	case "critical_calls":
		actual = float64(len(q.CriticalCalls))
	}

	if actual != *a.Value {
		return fail(result, a.Type,
			fmt.Sprintf("%s = %s", a.Metric, corpus.FormatScore(*a.Value)),
			fmt.Sprintf("%s = %s", a.Metric, corpus.FormatScore(actual)))
	}
	return nil
}

func assertUnknownSymbol(result *Result, a Assertion) error {
	for _, u := range result.Validation.UnknownSymbols {
		if u.Function == a.Function {
			return nil
		}
	}
	return fail(result, a.Type, "unknown symbol "+a.Function, fmt.Sprintf("%d unknown symbol(s)", len(result.Validation.UnknownSymbols)))
}

// kinds summarizes the reported violation kinds.
func kinds(result *Result) string {
	v := result.Validation
	if len(v.Violations) == 0 && len(v.UnknownSymbols) == 0 {
		return "none"
	}
	var out []string
	for _, viol := range v.Violations {
		out = append(out, string(viol.Kind))
	}
	for range v.UnknownSymbols {
		out = append(out, "UnknownSymbol")
	}
	return strings.Join(out, ", ")
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertOK:
			err = assertFlag(result, a, result.Validation.OK)
		case AssertHalted:
			err = assertFlag(result, a, result.Validation.Halted)
		case AssertViolation:
			err = assertViolation(result, a)
		case AssertNoViolations:
			err = assertNoViolations(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertTransition:
			err = assertTransition(result, a)
		case AssertBranch:
			err = assertBranch(result, a)
		case AssertMetric:
			err = assertMetric(result, a)
		case AssertUnknownSymbol:
			err = assertUnknownSymbol(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
