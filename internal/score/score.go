package score

import (
	"slices"
	"strings"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// BranchKey builds the branch key of one call: the function name followed by
// the ownership-role shape of each resolved argument, e.g.
// "cJSON_AddItemToObject(borrows:Item,value,aliases:Item)".
func BranchKey(function string, shapes []string) string {
	return function + "(" + strings.Join(shapes, ",") + ")"
}

// Score computes the quality metrics of seq from its validation result.
//
// Returns *ScoringError when the sequence is empty, the result is missing, or
// the result carries unknown symbols. A sequence that is not OK still gets
// its metrics, with Score forced to 0.
func Score(model *ir.InterfaceModel, seq *ir.SequenceRecord, result *engine.ValidationResult, w Weights) (ir.QualityMetrics, error) {
	if result == nil {
		return ir.QualityMetrics{}, &ScoringError{SequenceID: seq.ID, Reason: "missing validation result"}
	}
	if len(result.UnknownSymbols) > 0 {
		names := make([]string, 0, len(result.UnknownSymbols))
		for _, u := range result.UnknownSymbols {
			names = append(names, u.Function)
		}
		slices.Sort(names)
		names = slices.Compact(names)
		return ir.QualityMetrics{}, &ScoringError{
			SequenceID: seq.ID,
			Reason:     "unknown symbols: " + strings.Join(names, ", "),
		}
	}
	if len(seq.Calls) == 0 {
		return ir.QualityMetrics{}, &ScoringError{SequenceID: seq.ID, Reason: "empty sequence"}
	}

	q := ir.EmptyMetrics()

	seen := make(map[string]bool)
	for _, c := range seq.Calls {
		if seen[c.Function] {
			continue
		}
		seen[c.Function] = true
		q.LibraryCalls = append(q.LibraryCalls, c.Function)
		if fn, ok := model.Function(c.Function); ok && fn.Critical {
			q.CriticalCalls = append(q.CriticalCalls, c.Function)
		}
	}

	for _, tr := range result.Calls {
		if !tr.Known {
			continue
		}
		q.UniqueBranches[BranchKey(tr.Function, tr.Shapes)]++
	}

	q.Visited = len(result.Transitions)
	q.Density = float64(len(q.LibraryCalls)) / float64(len(seq.Calls))
	q.Normalize()

	if result.OK {
		q.Score = w.Density*q.Density +
			w.Branches*float64(len(q.UniqueBranches)) +
			w.LibraryCalls*float64(len(q.LibraryCalls)) +
			w.CriticalCalls*float64(len(q.CriticalCalls)) +
			w.Visited*float64(q.Visited) +
			w.Leak*float64(len(result.LeakCandidates))
		if q.Score < 0 {
			q.Score = 0
		}
	}

	return q, nil
}

// Fingerprint returns the shape fingerprint of computed metrics.
func Fingerprint(q ir.QualityMetrics) (string, error) {
	return ir.ShapeFingerprint(q.LibraryCalls, q.BranchKeys())
}
