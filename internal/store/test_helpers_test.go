package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func metrics(score float64, calls ...string) *ir.QualityMetrics {
	q := ir.EmptyMetrics()
	q.Density = float64(len(calls))
	q.LibraryCalls = calls
	q.Visited = len(calls)
	q.Score = score
	q.Normalize()
	return &q
}

// createTestReport builds a three-fixture report: two scored sequences and
// one with a double release.
func createTestReport(runID string) *corpus.Report {
	return &corpus.Report{
		Version:       ir.ReportVersion,
		EngineVersion: ir.EngineVersion,
		RunID:         runID,
		Library:       "doc",
		ManifestHash:  "manifest-hash",
		Mode:          engine.ModeStrict,
		Sequences: []corpus.SequenceReport{
			{
				ID: 1, Path: "baseline/a.c", Strategy: ir.StrategyBaseline, OK: true,
				Metrics: metrics(9, "Create", "Destroy"), Violations: []engine.Violation{},
				Fingerprint: "fp-a", Rank: 2,
			},
			{
				ID: 2, Path: "baseline/b.c", Strategy: ir.StrategyBaseline, OK: false,
				Metrics: metrics(0, "Create", "Destroy"),
				Violations: []engine.Violation{{
					Kind: engine.DoubleRelease, Call: 2, Line: 7, Function: "Destroy",
					Var: "d", Instance: 0, Message: "instance #0 already released",
				}},
				Fingerprint: "fp-b",
			},
			{
				ID: 4, Path: "repaired/d.c", Strategy: ir.StrategyRepaired, OK: true,
				Metrics: metrics(13, "Borrow", "Create", "Destroy"), Violations: []engine.Violation{},
				Fingerprint: "fp-d", Rank: 1,
			},
		},
		Ranking: []int64{4, 1},
	}
}
