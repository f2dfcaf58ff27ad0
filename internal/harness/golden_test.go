package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

func TestGolden_ScenarioA(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_a.yaml"))
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestGolden_ScenarioB(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_b.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "assertion failures:\n%v", result.Errors)
	require.NoError(t, AssertGolden(t, "scenario_b", result))
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_e.yaml"))
	require.NoError(t, err)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(s)
		require.NoError(t, err)
		data, err := ir.MarshalCanonical(Snapshot(s.Name, s.Mode, result))
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		assert.Equal(t, string(first), string(data))
	}
}

func TestSnapshot_ScoreError(t *testing.T) {
	result := NewResult()
	result.Validation = &engine.ValidationResult{Violations: []engine.Violation{}}
	result.ScoreError = "empty sequence"

	snap := Snapshot("empty", "permissive", result)
	assert.Equal(t, "permissive", snap["mode"])
	assert.Equal(t, "empty sequence", snap["score_error"])
	assert.NotContains(t, snap, "metrics")

	_, err := ir.MarshalCanonical(snap)
	require.NoError(t, err)
}
