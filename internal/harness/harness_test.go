package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/testutil"
)

func TestScenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures:\n%v", result.Errors)
		})
	}
}

func TestRun_Trace(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_e.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)

	child := result.Trace[1]
	assert.Equal(t, 1, child.Index)
	assert.Equal(t, 2, child.Line)
	assert.Equal(t, "c = Child(d)", child.Call)
	assert.True(t, child.Known)
	assert.Equal(t, "Child(borrows:Doc)", child.Branch)
	assert.Equal(t, []string{"Doc:Live->Borrowed", "Doc:Borrowed->Live", "Doc:Unborn->LiveAlias"}, child.Transitions)
	assert.Empty(t, child.Violations)

	assert.Equal(t, []string{"Doc:Live->Released", "Doc:LiveAlias->Revoked"}, result.Trace[2].Transitions)
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_a.yaml"))
	require.NoError(t, err)

	no := false
	s.Assertions = []Assertion{
		{Type: AssertOK, Expect: &no},
		{Type: AssertFinalState, Var: "d", State: string(ir.StateLive)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "ok = false")
	assert.Contains(t, result.Errors[1], "d in state Released")
	assert.Contains(t, result.Errors[1], "Full trace:")
}

func TestRun_MissingManifest(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Manifest: filepath.Join(t.TempDir(), "none.cue")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load manifest")
}

func TestRunModel_BadMode(t *testing.T) {
	_, err := RunModel(testutil.DocModel(), &Scenario{Name: "x", Mode: "lenient"})
	require.Error(t, err)
}

func TestRunModel_UnknownSymbol(t *testing.T) {
	model := testutil.DocModel()
	model.Prefixes = []string{"Create", "Destroy", "Dump"}

	yes := true
	result, err := RunModel(model, &Scenario{
		Name:   "unknown",
		Mode:   string(engine.ModePermissive),
		Source: "Doc *d = Create();\nDump(d);\nDestroy(d);\n",
		Assertions: []Assertion{
			{Type: AssertUnknownSymbol, Function: "Dump"},
			{Type: AssertHalted, Expect: &yes},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Trace, 3)
	assert.False(t, result.Trace[1].Known)
	assert.Empty(t, result.Trace[1].Branch)
	assert.Nil(t, result.Metrics)
	assert.Contains(t, result.ScoreError, "Dump")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "halted = true")
}
