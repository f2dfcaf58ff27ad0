package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/testutil"
)

var (
	call = testutil.Call
	v    = ir.Var
	lit  = ir.Lit
)

func TestValidate_CreateDestroy(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("d")),
	)

	res := Validate(m, seq, Options{})

	assert.True(t, res.OK)
	assert.False(t, res.Halted)
	assert.Empty(t, res.Violations)
	assert.Empty(t, res.UnknownSymbols)
	assert.Len(t, res.Transitions, 2, "Unborn->Live and Live->Released")
	assert.Equal(t, map[string]ir.State{"d": ir.StateReleased}, res.FinalStates)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, 0, res.Calls[0].Created)
	assert.Equal(t, noInstance, res.Calls[1].Created)
}

func TestValidate_DoubleReleaseReportedOnce(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("d")),
		call("", "Destroy", v("d")),
	)

	for _, mode := range []Mode{ModeStrict, ModePermissive} {
		t.Run(string(mode), func(t *testing.T) {
			res := Validate(m, seq, Options{Mode: mode})
			assert.False(t, res.OK)
			require.Len(t, res.Violations, 1)
			assert.Equal(t, DoubleRelease, res.Violations[0].Kind)
			assert.Equal(t, 2, res.Violations[0].Call)
		})
	}
}

func TestValidate_PermissiveDoubleReleaseThenBorrow(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("d")),
		call("", "Destroy", v("d")),
		call("", "Borrow", v("d"), lit("1")),
		call("", "Destroy", v("d")),
	)

	res := Validate(m, seq, Options{Mode: ModePermissive})
	assert.False(t, res.OK)
	assert.False(t, res.Halted)
	assert.Equal(t, 1, CountKind(res.Violations, DoubleRelease))
	assert.Equal(t, 2, CountKind(res.Violations, PoisonedUse))
	require.Len(t, res.Violations, 3)
	assert.Equal(t, 2, res.Violations[0].Call)
	assert.Equal(t, 3, res.Violations[1].Call)
	assert.Contains(t, res.Violations[1].Message, "poisoned by DoubleRelease")
	assert.Equal(t, 4, res.Violations[2].Call)
}

func TestValidate_UnreleasedResource(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1, call("d", "Create"))

	res := Validate(m, seq, Options{})

	assert.False(t, res.OK)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, UnreleasedResource, v.Kind)
	assert.Equal(t, EndOfSequence, v.Call)
	assert.Equal(t, "d", v.Var)
}

func TestValidate_UnreleasedOncePerInstance(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("a", "Create"),
		call("b", "Create"),
		call("", "Borrow", v("a"), lit("1")),
		call("", "Borrow", v("a"), lit("2")),
	)

	res := Validate(m, seq, Options{Mode: ModePermissive})
	assert.Equal(t, 2, CountKind(res.Violations, UnreleasedResource))
}

func TestValidate_BorrowAddsVisitedTransitions(t *testing.T) {
	m := testutil.DocModel()
	plain := Validate(m, testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("d")),
	), Options{})
	borrowed := Validate(m, testutil.Seq(2,
		call("d", "Create"),
		call("", "Borrow", v("d"), lit("0")),
		call("", "Destroy", v("d")),
	), Options{})

	assert.True(t, borrowed.OK)
	assert.Greater(t, len(borrowed.Transitions), len(plain.Transitions))
	assert.Len(t, borrowed.Transitions, 4)
}

func TestValidate_StrictHaltsAtFirstViolation(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("d")),
		call("", "Borrow", v("d"), lit("0")),
		call("n", "NewNode"),
		call("", "Destroy", v("n")),
	)

	strict := Validate(m, seq, Options{Mode: ModeStrict})
	assert.True(t, strict.Halted)
	require.Len(t, strict.Violations, 1)
	assert.Equal(t, UseAfterRelease, strict.Violations[0].Kind)
	assert.Len(t, strict.Calls, 3)

	permissive := Validate(m, seq, Options{Mode: ModePermissive})
	assert.False(t, permissive.Halted)
	assert.Len(t, permissive.Calls, 5)
	assert.Equal(t, 1, CountKind(permissive.Violations, UseAfterRelease))
	assert.Equal(t, 1, CountKind(permissive.Violations, TypeMismatch))
}

func TestValidate_StrictSkipsUnreleasedAfterHalt(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Destroy", v("ghost")),
	)

	res := Validate(m, seq, Options{Mode: ModeStrict})
	require.Len(t, res.Violations, 1)
	assert.Equal(t, UnboundHandle, res.Violations[0].Kind)

	res = Validate(m, seq, Options{Mode: ModePermissive})
	assert.Equal(t, 1, CountKind(res.Violations, UnboundHandle))
	assert.Equal(t, 1, CountKind(res.Violations, UnreleasedResource))
}

func TestValidate_UnknownSymbol(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("", "Frobnicate", v("d")),
		call("", "Destroy", v("d")),
	)

	strict := Validate(m, seq, Options{Mode: ModeStrict})
	assert.False(t, strict.OK)
	assert.True(t, strict.Halted)
	require.Len(t, strict.UnknownSymbols, 1)
	assert.Equal(t, "Frobnicate", strict.UnknownSymbols[0].Function)
	assert.Equal(t, 1, strict.UnknownSymbols[0].Call)
	assert.Empty(t, strict.Violations)

	permissive := Validate(m, seq, Options{Mode: ModePermissive})
	assert.False(t, permissive.OK, "unknown symbols always fail a sequence")
	assert.Empty(t, permissive.Violations)
	require.Len(t, permissive.Calls, 3)
	assert.False(t, permissive.Calls[1].Known)
	assert.Equal(t, ir.StateReleased, permissive.FinalStates["d"])
}

func TestValidate_DanglingAliasUse(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("d", "Create"),
		call("c", "Child", v("d")),
		call("", "Destroy", v("d")),
		call("", "Borrow", v("c"), lit("0")),
	)

	res := Validate(m, seq, Options{Mode: ModePermissive})
	require.Len(t, res.Violations, 1)
	assert.Equal(t, DanglingAliasUse, res.Violations[0].Kind)
	assert.Equal(t, 3, res.Violations[0].Call)
}

func TestValidate_AliasesAreNotOwedRelease(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("p", "Create"),
		call("c", "Create"),
		call("", "Attach", v("p"), v("c")),
		call("", "Destroy", v("p")),
	)

	res := Validate(m, seq, Options{})
	assert.True(t, res.OK, "violations: %v", res.Violations)
	assert.Equal(t, ir.StateRevoked, res.FinalStates["c"])
}

func TestValidate_NodeAliasMayBeReleased(t *testing.T) {
	m := testutil.DocModel()
	m.Functions["NodeChild"] = &ir.FunctionSpec{
		Name:    "NodeChild",
		Params:  []ir.Param{{Name: "n", Role: ir.RoleBorrows, Type: "Node", Into: -1}},
		Returns: ir.Return{Kind: ir.ReturnAlias, Type: "Node", Of: 0},
	}
	seq := testutil.Seq(1,
		call("n", "NewNode"),
		call("c", "NodeChild", v("n")),
		call("", "FreeNode", v("c")),
		call("", "FreeNode", v("n")),
	)

	res := Validate(m, seq, Options{})
	assert.True(t, res.OK, "violations: %v", res.Violations)
}

func TestValidate_LeakCandidatesDoNotFail(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("g", "Global"),
		call("g", "Global"),
		call("d", "Create"),
		call("", "Destroy", v("d")),
	)

	res := Validate(m, seq, Options{})
	assert.True(t, res.OK)
	assert.Empty(t, res.LeakCandidates, "borrowed handles are not leaked by rebinding")

	seq = testutil.Seq(2,
		call("d", "Create"),
		call("", "Destroy", v("d")),
		call("x", "Create"),
		call("x", "Create"),
		call("", "Destroy", v("x")),
	)
	res = Validate(m, seq, Options{Mode: ModePermissive})
	assert.Len(t, res.LeakCandidates, 1)
	assert.Equal(t, 1, CountKind(res.Violations, UnreleasedResource))
}

func TestValidate_EmptySequence(t *testing.T) {
	m := testutil.DocModel()
	res := Validate(m, testutil.Seq(1), Options{})

	assert.True(t, res.OK)
	assert.Empty(t, res.Transitions)
	assert.Empty(t, res.Calls)
}

func TestValidate_Deterministic(t *testing.T) {
	m := testutil.DocModel()
	seq := testutil.Seq(1,
		call("a", "Create"),
		call("c", "Child", v("a")),
		call("b", "Create"),
		call("", "Attach", v("a"), v("b")),
		call("", "Destroy", v("a")),
		call("", "Borrow", v("c"), lit("0")),
	)

	first := Validate(m, seq, Options{Mode: ModePermissive})
	for i := 0; i < 10; i++ {
		again := Validate(m, seq, Options{Mode: ModePermissive})
		assert.Equal(t, first, again)
	}
}

func TestValidate_OutParameterHandles(t *testing.T) {
	m := testutil.SQLiteModel()
	seq := testutil.Seq(1,
		call("", "sqlite3_open", lit(`":memory:"`), ir.Out("db")),
		call("", "sqlite3_prepare_v2", v("db"), lit(`"SELECT 1"`), lit("-1"), ir.Out("stmt"), lit("NULL")),
		call("", "sqlite3_step", v("stmt")),
		call("", "sqlite3_finalize", v("stmt")),
		call("", "sqlite3_close", v("db")),
	)

	res := Validate(m, seq, Options{})
	assert.True(t, res.OK)
	assert.Empty(t, res.Violations)
	assert.Equal(t, map[string]ir.State{"db": ir.StateReleased, "stmt": ir.StateReleased}, res.FinalStates)
	require.Len(t, res.Calls, 5)
	assert.Equal(t, noInstance, res.Calls[0].Created)
	assert.Equal(t, []int{0}, res.Calls[0].Produced)
	assert.Equal(t, []int{1}, res.Calls[1].Produced)
	assert.Equal(t, []string{"value", "produces:DB"}, res.Calls[0].Shapes)
	assert.Contains(t, res.Transitions, ir.Transition{Type: "DB", From: ir.StateUnborn, To: ir.StateLive})
}

func TestValidate_OutParameterMisuse(t *testing.T) {
	m := testutil.SQLiteModel()

	t.Run("never closed", func(t *testing.T) {
		res := Validate(m, testutil.Seq(1,
			call("", "sqlite3_open", lit(`"a.db"`), ir.Out("db")),
		), Options{})
		require.Len(t, res.Violations, 1)
		assert.Equal(t, UnreleasedResource, res.Violations[0].Kind)
		assert.Equal(t, "db", res.Violations[0].Var)
	})

	t.Run("closed twice", func(t *testing.T) {
		res := Validate(m, testutil.Seq(1,
			call("", "sqlite3_open", lit(`"a.db"`), ir.Out("db")),
			call("", "sqlite3_close", v("db")),
			call("", "sqlite3_close", v("db")),
		), Options{})
		require.Len(t, res.Violations, 1)
		assert.Equal(t, DoubleRelease, res.Violations[0].Kind)
		assert.Equal(t, 2, res.Violations[0].Call)
	})

	t.Run("reopened while live", func(t *testing.T) {
		res := Validate(m, testutil.Seq(1,
			call("", "sqlite3_open", lit(`"a.db"`), ir.Out("db")),
			call("", "sqlite3_open", lit(`"b.db"`), ir.Out("db")),
			call("", "sqlite3_close", v("db")),
		), Options{})
		require.Len(t, res.LeakCandidates, 1)
		assert.Equal(t, "db", res.LeakCandidates[0].Var)
		assert.Equal(t, 0, res.LeakCandidates[0].Instance)
		assert.Equal(t, 1, CountKind(res.Violations, UnreleasedResource))
	})

	t.Run("literal out argument", func(t *testing.T) {
		res := Validate(m, testutil.Seq(1,
			call("", "sqlite3_open", lit(`"a.db"`), lit("NULL")),
		), Options{})
		assert.True(t, res.OK)
		assert.Empty(t, res.Instances)
	})
}

func TestSourceFormatted(t *testing.T) {
	testutil.AssertFormatted(t, "validate.go", "tracker.go", "violation.go")
}
