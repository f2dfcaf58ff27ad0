package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/testutil"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()

	assert.Equal(t, 0, c.Next())
	assert.Equal(t, 1, c.Next())
	assert.Equal(t, 2, c.Next())
}

func TestClock_StampsUnknownCalls(t *testing.T) {
	seq := testutil.Seq(1,
		testutil.Call("d", "Create"),
		testutil.Call("", "Dump", ir.Var("d")),
		testutil.Call("", "Destroy", ir.Var("d")),
	)

	res := Validate(testutil.DocModel(), seq, Options{Mode: ModePermissive})

	require.Len(t, res.Calls, 3)
	for i, c := range res.Calls {
		assert.Equal(t, i, c.Index)
	}
	require.Len(t, res.UnknownSymbols, 1)
	assert.Equal(t, 1, res.UnknownSymbols[0].Call)
}
