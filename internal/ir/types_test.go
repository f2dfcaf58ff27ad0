package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"baseline", StrategyBaseline},
		{"random", StrategyRandomized},
		{"rule_guided", StrategyRuleGuided},
		{"rule-guided", StrategyRuleGuided},
		{"repaired", StrategyRepaired},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStrategy("genetic")
	assert.Error(t, err)
}

func TestCallString(t *testing.T) {
	c := Call{Function: "Add", Args: []Binding{Var("d"), Lit(`"k"`)}, Dest: "r"}
	assert.Equal(t, `r = Add(d, <"k">)`, c.String())

	open := Call{Function: "sqlite3_open", Args: []Binding{Lit(`":memory:"`), Out("db")}}
	assert.Equal(t, `sqlite3_open(<":memory:">, &db)`, open.String())
}

func TestStateIsLive(t *testing.T) {
	assert.True(t, StateLive.IsLive())
	assert.True(t, StateLiveAlias.IsLive())
	assert.False(t, StateReleased.IsLive())
	assert.False(t, StateRevoked.IsLive())
	assert.False(t, StatePoisoned.IsLive())
}
