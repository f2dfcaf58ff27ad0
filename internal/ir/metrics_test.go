package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalQuality_KeyOrder(t *testing.T) {
	q := QualityMetrics{
		Density:        0.5,
		UniqueBranches: map[string]int{"Destroy(consumes:Doc)": 1, "Create()": 1},
		LibraryCalls:   []string{"Destroy", "Create"},
		CriticalCalls:  []string{"Destroy"},
		Visited:        2,
		Score:          9,
	}

	got, err := q.MarshalQuality()
	require.NoError(t, err)
	assert.Equal(t,
		`{"density":0.5,"unique_branches":{"Create()":1,"Destroy(consumes:Doc)":1},"library_calls":["Create","Destroy"],"critical_calls":["Destroy"],"visited":2}`,
		got)
}

func TestMarshalQuality_EmptyCollections(t *testing.T) {
	got, err := QualityMetrics{}.MarshalQuality()
	require.NoError(t, err)
	assert.Equal(t, `{"density":0,"unique_branches":{},"library_calls":[],"critical_calls":[],"visited":0}`, got)
}

func TestQuality_RoundTrip(t *testing.T) {
	q := QualityMetrics{
		Density:        2.0 / 3.0,
		UniqueBranches: map[string]int{"A(value)": 2, "B(borrows:T)": 1},
		LibraryCalls:   []string{"A", "B"},
		CriticalCalls:  []string{},
		Visited:        4,
	}
	q.Normalize()

	s, err := q.MarshalQuality()
	require.NoError(t, err)

	var back QualityMetrics
	require.NoError(t, back.UnmarshalQuality(s))
	assert.Equal(t, q, back)
}

func TestUnmarshalQuality_RejectsUnknownKeys(t *testing.T) {
	var q QualityMetrics
	err := q.UnmarshalQuality(`{"density":0,"bogus":1}`)
	assert.Error(t, err)
}

func TestUnmarshalQuality_RequiresEveryKey(t *testing.T) {
	var q QualityMetrics
	err := q.UnmarshalQuality(`{"visited":3}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing key "density"`)

	err = q.UnmarshalQuality(`{"density":0,"unique_branches":{},"library_calls":[],"critical_calls":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing key "visited"`)
	assert.Zero(t, q.Visited)
}

func TestUnmarshalQuality_RejectsMalformedRecords(t *testing.T) {
	full := `{"density":0,"unique_branches":{},"library_calls":[],"critical_calls":[],"visited":1}`

	tests := []struct {
		name string
		in   string
	}{
		{"trailing object", full + `{}`},
		{"trailing garbage", full + ` x`},
		{"trailing brace", full + `}`},
		{"null", `null`},
		{"array", `[]`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q QualityMetrics
			assert.Error(t, q.UnmarshalQuality(tt.in))
		})
	}

	var q QualityMetrics
	require.NoError(t, q.UnmarshalQuality(full+"  \n"))
	assert.Equal(t, 1, q.Visited)
	assert.NotNil(t, q.UniqueBranches)
}
