package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthInterpretationClone(t *testing.T) {
	orig := HealthInterpretation{
		Summary:         "s",
		Causes:          []string{"a", "b"},
		Recommendations: []string{"c"},
	}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.Causes[0] = "changed"
	assert.Equal(t, "a", orig.Causes[0])
}

func TestHealthInterpretationNormalized(t *testing.T) {
	t.Run("nil lists", func(t *testing.T) {
		n := HealthInterpretation{Summary: "only summary"}.Normalized()
		assert.Equal(t, "only summary", n.Summary)
		assert.NotNil(t, n.Causes)
		assert.NotNil(t, n.Recommendations)
		assert.Empty(t, n.Causes)

		b, err := json.Marshal(n)
		require.NoError(t, err)
		assert.JSONEq(t, `{"summary":"only summary","causes":[],"recommendations":[]}`, string(b))
	})

	t.Run("populated lists unchanged", func(t *testing.T) {
		h := HealthInterpretation{Summary: "x", Causes: []string{"c"}, Recommendations: []string{"r"}}
		assert.Equal(t, h, h.Normalized())
	})
}

func TestHealthInterpretationJSON(t *testing.T) {
	var h HealthInterpretation
	err := json.Unmarshal([]byte(`{"summary":"良好","causes":["温度"],"recommendations":["巡检","校准"]}`), &h)
	require.NoError(t, err)
	assert.Equal(t, HealthInterpretation{
		Summary:         "良好",
		Causes:          []string{"温度"},
		Recommendations: []string{"巡检", "校准"},
	}, h)
}
