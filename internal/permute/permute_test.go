package permute

import (
	"testing"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCircular(t *testing.T) {
	perms, err := Generate(ModeCircular, 0)
	require.NoError(t, err)
	require.Len(t, perms, 4)

	labels := make([]string, 0, 4)
	for _, p := range perms {
		assert.True(t, p.Valid(), "permutation %v is not a bijection", p)
		labels = append(labels, p.Label())
	}
	assert.Equal(t, []string{"ABCD", "DABC", "CDAB", "BCDA"}, labels)

	// Determinism: identical arguments yield identical sequences.
	again, err := Generate(ModeCircular, 4)
	require.NoError(t, err)
	assert.Equal(t, perms, again)
}

func TestGenerateCircularBadCount(t *testing.T) {
	_, err := Generate(ModeCircular, 3)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestGenerateFactorial(t *testing.T) {
	all, err := Generate(ModeFactorial, 24)
	require.NoError(t, err)
	require.Len(t, all, 24)

	// No duplicates, all bijections.
	seen := make(map[string]bool)
	for _, p := range all {
		assert.True(t, p.Valid())
		label := p.Label()
		assert.False(t, seen[label], "duplicate permutation %s", label)
		seen[label] = true
	}

	// Lexicographic order by index tuple.
	assert.Equal(t, Permutation{0, 1, 2, 3}, all[0])
	assert.Equal(t, Permutation{0, 1, 3, 2}, all[1])
	assert.Equal(t, Permutation{3, 2, 1, 0}, all[23])

	// A requested subset is the prefix of the full enumeration.
	for _, k := range []int{1, 5, 12} {
		subset, err := Generate(ModeFactorial, k)
		require.NoError(t, err)
		assert.Equal(t, all[:k], subset)
	}
}

func TestGenerateFactorialBadCount(t *testing.T) {
	for _, k := range []int{0, -1, 25} {
		_, err := Generate(ModeFactorial, k)
		require.Error(t, err, "count %d", k)
		assert.True(t, models.IsConfigError(err))
	}
}

func TestApplyAndRemap(t *testing.T) {
	choices := [4]string{"alpha", "beta", "gamma", "delta"}

	dabc := Permutation{3, 0, 1, 2}
	assert.Equal(t, "DABC", dabc.Label())
	assert.Equal(t, [4]string{"delta", "alpha", "beta", "gamma"}, dabc.Apply(choices))

	// Original correct option at index 1 ("B") moves to position 2 ("C")
	// under DABC.
	assert.Equal(t, 2, dabc.NewPosition(1))
	assert.Equal(t, "C", dabc.RemapLabel(1))

	// Identity leaves everything in place.
	id := Identity()
	assert.Equal(t, choices, id.Apply(choices))
	assert.Equal(t, "B", id.RemapLabel(1))
}

func TestFromIndices(t *testing.T) {
	p, err := FromIndices([]int{2, 3, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "CDAB", p.Label())

	_, err = FromIndices([]int{0, 1, 2})
	assert.Error(t, err)

	_, err = FromIndices([]int{0, 0, 1, 2})
	assert.Error(t, err)

	_, err = FromIndices([]int{0, 1, 2, 4})
	assert.Error(t, err)
}
