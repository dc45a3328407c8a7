package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuneEstimator(t *testing.T) {
	t.Run("Should round up to whole tokens", func(t *testing.T) {
		var c RuneEstimator
		assert.Equal(t, 0, c.Count(""))
		assert.Equal(t, 1, c.Count("a"))
		assert.Equal(t, 1, c.Count("abcd"))
		assert.Equal(t, 2, c.Count("abcde"))
	})
	t.Run("Should count runes rather than bytes", func(t *testing.T) {
		assert.Equal(t, 1, RuneEstimator{}.Count("ünï"))
	})
}

func TestNew(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.IsType(t, RuneEstimator{}, c)
	_, err = New("words")
	assert.Error(t, err)
}
