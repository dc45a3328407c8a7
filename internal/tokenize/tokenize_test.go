package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	t.Run("Should lowercase and keep apostrophes and numbers", func(t *testing.T) {
		assert.Equal(t, []string{"don't", "deploy", "on", "friday", "13"}, Words("Don't deploy on Friday 13!"))
	})
	t.Run("Should return nothing for punctuation only", func(t *testing.T) {
		assert.Empty(t, Words("?!..."))
	})
}

func TestTerms(t *testing.T) {
	t.Run("Should drop stopwords", func(t *testing.T) {
		assert.Equal(t, []string{"what", "ci"}, Terms("What is the CI?"))
	})
}

func TestSet(t *testing.T) {
	t.Run("Should deduplicate tokens", func(t *testing.T) {
		s := Set("test test TEST code")
		assert.Len(t, s, 2)
		assert.Contains(t, s, "test")
		assert.Contains(t, s, "code")
	})
}
