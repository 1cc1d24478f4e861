package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSegmenter(t *testing.T) {
	segment := DefaultSegmenter()

	t.Run("Splits after sentence-final punctuation", func(t *testing.T) {
		tokens := []string{"The", "men", "saw", "Jack", ".", "He", "waved", ".", "Bye"}
		boundaries, err := segment(tokens)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 5, 8, 9}, boundaries)
	})

	t.Run("Single sentence spans all tokens", func(t *testing.T) {
		tokens := []string{"Hello", "world"}
		boundaries, err := segment(tokens)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2}, boundaries)
	})

	t.Run("Trailing punctuation does not open an empty sentence", func(t *testing.T) {
		tokens := []string{"Hello", "world", "!"}
		boundaries, err := segment(tokens)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 3}, boundaries)
	})

	t.Run("Empty token sequence yields the zero boundary only", func(t *testing.T) {
		boundaries, err := segment([]string{})
		require.NoError(t, err)
		assert.Equal(t, []int{0}, boundaries)
	})

	t.Run("Boundaries are strictly ascending", func(t *testing.T) {
		tokens := []string{"A", ".", "B", "!", "C", "?", "D"}
		boundaries, err := segment(tokens)
		require.NoError(t, err)
		for i := 1; i < len(boundaries); i++ {
			assert.Greater(t, boundaries[i], boundaries[i-1], "Expected strictly ascending boundaries")
		}
	})
}
