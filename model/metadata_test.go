package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValueScan(t *testing.T) {
	t.Run("Round-trips through Value and Scan", func(t *testing.T) {
		metadata := Metadata{"author": "Test Author", "year": float64(2026)}
		value, err := metadata.Value()
		require.NoError(t, err)

		var decoded Metadata
		err = decoded.Scan(value)
		require.NoError(t, err)
		assert.Equal(t, metadata, decoded)
	})

	t.Run("Scans nil to empty metadata", func(t *testing.T) {
		var metadata Metadata
		err := metadata.Scan(nil)
		require.NoError(t, err)
		assert.NotNil(t, metadata)
		assert.Empty(t, metadata)
	})

	t.Run("Rejects non-byte values", func(t *testing.T) {
		var metadata Metadata
		err := metadata.Scan(42)
		assert.Error(t, err)
	})
}
