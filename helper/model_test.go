package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	t.Run("Return existing model path when model exists", func(t *testing.T) {
		// Create a mock model directory
		modelName := "test/mock-model"
		modelPath := filepath.Join("./models", "test_mock-model")

		err := os.MkdirAll(modelPath, 0750)
		require.NoError(t, err, "Expected directory creation to succeed")
		defer os.RemoveAll(modelPath)

		path, err := PrepareModel(modelName, "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error for existing model")
		assert.Equal(t, modelPath, path, "Expected returned path to match existing model path")
	})

	t.Run("Handle model name with slash", func(t *testing.T) {
		modelName := "organization/model-name"
		expectedPath := filepath.Join("./models", "organization_model-name")

		err := os.MkdirAll(expectedPath, 0750)
		require.NoError(t, err, "Expected directory creation to succeed")
		defer os.RemoveAll(expectedPath)

		path, err := PrepareModel(modelName, "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error")
		assert.Equal(t, expectedPath, path, "Expected path to use sanitized name")
	})

	t.Run("Handle model name without slash", func(t *testing.T) {
		modelName := "simple-model"
		expectedPath := filepath.Join("./models", "simple-model")

		err := os.MkdirAll(expectedPath, 0750)
		require.NoError(t, err, "Expected directory creation to succeed")
		defer os.RemoveAll(expectedPath)

		path, err := PrepareModel(modelName, "onnx/model.onnx")
		assert.NoError(t, err, "Expected PrepareModel to not return an error")
		assert.Equal(t, expectedPath, path, "Expected path to use model name directly")
	})
}
