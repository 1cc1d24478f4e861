package prepper

import (
	"context"
	"log"
	"strings"
	"testing"

	"github.com/annotatehq/prepper/core/pipeline"
	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

const testEmbeddingDim = 3

func initPrepper(t *testing.T) *Prepper {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	p, err := NewPrepper(dbConfig, testEmbeddingDim)
	require.NoError(t, err, "failed to create prepper")
	t.Cleanup(func() { p.Close() })

	return p
}

func TestNewPrepper(t *testing.T) {
	p := initPrepper(t)

	assert.NotNil(t, p.DB, "Expected a database connection")
	assert.NotNil(t, p.Documents, "Expected a documents handler")
	assert.NotNil(t, p.Chunks, "Expected a chunks handler")
	assert.NotNil(t, p.Entities, "Expected an entities handler")
	assert.Nil(t, p.Pipeline, "Expected no pipeline until one is set")
}

func TestPrepperPreprocessDocument(t *testing.T) {
	p := initPrepper(t)
	p.UseDefaultPipeline()

	doc := &model.Document{
		Title: "Preprocess Test",
		Text:  "The men saw Jack. He waved.",
	}
	err := p.Documents.InsertDocument(doc)
	require.NoError(t, err)
	t.Cleanup(func() { p.Documents.DeleteDocument(doc.RID) })

	t.Run("Runs all steps and persists the results", func(t *testing.T) {
		err := p.PreprocessDocument(doc)
		require.NoError(t, err)

		retrievedDoc, err := p.Documents.SelectDocument(doc.RID)
		require.NoError(t, err)
		for _, step := range model.PreprocessSteps() {
			assert.True(t, retrievedDoc.WasPreprocessDone(step), "Expected step %s to be persisted", step)
		}

		sentences, err := retrievedDoc.GetSentences()
		require.NoError(t, err)
		count := 0
		for range sentences {
			count++
		}
		assert.Equal(t, 2, count, "Expected two sentences")
	})

	t.Run("Without a pipeline it fails", func(t *testing.T) {
		bare := initPrepper(t)
		err := bare.PreprocessDocument(doc)
		assert.Error(t, err, "Expected error without a pipeline")
	})
}

func TestPrepperPreprocessPending(t *testing.T) {
	p := initPrepper(t)
	p.UseDefaultPipeline()

	pendingDoc := &model.Document{Title: "Pending", Text: "Hello world."}
	err := p.Documents.InsertDocument(pendingDoc)
	require.NoError(t, err)
	t.Cleanup(func() { p.Documents.DeleteDocument(pendingDoc.RID) })

	doneDoc := &model.Document{Title: "Done", Text: "Already processed."}
	err = p.Documents.InsertDocument(doneDoc)
	require.NoError(t, err)
	t.Cleanup(func() { p.Documents.DeleteDocument(doneDoc.RID) })
	err = p.PreprocessDocument(doneDoc)
	require.NoError(t, err)

	t.Run("Processes only documents lacking steps", func(t *testing.T) {
		processed, err := p.PreprocessPending()
		require.NoError(t, err)
		// Four step results for the pending document, none for the done one.
		assert.Equal(t, 4, processed, "Expected one result per missing step")

		retrievedDoc, err := p.Documents.SelectDocument(pendingDoc.RID)
		require.NoError(t, err)
		for _, step := range model.PreprocessSteps() {
			assert.True(t, retrievedDoc.WasPreprocessDone(step), "Expected step %s to be persisted", step)
		}
	})

	t.Run("Second sweep finds nothing to do", func(t *testing.T) {
		processed, err := p.PreprocessPending()
		require.NoError(t, err)
		assert.Zero(t, processed, "Expected no pending work after a full sweep")
	})
}

func TestPrepperBuildChunks(t *testing.T) {
	p := initPrepper(t)
	p.UseDefaultPipeline()

	// Deterministic chunk-level extractor and embedder instead of the
	// model-backed defaults.
	p.Pipeline.SetEntityExtractor(func(text string) ([]model.EntityInChunk, error) {
		var mentions []model.EntityInChunk
		for _, candidate := range []struct {
			form string
			kind string
		}{
			{"John", "PER"},
			{"Mary", "PER"},
			{"Paris", "LOC"},
		} {
			offset := strings.Index(text, candidate.form)
			if offset < 0 {
				continue
			}
			mentions = append(mentions, model.EntityInChunk{
				Key:           pipeline.EntityKey(candidate.form, candidate.kind),
				CanonicalForm: candidate.form,
				Kind:          candidate.kind,
				Offset:        offset,
			})
		}
		return mentions, nil
	})
	p.Pipeline.SetEmbedder(func(text string) ([]float32, error) {
		return []float32{float32(len(text)), 1, 0}, nil
	})

	doc := &model.Document{
		Title: "Chunk Test",
		Text:  "John met Mary. They walked. Mary left Paris. John stayed.",
	}
	err := p.Documents.InsertDocument(doc)
	require.NoError(t, err)
	t.Cleanup(func() { p.Documents.DeleteDocument(doc.RID) })

	err = p.PreprocessDocument(doc)
	require.NoError(t, err)

	t.Run("Builds chunks of the requested sentence count", func(t *testing.T) {
		numChunks, err := p.BuildChunks(doc, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, numChunks, "Expected four sentences to make two chunks")

		chunks, err := p.Chunks.SelectChunksByDocument(doc.RID)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.NotEmpty(t, chunks[0].Entities, "Expected entity mentions on the first chunk")
		assert.Len(t, chunks[0].Embedding, testEmbeddingDim, "Expected an embedding on each chunk")
	})

	t.Run("Upserts mentioned entities into the catalog", func(t *testing.T) {
		entity, err := p.Entities.SelectEntityByKey(pipeline.EntityKey("John", "PER"))
		require.NoError(t, err)
		assert.Equal(t, "John", entity.CanonicalForm)
	})

	t.Run("Finds chunks mentioning both entities", func(t *testing.T) {
		john := &model.Entity{Key: pipeline.EntityKey("John", "PER")}
		mary := &model.Entity{Key: pipeline.EntityKey("Mary", "PER")}

		results, err := p.ChunksWithBothEntities(john, mary)
		require.NoError(t, err)
		require.Len(t, results, 2, "Expected both chunks to mention John and Mary")

		paris := &model.Entity{Key: pipeline.EntityKey("Paris", "LOC")}
		results, err = p.ChunksWithAllEntities(john, mary, paris)
		require.NoError(t, err)
		require.Len(t, results, 1, "Expected only the second chunk to mention all three")
		assert.True(t, results[0].MentionsAllEntities(john.Key, mary.Key, paris.Key))
	})

	t.Run("Searches chunks by similarity", func(t *testing.T) {
		results, err := p.Search("John met Mary. They walked.", 5, 0.0)
		require.NoError(t, err)
		assert.NotEmpty(t, results, "Expected similarity search to return chunks")
	})

	t.Run("Rejects a non-positive sentence count", func(t *testing.T) {
		_, err := p.BuildChunks(doc, 0)
		assert.Error(t, err)
	})

	t.Run("Requires segmentation", func(t *testing.T) {
		rawDoc := &model.Document{Title: "Raw", Text: "No preprocessing here."}
		err := p.Documents.InsertDocument(rawDoc)
		require.NoError(t, err)
		t.Cleanup(func() { p.Documents.DeleteDocument(rawDoc.RID) })

		_, err = p.BuildChunks(rawDoc, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrMissingPrerequisite)
	})
}
