package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextChunkMentions(t *testing.T) {
	chunk := &TextChunk{
		Text: "John met Mary in Paris. John smiled.",
		Entities: EntityList{
			{Key: "per:john", CanonicalForm: "John", Kind: "PER", Offset: 0},
			{Key: "per:mary", CanonicalForm: "Mary", Kind: "PER", Offset: 9},
			{Key: "loc:paris", CanonicalForm: "Paris", Kind: "LOC", Offset: 17},
			{Key: "per:john", CanonicalForm: "John", Kind: "PER", Offset: 24},
		},
	}

	t.Run("MentionsEntity matches on key", func(t *testing.T) {
		assert.True(t, chunk.MentionsEntity("per:john"))
		assert.True(t, chunk.MentionsEntity("loc:paris"))
		assert.False(t, chunk.MentionsEntity("per:nobody"))
	})

	t.Run("MentionsAllEntities requires every key", func(t *testing.T) {
		assert.True(t, chunk.MentionsAllEntities("per:john", "per:mary"))
		assert.True(t, chunk.MentionsAllEntities("per:john", "per:mary", "loc:paris"))
		assert.False(t, chunk.MentionsAllEntities("per:john", "per:nobody"))
	})

	t.Run("Repeated mentions count once", func(t *testing.T) {
		assert.Equal(t, []string{"per:john", "per:mary", "loc:paris"}, chunk.Entities.Keys())
	})

	t.Run("No keys is trivially satisfied", func(t *testing.T) {
		assert.True(t, chunk.MentionsAllEntities())
	})
}
