package model

import (
	"time"

	"github.com/google/uuid"
)

// TextChunk represents a contiguous span of a document carrying the entity
// mentions found in it. Many chunks reference one document.
type TextChunk struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"document_id"`
	DocumentRID uuid.UUID  `json:"document_rid"`
	Text        string     `json:"text"`
	ChunkIndex  *int       `json:"chunk_index,omitempty"`
	StartPos    *int       `json:"start_pos,omitempty"`
	EndPos      *int       `json:"end_pos,omitempty"`
	Embedding   []float32  `json:"embedding,omitempty"`
	Entities    EntityList `json:"entities"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// MentionsEntity reports whether at least one mention carries key.
func (c *TextChunk) MentionsEntity(key string) bool {
	for _, mention := range c.Entities {
		if mention.Key == key {
			return true
		}
	}
	return false
}

// MentionsAllEntities reports whether every given key is mentioned at least
// once.
func (c *TextChunk) MentionsAllEntities(keys ...string) bool {
	for _, key := range keys {
		if !c.MentionsEntity(key) {
			return false
		}
	}
	return true
}
