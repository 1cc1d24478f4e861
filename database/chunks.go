package database

import (
	"context"
	dbsql "database/sql"
	"fmt"
	"log"
	"time"

	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	"github.com/annotatehq/prepper/sql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.TextChunk) error
	SelectChunk(id int64) (*model.TextChunk, error)
	SelectChunksByDocument(documentRID uuid.UUID) ([]*model.TextChunk, error)
	SelectChunksByEntityKeys(keys ...string) ([]*model.TextChunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.TextChunk, error)
	UpdateChunkEntities(chunk *model.TextChunk) error
	UpdateChunkEmbedding(chunk *model.TextChunk) error
	DeleteChunk(id int64) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
// embeddingDim fixes the dimension of the chunk embedding column.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := sql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
func (h *ChunksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, h.embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk. The embedding is optional; a chunk
// without one is stored with a NULL embedding and skipped by similarity
// search.
func (h *ChunksDBHandler) InsertChunk(chunk *model.TextChunk) error {
	var embedding any
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8)`,
		chunk.DocumentID,
		chunk.Text,
		chunk.ChunkIndex,
		chunk.StartPos,
		chunk.EndPos,
		embedding,
		chunk.Entities,
		chunk.Metadata,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id int64) (*model.TextChunk, error) {
	chunk := &model.TextChunk{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByDocument retrieves all chunks of a document ordered by
// chunk index.
func (h *ChunksDBHandler) SelectChunksByDocument(documentRID uuid.UUID) ([]*model.TextChunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectChunksByEntityKeys retrieves the chunks that mention every one of
// the given entity keys at least once. With a single key this is a plain
// membership query; with more keys it is the intersection.
func (h *ChunksDBHandler) SelectChunksByEntityKeys(keys ...string) ([]*model.TextChunk, error) {
	if len(keys) == 0 {
		return nil, helper.NewError("keys validation", fmt.Errorf("at least one entity key is required"))
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_entity_keys($1)`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectChunksBySimilarity retrieves chunks by cosine similarity to the
// given embedding, most similar first. Chunks without an embedding are
// not considered.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.TextChunk, error) {
	if len(embedding) != h.embeddingDim {
		return nil, helper.NewError("embedding validation", fmt.Errorf("expected embedding dimension %d, got %d", h.embeddingDim, len(embedding)))
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.TextChunk
	for rows.Next() {
		chunk := &model.TextChunk{}
		var chunkEmbedding dbsql.Null[pgvector.Vector]
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentRID,
			&chunk.Text,
			&chunk.ChunkIndex,
			&chunk.StartPos,
			&chunk.EndPos,
			&chunkEmbedding,
			&chunk.Entities,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if chunkEmbedding.Valid {
			chunk.Embedding = chunkEmbedding.V.Slice()
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// UpdateChunkEntities replaces the entity mentions of a chunk.
func (h *ChunksDBHandler) UpdateChunkEntities(chunk *model.TextChunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_chunk_entities($1, $2)`,
		chunk.ID,
		chunk.Entities,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpdateChunkEmbedding replaces the embedding of a chunk.
func (h *ChunksDBHandler) UpdateChunkEmbedding(chunk *model.TextChunk) error {
	if len(chunk.Embedding) != h.embeddingDim {
		return helper.NewError("embedding validation", fmt.Errorf("expected embedding dimension %d, got %d", h.embeddingDim, len(chunk.Embedding)))
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_chunk_embedding($1, $2)`,
		chunk.ID,
		pgvector.NewVector(chunk.Embedding),
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteChunk deletes a chunk by ID
func (h *ChunksDBHandler) DeleteChunk(id int64) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunk($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanChunk scans a single chunk row without the similarity column.
func scanChunk(row interface{ Scan(dest ...any) error }, chunk *model.TextChunk) error {
	var embedding dbsql.Null[pgvector.Vector]
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.DocumentRID,
		&chunk.Text,
		&chunk.ChunkIndex,
		&chunk.StartPos,
		&chunk.EndPos,
		&embedding,
		&chunk.Entities,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return err
	}
	if embedding.Valid {
		chunk.Embedding = embedding.V.Slice()
	} else {
		chunk.Embedding = nil
	}
	return nil
}

// scanChunks drains rows into chunks.
func scanChunks(rows *dbsql.Rows) ([]*model.TextChunk, error) {
	var chunks []*model.TextChunk
	for rows.Next() {
		chunk := &model.TextChunk{}
		err := scanChunk(rows, chunk)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}
