package prepper

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/annotatehq/prepper/core/pipeline"
	"github.com/annotatehq/prepper/database"
	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	loadSql "github.com/annotatehq/prepper/sql"
)

// Prepper provides a unified interface to all database handlers
type Prepper struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Chunks    *database.ChunksDBHandler
	Entities  *database.EntitiesDBHandler
	Pipeline  *pipeline.Pipeline // Optional preprocessing pipeline
	// Logging
	log *slog.Logger
}

// NewPrepper creates a new Prepper instance with all handlers initialized
func NewPrepper(config *helper.DatabaseConfiguration, embeddingDim int) (*Prepper, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("prepper", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	return &Prepper{
		DB:        db,
		Documents: documents,
		Chunks:    chunks,
		Entities:  entities,
		log:       logger,
	}, nil
}

// Close closes the database connection
func (p *Prepper) Close() error {
	if p.DB != nil && p.DB.Instance != nil {
		return p.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the preprocessing pipeline for document processing
func (p *Prepper) SetPipeline(pipeline *pipeline.Pipeline) {
	p.Pipeline = pipeline
}

// UseDefaultPipeline sets up the default rule-based preprocessing pipeline
// with tokenization, sentence segmentation, part-of-speech tagging and
// per-token entity labeling. Chunk-level entity extraction and embeddings
// stay unset; wire them separately when model downloads are acceptable.
func (p *Prepper) UseDefaultPipeline() {
	pl := pipeline.NewPipeline(pipeline.DefaultTokenizer(), pipeline.DefaultSegmenter())
	pl.SetTagger(pipeline.DefaultTagger())
	pl.SetLabeler(pipeline.DefaultLabeler())
	p.Pipeline = pl
}

// PreprocessDocument runs the configured pipeline on the document and saves
// the resulting preprocess metadata. Steps that are already done are left
// untouched.
func (p *Prepper) PreprocessDocument(doc *model.Document) error {
	if p.Pipeline == nil {
		return helper.NewError("preprocess document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	err := p.Pipeline.Run(doc)
	if err != nil {
		return helper.NewError("run pipeline", err)
	}

	err = p.Documents.UpdateDocument(doc)
	if err != nil {
		return helper.NewError("save document", err)
	}

	p.log.Info("Preprocessed document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title))

	return nil
}

// PreprocessPending sweeps the pipeline steps in order and, for each step,
// runs it on every document still lacking it. Returns the number of
// step results produced across all documents.
func (p *Prepper) PreprocessPending() (int, error) {
	if p.Pipeline == nil {
		return 0, helper.NewError("preprocess pending", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	processed := 0
	for _, step := range model.PreprocessSteps() {
		documents, err := p.Documents.SelectDocumentsLackingPreprocess(step)
		if err != nil {
			return processed, helper.NewError("select pending documents", err)
		}

		for _, doc := range documents {
			ran, err := p.Pipeline.RunStep(doc, step)
			if err != nil {
				return processed, helper.NewError(fmt.Sprintf("run %s", step), err)
			}
			if !ran {
				continue
			}

			err = p.Documents.UpdateDocument(doc)
			if err != nil {
				return processed, helper.NewError("save document", err)
			}
			processed++
		}
	}

	p.log.Info("Preprocessed pending documents", slog.Int("step_results", processed))

	return processed, nil
}

// BuildChunks splits a preprocessed document into chunks of sentencesPerChunk
// sentences each and inserts them. When the pipeline has an entity extractor,
// each chunk is annotated with its entity mentions and every mentioned entity
// is upserted into the catalog. When it has an embedder, each chunk gets an
// embedding. Returns the number of chunks inserted.
func (p *Prepper) BuildChunks(doc *model.Document, sentencesPerChunk int) (int, error) {
	if sentencesPerChunk <= 0 {
		return 0, helper.NewError("build chunks", fmt.Errorf("sentences per chunk must be positive, got %d", sentencesPerChunk))
	}

	sentences, err := doc.GetSentences()
	if err != nil {
		return 0, helper.NewError("get sentences", err)
	}

	var group []string
	var texts []string
	var starts, ends []int
	tokenPos := 0
	groupStart := 0
	groupSentences := 0

	flush := func(end int) {
		if len(group) == 0 {
			return
		}
		texts = append(texts, strings.Join(group, " "))
		starts = append(starts, groupStart)
		ends = append(ends, end)
		group = nil
		groupSentences = 0
	}

	for sentence := range sentences {
		if groupSentences == 0 {
			groupStart = tokenPos
		}
		group = append(group, strings.Join(sentence, " "))
		groupSentences++
		tokenPos += len(sentence)
		if groupSentences == sentencesPerChunk {
			flush(tokenPos)
		}
	}
	flush(tokenPos)

	inserted := 0
	for i, text := range texts {
		chunkIndex := i
		startPos := starts[i]
		endPos := ends[i]
		chunk := &model.TextChunk{
			DocumentID: doc.ID,
			Text:       text,
			ChunkIndex: &chunkIndex,
			StartPos:   &startPos,
			EndPos:     &endPos,
		}

		if p.Pipeline != nil && p.Pipeline.EntityExtractor != nil {
			mentions, err := p.Pipeline.EntityExtractor(text)
			if err != nil {
				return inserted, helper.NewError("extract entities", err)
			}
			chunk.Entities = mentions

			for _, mention := range distinctMentions(mentions) {
				entity := &model.Entity{
					Key:           mention.Key,
					CanonicalForm: mention.CanonicalForm,
					Kind:          mention.Kind,
				}
				if err := p.Entities.UpsertEntity(entity); err != nil {
					return inserted, helper.NewError("upsert entity", err)
				}
			}
		}

		if p.Pipeline != nil && p.Pipeline.Embedder != nil {
			embedding, err := p.Pipeline.Embedder(text)
			if err != nil {
				return inserted, helper.NewError("generate embedding", err)
			}
			chunk.Embedding = embedding
		}

		if err := p.Chunks.InsertChunk(chunk); err != nil {
			return inserted, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
		inserted++
	}

	p.log.Info("Built chunks", slog.Int("num_chunks", inserted), slog.String("document_id", doc.RID.String()))

	return inserted, nil
}

// ChunksWithBothEntities retrieves the chunks that mention both entities at
// least once each.
func (p *Prepper) ChunksWithBothEntities(a *model.Entity, b *model.Entity) ([]*model.TextChunk, error) {
	return p.Chunks.SelectChunksByEntityKeys(a.Key, b.Key)
}

// ChunksWithAllEntities retrieves the chunks that mention every one of the
// given entities at least once.
func (p *Prepper) ChunksWithAllEntities(entities ...*model.Entity) ([]*model.TextChunk, error) {
	keys := make([]string, 0, len(entities))
	for _, entity := range entities {
		keys = append(keys, entity.Key)
	}
	return p.Chunks.SelectChunksByEntityKeys(keys...)
}

// Search performs vector similarity search over chunks using the pipeline's
// embedder for the query.
func (p *Prepper) Search(query string, limit int, threshold float64) ([]*model.TextChunk, error) {
	if p.Pipeline == nil || p.Pipeline.Embedder == nil {
		return nil, helper.NewError("vector search", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	embedding, err := p.Pipeline.Embedder(query)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	return p.Chunks.SelectChunksBySimilarity(embedding, limit, threshold)
}

// distinctMentions keeps the first mention of each entity key.
func distinctMentions(mentions []model.EntityInChunk) []model.EntityInChunk {
	seen := make(map[string]struct{}, len(mentions))
	var distinct []model.EntityInChunk
	for _, mention := range mentions {
		if _, ok := seen[mention.Key]; ok {
			continue
		}
		seen[mention.Key] = struct{}{}
		distinct = append(distinct, mention)
	}
	return distinct
}
