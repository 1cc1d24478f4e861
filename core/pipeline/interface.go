package pipeline

import (
	"fmt"

	"github.com/annotatehq/prepper/model"
)

// TokenizeFunc splits raw text into tokens
type TokenizeFunc func(text string) ([]string, error)

// SegmentFunc derives sentence boundaries from a token sequence.
// Boundaries are token indexes; sentence i covers tokens[b[i]:b[i+1]].
type SegmentFunc func(tokens []string) ([]int, error)

// TagFunc assigns one part-of-speech tag per token
type TagFunc func(tokens []string) ([]string, error)

// LabelFunc assigns one entity label per token. The tags argument carries the
// part-of-speech tags when tagging already ran, nil otherwise.
type LabelFunc func(tokens []string, tags []string) ([]string, error)

// EntityExtractFunc extracts entity mentions from chunk text
type EntityExtractFunc func(text string) ([]model.EntityInChunk, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// Pipeline bundles the per-step preprocessing functions. Tokenizer and
// Segmenter are required for a useful pipeline; the rest are optional and
// their steps are skipped when unset.
type Pipeline struct {
	Tokenizer       TokenizeFunc
	Segmenter       SegmentFunc
	Tagger          TagFunc           // Optional
	Labeler         LabelFunc         // Optional
	EntityExtractor EntityExtractFunc // Optional, used during chunk building
	Embedder        EmbedFunc         // Optional, used during chunk building
}

// NewPipeline creates a new preprocessing pipeline
func NewPipeline(tokenizer TokenizeFunc, segmenter SegmentFunc) *Pipeline {
	return &Pipeline{
		Tokenizer: tokenizer,
		Segmenter: segmenter,
	}
}

// SetTagger sets the part-of-speech tagging function
func (p *Pipeline) SetTagger(tagger TagFunc) {
	p.Tagger = tagger
}

// SetLabeler sets the per-token entity labeling function
func (p *Pipeline) SetLabeler(labeler LabelFunc) {
	p.Labeler = labeler
}

// SetEntityExtractor sets the entity extraction function
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// SetEmbedder sets the embedding function
func (p *Pipeline) SetEmbedder(embedder EmbedFunc) {
	p.Embedder = embedder
}

// Run executes all pipeline steps on the document in order, skipping steps
// that are already done and steps without a configured function. The document
// is mutated in place and not persisted.
func (p *Pipeline) Run(doc *model.Document) error {
	for _, step := range model.PreprocessSteps() {
		_, err := p.RunStep(doc, step)
		if err != nil {
			return err
		}
	}
	return nil
}

// RunStep executes a single step on the document. It reports whether the step
// produced a new result; an already-done step and a step without a configured
// function both return false without error.
func (p *Pipeline) RunStep(doc *model.Document, step model.PreprocessStep) (bool, error) {
	if doc.WasPreprocessDone(step) {
		return false, nil
	}

	switch step {
	case model.StepTokenization:
		if p.Tokenizer == nil {
			return false, nil
		}
		tokens, err := p.Tokenizer(doc.Text)
		if err != nil {
			return false, fmt.Errorf("tokenization failed: %w", err)
		}
		if _, err := doc.SetPreprocessResult(step, tokens); err != nil {
			return false, err
		}
		return true, nil
	case model.StepSegmentation:
		if p.Segmenter == nil {
			return false, nil
		}
		tokens, ok := doc.Preprocess.Tokens()
		if !ok {
			return false, fmt.Errorf("%w: segmentation requires tokenization", model.ErrMissingPrerequisite)
		}
		boundaries, err := p.Segmenter(tokens)
		if err != nil {
			return false, fmt.Errorf("segmentation failed: %w", err)
		}
		if _, err := doc.SetPreprocessResult(step, boundaries); err != nil {
			return false, err
		}
		return true, nil
	case model.StepTagging:
		if p.Tagger == nil {
			return false, nil
		}
		tokens, ok := doc.Preprocess.Tokens()
		if !ok {
			return false, fmt.Errorf("%w: tagging requires tokenization", model.ErrMissingPrerequisite)
		}
		tags, err := p.Tagger(tokens)
		if err != nil {
			return false, fmt.Errorf("tagging failed: %w", err)
		}
		if _, err := doc.SetPreprocessResult(step, tags); err != nil {
			return false, err
		}
		return true, nil
	case model.StepNERC:
		if p.Labeler == nil {
			return false, nil
		}
		tokens, ok := doc.Preprocess.Tokens()
		if !ok {
			return false, fmt.Errorf("%w: nerc requires tokenization", model.ErrMissingPrerequisite)
		}
		tags, _ := doc.Preprocess.Tags()
		labels, err := p.Labeler(tokens, tags)
		if err != nil {
			return false, fmt.Errorf("entity labeling failed: %w", err)
		}
		if _, err := doc.SetPreprocessResult(step, labels); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: %d", model.ErrInvalidPreprocessStep, int(step))
	}
}
