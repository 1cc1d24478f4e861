package model

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a stored source document together with its per-step
// preprocessing administration.
type Document struct {
	ID         int64              `json:"id"`
	RID        uuid.UUID          `json:"rid"`
	Title      string             `json:"title"`
	Source     string             `json:"source,omitempty"`
	Text       string             `json:"text"`
	Preprocess PreprocessMetadata `json:"preprocess,omitempty"`
	Metadata   Metadata           `json:"metadata,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewDocumentFromFile reads a file and creates a Document with the file content
// The title defaults to the filename, and source to the file path
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	// Get filename without extension for default title
	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:    title,
		Source:   filePath,
		Text:     string(content),
		Metadata: metadata,
	}, nil
}

// SetPreprocessResult validates result against the structural rules of step
// and, on success, records it together with the completion time. The document
// is mutated in place and never persisted here; saving it is the caller's
// explicit call. The same document is returned to allow chaining into a save.
//
// Validation consults only earlier steps: segmentation, tagging and nerc all
// require tokenization to be done first. On any validation error the stored
// metadata is left untouched.
func (d *Document) SetPreprocessResult(step PreprocessStep, result any) (*Document, error) {
	if err := ValidateStepResult(step, result, &d.Preprocess); err != nil {
		return d, err
	}
	d.Preprocess.set(step, result, time.Now().UTC())
	return d, nil
}

// WasPreprocessDone reports whether step has been run on this document.
func (d *Document) WasPreprocessDone(step PreprocessStep) bool {
	return d.Preprocess.Done(step)
}

// GetPreprocessResult returns the stored result for step. A step that was
// never set is reported via the bool, not an error.
func (d *Document) GetPreprocessResult(step PreprocessStep) (any, bool) {
	return d.Preprocess.Result(step)
}

// GetSentences returns the document's sentences as groups of tokens, derived
// from the stored tokenization and segmentation results. The sequence is
// recomputed from stored state on every range, so it can be iterated any
// number of times. Sentence i covers tokens[boundaries[i]:boundaries[i+1]];
// ranging over all sentences yields every token exactly once, in order.
func (d *Document) GetSentences() (iter.Seq[[]string], error) {
	tokens, ok := d.Preprocess.Tokens()
	if !ok {
		return nil, fmt.Errorf("%w: sentences require tokenization", ErrMissingPrerequisite)
	}
	boundaries, ok := d.Preprocess.SentenceBoundaries()
	if !ok {
		return nil, fmt.Errorf("%w: sentences require segmentation", ErrMissingPrerequisite)
	}

	return func(yield func([]string) bool) {
		for i := 0; i+1 < len(boundaries); i++ {
			if !yield(tokens[boundaries[i]:boundaries[i+1]]) {
				return
			}
		}
	}, nil
}
