package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/annotatehq/prepper/helper"
)

// TokenizationEntry holds a stored tokenization result.
type TokenizationEntry struct {
	Tokens []string  `json:"tokens"`
	DoneAt time.Time `json:"done_at"`
}

// SegmentationEntry holds a stored segmentation result. Boundaries are
// strictly ascending indexes into the token sequence.
type SegmentationEntry struct {
	Boundaries []int     `json:"boundaries"`
	DoneAt     time.Time `json:"done_at"`
}

// TaggingEntry holds a stored tagging result, one tag per token.
type TaggingEntry struct {
	Tags   []string  `json:"tags"`
	DoneAt time.Time `json:"done_at"`
}

// NERCEntry holds a stored named entity recognition result, one label per
// token.
type NERCEntry struct {
	Labels []string  `json:"labels"`
	DoneAt time.Time `json:"done_at"`
}

// PreprocessMetadata tracks, per pipeline step, whether the step was run on a
// document and what it produced. A nil entry means the step is not done.
// Stored in PostgreSQL as JSONB keyed by the step wire names; an absent key
// round-trips as a nil entry.
type PreprocessMetadata struct {
	Tokenization *TokenizationEntry `json:"tokenization,omitempty"`
	Segmentation *SegmentationEntry `json:"segmentation,omitempty"`
	Tagging      *TaggingEntry      `json:"tagging,omitempty"`
	NERC         *NERCEntry         `json:"nerc,omitempty"`
}

// Done reports whether step has a stored result.
func (m *PreprocessMetadata) Done(step PreprocessStep) bool {
	_, ok := m.Result(step)
	return ok
}

// Result returns the stored result of step, or false when the step is not
// done. Absence is not an error.
func (m *PreprocessMetadata) Result(step PreprocessStep) (any, bool) {
	switch step {
	case StepTokenization:
		if m.Tokenization != nil {
			return m.Tokenization.Tokens, true
		}
	case StepSegmentation:
		if m.Segmentation != nil {
			return m.Segmentation.Boundaries, true
		}
	case StepTagging:
		if m.Tagging != nil {
			return m.Tagging.Tags, true
		}
	case StepNERC:
		if m.NERC != nil {
			return m.NERC.Labels, true
		}
	}
	return nil, false
}

// DoneAt returns the completion time of step, or false when not done.
func (m *PreprocessMetadata) DoneAt(step PreprocessStep) (time.Time, bool) {
	switch step {
	case StepTokenization:
		if m.Tokenization != nil {
			return m.Tokenization.DoneAt, true
		}
	case StepSegmentation:
		if m.Segmentation != nil {
			return m.Segmentation.DoneAt, true
		}
	case StepTagging:
		if m.Tagging != nil {
			return m.Tagging.DoneAt, true
		}
	case StepNERC:
		if m.NERC != nil {
			return m.NERC.DoneAt, true
		}
	}
	return time.Time{}, false
}

// Tokens returns the stored token sequence, or false when tokenization is not
// done.
func (m *PreprocessMetadata) Tokens() ([]string, bool) {
	if m.Tokenization == nil {
		return nil, false
	}
	return m.Tokenization.Tokens, true
}

// SentenceBoundaries returns the stored sentence boundaries, or false when
// segmentation is not done.
func (m *PreprocessMetadata) SentenceBoundaries() ([]int, bool) {
	if m.Segmentation == nil {
		return nil, false
	}
	return m.Segmentation.Boundaries, true
}

// Tags returns the stored per-token tags, or false when tagging is not done.
func (m *PreprocessMetadata) Tags() ([]string, bool) {
	if m.Tagging == nil {
		return nil, false
	}
	return m.Tagging.Tags, true
}

// EntityLabels returns the stored per-token entity labels, or false when nerc
// is not done.
func (m *PreprocessMetadata) EntityLabels() ([]string, bool) {
	if m.NERC == nil {
		return nil, false
	}
	return m.NERC.Labels, true
}

// set stores an already validated result for step. The type assertions are
// safe because ValidateStepResult ran first.
func (m *PreprocessMetadata) set(step PreprocessStep, result any, doneAt time.Time) {
	switch step {
	case StepTokenization:
		m.Tokenization = &TokenizationEntry{Tokens: result.([]string), DoneAt: doneAt}
	case StepSegmentation:
		m.Segmentation = &SegmentationEntry{Boundaries: result.([]int), DoneAt: doneAt}
	case StepTagging:
		m.Tagging = &TaggingEntry{Tags: result.([]string), DoneAt: doneAt}
	case StepNERC:
		m.NERC = &NERCEntry{Labels: result.([]string), DoneAt: doneAt}
	}
}

// Value implements the driver.Valuer interface for database storage
func (m PreprocessMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *PreprocessMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = PreprocessMetadata{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
