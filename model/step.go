package model

import (
	"errors"
	"fmt"
)

// PreprocessStep identifies one step of the document preprocessing pipeline.
// The steps form a fixed, ordered set; each step's result is validated
// against the stored results of earlier steps before it is written.
type PreprocessStep int

const (
	StepTokenization PreprocessStep = iota
	StepSegmentation
	StepTagging
	StepNERC
)

// stepNames maps steps to their wire names, in pipeline order. The names are
// also the JSONB keys of the per-document preprocess metadata.
var stepNames = [...]string{
	StepTokenization: "tokenization",
	StepSegmentation: "segmentation",
	StepTagging:      "tagging",
	StepNERC:         "nerc",
}

var (
	// ErrInvalidPreprocessStep marks a step that is not part of the pipeline.
	ErrInvalidPreprocessStep = errors.New("unknown preprocess step")
	// ErrMissingPrerequisite marks a result set before an earlier step it
	// structurally depends on.
	ErrMissingPrerequisite = errors.New("prerequisite step not done")
	// ErrInvalidStepResult marks a result whose shape is wrong for the step.
	ErrInvalidStepResult = errors.New("invalid step result")
)

// PreprocessSteps returns all pipeline steps in execution order.
func PreprocessSteps() []PreprocessStep {
	return []PreprocessStep{StepTokenization, StepSegmentation, StepTagging, StepNERC}
}

// Valid reports whether s is a member of the pipeline step set.
func (s PreprocessStep) Valid() bool {
	return s >= StepTokenization && s <= StepNERC
}

// String returns the wire name of the step.
func (s PreprocessStep) String() string {
	if !s.Valid() {
		return fmt.Sprintf("preprocess_step(%d)", int(s))
	}
	return stepNames[s]
}

// ParsePreprocessStep maps a wire name back to its step.
func ParsePreprocessStep(name string) (PreprocessStep, error) {
	for step, n := range stepNames {
		if n == name {
			return PreprocessStep(step), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPreprocessStep, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s PreprocessStep) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPreprocessStep, int(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PreprocessStep) UnmarshalText(text []byte) error {
	step, err := ParsePreprocessStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// ValidateStepResult checks result against the structural rules of step,
// consulting only earlier steps' entries in meta. It never mutates meta.
func ValidateStepResult(step PreprocessStep, result any, meta *PreprocessMetadata) error {
	switch step {
	case StepTokenization:
		// Any token sequence is accepted, including an empty one.
		if _, ok := result.([]string); !ok {
			return fmt.Errorf("%w: tokenization expects []string, got %T", ErrInvalidStepResult, result)
		}
		return nil
	case StepSegmentation:
		boundaries, ok := result.([]int)
		if !ok {
			return fmt.Errorf("%w: segmentation expects []int, got %T", ErrInvalidStepResult, result)
		}
		if meta.Tokenization == nil {
			return fmt.Errorf("%w: segmentation requires tokenization", ErrMissingPrerequisite)
		}
		return validateBoundaries(boundaries, len(meta.Tokenization.Tokens))
	case StepTagging:
		tags, ok := result.([]string)
		if !ok {
			return fmt.Errorf("%w: tagging expects []string, got %T", ErrInvalidStepResult, result)
		}
		if meta.Tokenization == nil {
			return fmt.Errorf("%w: tagging requires tokenization", ErrMissingPrerequisite)
		}
		if len(tags) != len(meta.Tokenization.Tokens) {
			return fmt.Errorf("%w: got %d tags for %d tokens", ErrInvalidStepResult, len(tags), len(meta.Tokenization.Tokens))
		}
		return nil
	case StepNERC:
		labels, ok := result.([]string)
		if !ok {
			return fmt.Errorf("%w: nerc expects []string, got %T", ErrInvalidStepResult, result)
		}
		if meta.Tokenization == nil {
			return fmt.Errorf("%w: nerc requires tokenization", ErrMissingPrerequisite)
		}
		if len(labels) != len(meta.Tokenization.Tokens) {
			return fmt.Errorf("%w: got %d entity labels for %d tokens", ErrInvalidStepResult, len(labels), len(meta.Tokenization.Tokens))
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidPreprocessStep, int(step))
	}
}

// validateBoundaries checks that sentence boundaries are strictly ascending
// and that each one is a valid index into the token sequence, the token count
// itself included.
func validateBoundaries(boundaries []int, tokenCount int) error {
	for i, b := range boundaries {
		if b < 0 || b > tokenCount {
			return fmt.Errorf("%w: boundary %d out of range [0, %d]", ErrInvalidStepResult, b, tokenCount)
		}
		if i > 0 && b <= boundaries[i-1] {
			return fmt.Errorf("%w: boundaries must be strictly ascending, got %d after %d", ErrInvalidStepResult, b, boundaries[i-1])
		}
	}
	return nil
}
