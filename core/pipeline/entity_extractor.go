package pipeline

import (
	"fmt"
	"strings"

	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// DefaultEntityExtractor creates an entity extractor using a NER model
// Uses distilbert-NER for named entity recognition
// Detects: PERSON, ORGANIZATION, LOCATION, MISC entities
func DefaultEntityExtractor() (EntityExtractFunc, error) {
	// Prepare model (download if needed)
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]model.EntityInChunk, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var mentions []model.EntityInChunk
		for _, entity := range result.Entities[0] {
			kind := normalizeEntityKind(entity.Entity)
			canonicalForm := strings.TrimSpace(entity.Word)
			if canonicalForm == "" {
				continue
			}

			mentions = append(mentions, model.EntityInChunk{
				Key:           EntityKey(canonicalForm, kind),
				CanonicalForm: canonicalForm,
				Kind:          kind,
				Offset:        int(entity.Start),
			})
		}

		return mentions, nil
	}, nil
}

// EntityKey derives the stable identity of an entity from its canonical form
// and kind. Two mentions with the same key refer to the same entity.
func EntityKey(canonicalForm string, kind string) string {
	form := strings.Join(strings.Fields(strings.ToLower(canonicalForm)), "_")
	return strings.ToLower(kind) + ":" + form
}

// normalizeEntityKind removes B- and I- prefixes from NER labels
func normalizeEntityKind(label string) string {
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
