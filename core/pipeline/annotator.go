package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
)

// DefaultEntityAnnotator creates an entity extractor using a NER model
// Uses distilbert-NER for named entity recognition
func DefaultEntityAnnotator() (EntityExtractFunc, error) {
	// Prepare model (download if needed)
	// Using KnightsAnalytics optimized distilbert-NER model
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
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]model.EntitySpan, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var spans []model.EntitySpan
		for _, entity := range result.Entities[0] {
			spans = append(spans, model.EntitySpan{
				Text:  strings.TrimSpace(entity.Word),
				Label: normalizeEntityLabel(entity.Entity),
				Start: int(entity.Start),
				End:   int(entity.End),
			})
		}

		return spans, nil
	}, nil
}

// normalizeEntityLabel strips BIO tagging prefixes (B- for beginning, I- for
// inside) and maps NER tag names to the labels used in entity spans.
func normalizeEntityLabel(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		label = label[2:]
	}
	if label == "PER" {
		return "PERSON"
	}
	return label
}
