package store

// Field names in the FAQ index.
const (
	fieldOwner     = "owner"
	fieldQuestion  = "question"
	fieldEmbedding = "question_embedding"
	fieldAnswer    = "answer"
)

// inferenceOutputField is where the inference processor leaves its result
// before the rename processor moves it to the embedding field.
const inferenceOutputField = "ml.inference.predicted_value"

// indexMapping returns the index creation body: keyword owner for exact
// tenant filtering, text question/answer, and an indexed dense vector with
// cosine similarity for KNN.
func indexMapping(dims int) map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				fieldOwner:    map[string]any{"type": "keyword"},
				fieldQuestion: map[string]any{"type": "text"},
				fieldEmbedding: map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				fieldAnswer: map[string]any{"type": "text"},
			},
		},
	}
}

// pipelineDefinition returns the ingest pipeline body: run the embedding
// model over the question text, then rename the inference output into the
// embedding field (rename is cheaper than set).
func pipelineDefinition(modelID string) map[string]any {
	return map[string]any{
		"description": "Computes question embeddings at ingest time",
		"processors": []any{
			map[string]any{
				"inference": map[string]any{
					"model_id": modelID,
					"field_map": map[string]any{
						fieldQuestion: "text_field",
					},
				},
			},
			map[string]any{
				"rename": map[string]any{
					"field":        inferenceOutputField,
					"target_field": fieldEmbedding,
				},
			},
		},
	}
}
