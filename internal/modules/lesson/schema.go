package lesson

// LessonSchemaName labels the schema in provider requests and telemetry.
const LessonSchemaName = "esl_lesson_v1"

// LessonJSONSchema describes the requested response shape. It is handed to
// providers as guidance, not enforced strictly: real model output drifts from
// it constantly, which is exactly what NormalizeLesson exists to absorb. The
// section object deliberately unions all per-type fields and requires only
// "type".
func LessonJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         map[string]any{"type": "string"},
			"level":         enumSchema("A1", "A2", "B1", "B2", "C1", "C2"),
			"focus":         map[string]any{"type": "string"},
			"estimatedTime": map[string]any{"type": "integer"},
			"sections": map[string]any{
				"type":  "array",
				"items": sectionSchema(),
			},
		},
		"required":             []string{"title", "level", "sections"},
		"additionalProperties": false,
	}
}

func sectionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": enumSchema(
				"warmup",
				"reading",
				"vocabulary",
				"comprehension",
				"sentenceFrames",
				"discussion",
				"quiz",
			),
			"text":       map[string]any{"type": "string"},
			"paragraphs": stringArraySchema(),
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": []any{"object", "string"},
				},
			},
			"vocabulary": stringArraySchema(),
			"words": map[string]any{
				"type":  "array",
				"items": vocabularyWordSchema(),
			},
			"frames": map[string]any{
				"type":  "array",
				"items": sentenceFrameSchema(),
			},
		},
		"required":             []string{"type"},
		"additionalProperties": true,
	}
}

func vocabularyWordSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"term":          map[string]any{"type": "string"},
			"partOfSpeech":  map[string]any{"type": "string"},
			"definition":    map[string]any{"type": "string"},
			"example":       map[string]any{"type": "string"},
			"pronunciation": map[string]any{"type": "string"},
			"collocation":   map[string]any{"type": "string"},
		},
		"required":             []string{"term", "definition"},
		"additionalProperties": true,
	}
}

func sentenceFrameSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"frame":   map[string]any{"type": "string"},
			"example": map[string]any{"type": "string"},
		},
		"required":             []string{"frame"},
		"additionalProperties": true,
	}
}

func stringArraySchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func enumSchema(values ...string) map[string]any {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return map[string]any{"type": "string", "enum": arr}
}
