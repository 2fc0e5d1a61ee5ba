package lesson

import (
	"strings"
	"testing"
)

func TestPreprocess_DefaultsMissingScalars(t *testing.T) {
	obj, notes := PreprocessLessonObject(map[string]any{})
	if obj["title"] != DefaultTitle {
		t.Fatalf("expected default title, got %v", obj["title"])
	}
	if obj["level"] != string(DefaultLevel) {
		t.Fatalf("expected default level, got %v", obj["level"])
	}
	if obj["focus"] != DefaultFocus {
		t.Fatalf("expected default focus, got %v", obj["focus"])
	}
	if obj["estimatedTime"] != DefaultEstimatedTime {
		t.Fatalf("expected default estimatedTime, got %v", obj["estimatedTime"])
	}
	if len(notes) == 0 {
		t.Fatalf("expected repair notes for defaulted fields")
	}
}

func TestPreprocess_KeepsValidScalars(t *testing.T) {
	obj, _ := PreprocessLessonObject(map[string]any{
		"title":         "Ordering Coffee",
		"level":         "b2",
		"focus":         "speaking",
		"estimatedTime": "45",
	})
	if obj["title"] != "Ordering Coffee" {
		t.Fatalf("title mutated: %v", obj["title"])
	}
	if obj["level"] != "B2" {
		t.Fatalf("expected level folded to B2, got %v", obj["level"])
	}
	if obj["estimatedTime"] != 45 {
		t.Fatalf("expected numeric string parsed, got %v", obj["estimatedTime"])
	}
}

func TestPreprocess_UnknownLevelFallsBackToB1(t *testing.T) {
	obj, notes := PreprocessLessonObject(map[string]any{"level": "expert"})
	if obj["level"] != string(LevelB1) {
		t.Fatalf("expected B1 fallback, got %v", obj["level"])
	}
	found := false
	for _, n := range notes {
		if strings.Contains(n, "expert") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a note naming the bad level, got %v", notes)
	}
}

func TestPreprocess_NormalizesSectionTypeSpelling(t *testing.T) {
	obj, _ := PreprocessLessonObject(map[string]any{
		"sections": []any{
			map[string]any{"type": "Warm-Up", "questions": []any{"Q1"}},
		},
	})
	sections := obj["sections"].([]any)
	first := sections[0].(map[string]any)
	if first["type"] != "warmup" {
		t.Fatalf("expected canonical warmup tag, got %v", first["type"])
	}
}

func TestPreprocess_DropsTypelessAndUnknownSections(t *testing.T) {
	obj, notes := PreprocessLessonObject(map[string]any{
		"sections": []any{
			map[string]any{"questions": []any{"no type here"}},
			map[string]any{"type": "homework"},
			"not even an object",
		},
	})
	sections := obj["sections"].([]any)
	// all three dropped, then the four required placeholders appended
	if len(sections) != len(requiredSectionTypes) {
		t.Fatalf("expected %d surviving sections, got %d", len(requiredSectionTypes), len(sections))
	}
	if len(notes) < 3 {
		t.Fatalf("expected notes for each dropped section, got %v", notes)
	}
}

func TestPreprocess_SynthesizesMissingRequiredSections(t *testing.T) {
	obj, _ := PreprocessLessonObject(map[string]any{
		"sections": []any{
			map[string]any{"type": "reading", "text": sentenceRun(15)},
		},
	})
	sections := obj["sections"].([]any)
	byType := map[string]map[string]any{}
	for _, el := range sections {
		m := el.(map[string]any)
		byType[stringFromAny(m["type"])] = m
	}
	for _, required := range requiredSectionTypes {
		if _, ok := byType[string(required)]; !ok {
			t.Fatalf("required section %q not synthesized", required)
		}
	}
	// the original reading survives untouched, no placeholder replaces it
	if _, ok := byType["reading"]["text"]; !ok {
		t.Fatalf("existing reading section was replaced")
	}
}

func TestPreprocess_SectionsNotAnArray(t *testing.T) {
	obj, notes := PreprocessLessonObject(map[string]any{"sections": "oops"})
	sections, ok := obj["sections"].([]any)
	if !ok {
		t.Fatalf("sections not coerced to array: %T", obj["sections"])
	}
	if len(sections) != len(requiredSectionTypes) {
		t.Fatalf("expected the required placeholders only, got %d sections", len(sections))
	}
	found := false
	for _, n := range notes {
		if strings.Contains(n, "not an array") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a discard note, got %v", notes)
	}
}
