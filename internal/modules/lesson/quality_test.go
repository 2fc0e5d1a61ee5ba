package lesson

import (
	"strings"
	"testing"
)

func TestEvaluateLessonQuality_PassesFullReading(t *testing.T) {
	l, _ := NormalizeLesson(wellFormedLessonObject())
	errs, metrics := EvaluateLessonQuality(l, DefaultLessonRequirements())
	if len(errs) != 0 {
		t.Fatalf("expected pass, got %v", errs)
	}
	if pc, _ := metrics["paragraph_count"].(int); pc != 5 {
		t.Fatalf("expected paragraph_count=5, got %v", metrics["paragraph_count"])
	}
	if total, _ := metrics["sentence_total"].(int); total != 15 {
		t.Fatalf("expected sentence_total=15, got %v", metrics["sentence_total"])
	}
}

func TestEvaluateLessonQuality_FailsShortReading(t *testing.T) {
	obj := wellFormedLessonObject()
	for _, el := range obj["sections"].([]any) {
		m := el.(map[string]any)
		if m["type"] == "reading" {
			m["text"] = sentenceRun(6)
		}
	}
	l, _ := NormalizeLesson(obj)
	errs, metrics := EvaluateLessonQuality(l, DefaultLessonRequirements())
	if len(errs) == 0 {
		t.Fatalf("expected failure for a 6-sentence passage")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e, "need >=5 paragraphs (got 2)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the paragraph shortfall named, got %v", errs)
	}
	if total, _ := metrics["sentence_total"].(int); total != 6 {
		t.Fatalf("expected sentence_total=6, got %v", metrics["sentence_total"])
	}
}

func TestEvaluateLessonQuality_MissingReading(t *testing.T) {
	l := &Lesson{Title: "t", Level: LevelB1, Sections: []Section{
		WarmupSection{Questions: []string{"q"}},
	}}
	errs, _ := EvaluateLessonQuality(l, DefaultLessonRequirements())
	if len(errs) != 1 || errs[0] != "reading section missing" {
		t.Fatalf("expected the single missing-reading error, got %v", errs)
	}
}

func TestEvaluateLessonQuality_ThinParagraphNamed(t *testing.T) {
	l := &Lesson{Title: "t", Level: LevelB1, Sections: []Section{
		ReadingSection{Paragraphs: []string{
			sentenceRun(3), sentenceRun(3), sentenceRun(3), sentenceRun(3), "Just one.",
		}},
	}}
	errs, _ := EvaluateLessonQuality(l, DefaultLessonRequirements())
	found := false
	for _, e := range errs {
		if strings.Contains(e, "paragraph 5 needs >=3 sentences (got 1)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the thin paragraph named, got %v", errs)
	}
}
