package lesson

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLessonJSON_SectionEnvelopeRoundTrip(t *testing.T) {
	in := Lesson{
		Title:         "t",
		Level:         LevelC1,
		Focus:         "writing",
		EstimatedTime: 60,
		Sections: []Section{
			WarmupSection{Questions: []string{"q1"}, VocabularyPreview: []string{"w1"}},
			ReadingSection{Paragraphs: []string{"One. Two. Three."}},
			VocabularySection{Words: []VocabularyWord{{Term: "a", Definition: "b"}}},
			ComprehensionSection{Questions: []QuizQuestion{{Question: "q", Options: []string{"x", "y"}, CorrectAnswer: "x"}}},
			SentenceFramesSection{Frames: []SentenceFrame{{Frame: "If I ___", Example: "If I won"}}},
			DiscussionSection{Questions: []string{"d1"}},
			QuizSection{Questions: []QuizQuestion{{Question: "q2", Options: []string{"x"}, CorrectAnswer: "x"}}},
		},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, tag := range []string{"warmup", "reading", "vocabulary", "comprehension", "sentenceFrames", "discussion", "quiz"} {
		if !strings.Contains(string(raw), `"type":"`+tag+`"`) {
			t.Fatalf("envelope missing type tag %q: %s", tag, raw)
		}
	}

	var out Lesson
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Sections) != len(in.Sections) {
		t.Fatalf("expected %d sections, got %d", len(in.Sections), len(out.Sections))
	}
	for i := range in.Sections {
		if in.Sections[i].SectionType() != out.Sections[i].SectionType() {
			t.Fatalf("section %d: type %q became %q", i, in.Sections[i].SectionType(), out.Sections[i].SectionType())
		}
	}
	if r := out.Reading(); r == nil || r.Paragraphs[0] != "One. Two. Three." {
		t.Fatalf("reading content lost: %+v", out.Reading())
	}
}

func TestLessonJSON_UnknownSectionTypeRejected(t *testing.T) {
	raw := []byte(`{"title":"t","level":"B1","sections":[{"type":"homework"}]}`)
	var l Lesson
	if err := json.Unmarshal(raw, &l); err == nil {
		t.Fatalf("expected error for unknown section type")
	}
}

func TestCanonicalSectionType_FoldsSpellingVariants(t *testing.T) {
	cases := map[string]SectionType{
		"warm-up":         SectionWarmup,
		"Warm_Up":         SectionWarmup,
		"READING":         SectionReading,
		"vocab":           SectionVocabulary,
		"sentence frames": SectionSentenceFrames,
		"quiz":            SectionQuiz,
	}
	for in, want := range cases {
		got, ok := canonicalSectionType(in)
		if !ok || got != want {
			t.Fatalf("%q: expected %q, got %q (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := canonicalSectionType("homework"); ok {
		t.Fatalf("unknown type must not fold")
	}
}
