package lesson

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// wellFormedLessonObject mirrors what a cooperative model returns: nothing in
// it should need repair.
func wellFormedLessonObject() map[string]any {
	return map[string]any{
		"title":         "A Trip to the Market",
		"level":         "B1",
		"focus":         "speaking",
		"estimatedTime": float64(60),
		"sections": []any{
			map[string]any{
				"type":      "warmup",
				"questions": []any{"Do you enjoy shopping?", "What did you buy last week?"},
			},
			map[string]any{
				"type": "reading",
				"text": sentenceRun(15),
			},
			map[string]any{
				"type": "vocabulary",
				"words": []any{
					map[string]any{"term": "bargain", "definition": "something sold cheaply", "partOfSpeech": "noun"},
					map[string]any{"term": "stall", "definition": "a small open shop"},
				},
			},
			map[string]any{
				"type": "comprehension",
				"questions": []any{
					map[string]any{
						"question":      "Where does the story happen?",
						"options":       []any{"At a market", "At a school", "At a bank", "At home"},
						"correctAnswer": "At a market",
					},
				},
			},
		},
	}
}

func TestNormalizeLesson_WellFormedPassesThrough(t *testing.T) {
	l, notes := NormalizeLesson(wellFormedLessonObject())
	if len(notes) != 0 {
		t.Fatalf("expected zero repair notes, got %v", notes)
	}
	if l.Title != "A Trip to the Market" || l.Level != LevelB1 {
		t.Fatalf("scalars mutated: %+v", l)
	}
	if len(l.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(l.Sections))
	}
	reading := l.Reading()
	if reading == nil || len(reading.Paragraphs) != 5 {
		t.Fatalf("expected 5 reading paragraphs, got %+v", reading)
	}
}

func TestNormalizeLesson_SecondPassIsStable(t *testing.T) {
	first, _ := NormalizeLesson(wellFormedLessonObject())

	raw, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, _ := NormalizeLesson(roundTripped)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second normalization changed content:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeLesson_NoErrorMarkersInCleanInput(t *testing.T) {
	l, _ := NormalizeLesson(wellFormedLessonObject())
	raw, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "Error:") {
		t.Fatalf("clean input produced error markers: %s", raw)
	}
}

func TestNormalizeVocabulary_CountBecomesSingleErrorEntry(t *testing.T) {
	sec, notes := NormalizeSection(map[string]any{
		"type":  "vocabulary",
		"words": float64(5),
	})
	vocab, ok := sec.(VocabularySection)
	if !ok {
		t.Fatalf("expected VocabularySection, got %T", sec)
	}
	if len(vocab.Words) != 1 {
		t.Fatalf("a count must become exactly one placeholder entry, got %d", len(vocab.Words))
	}
	if !strings.Contains(vocab.Words[0].Definition, "Error") {
		t.Fatalf("placeholder entry not error-marked: %+v", vocab.Words[0])
	}
	if len(notes) == 0 {
		t.Fatalf("expected a repair note")
	}
}

func TestNormalizeVocabulary_BareStringGetsErrorDefinition(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type":  "vocabulary",
		"words": []any{"bargain"},
	})
	vocab := sec.(VocabularySection)
	if len(vocab.Words) != 1 || vocab.Words[0].Term != "bargain" {
		t.Fatalf("term not preserved: %+v", vocab.Words)
	}
	if !strings.Contains(vocab.Words[0].Definition, "Error") {
		t.Fatalf("missing definition not error-marked: %q", vocab.Words[0].Definition)
	}
}

func TestNormalizeVocabulary_OptionalFieldsCarried(t *testing.T) {
	sec, notes := NormalizeSection(map[string]any{
		"type": "vocabulary",
		"words": []any{map[string]any{
			"term":          "stall",
			"definition":    "a small open shop",
			"partOfSpeech":  "noun",
			"example":       "She runs a fruit stall.",
			"pronunciation": "/stɔːl/",
			"collocation":   "market stall",
		}},
	})
	if len(notes) != 0 {
		t.Fatalf("complete entry produced notes: %v", notes)
	}
	w := sec.(VocabularySection).Words[0]
	if w.PartOfSpeech != "noun" || w.Example == "" || w.Pronunciation == "" || w.Collocation == "" {
		t.Fatalf("optional fields dropped: %+v", w)
	}
}

func TestNormalizeComprehension_BareStringQuestion(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type":      "comprehension",
		"questions": []any{"What is photosynthesis?"},
	})
	comp := sec.(ComprehensionSection)
	if len(comp.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(comp.Questions))
	}
	q := comp.Questions[0]
	if q.Question != "What is photosynthesis?" {
		t.Fatalf("question text mutated: %q", q.Question)
	}
	if len(q.Options) == 0 {
		t.Fatalf("expected placeholder options")
	}
	for _, opt := range q.Options {
		if !strings.Contains(opt, "Error") {
			t.Fatalf("option %q is not visibly an error marker", opt)
		}
	}
	if !containsString(q.Options, q.CorrectAnswer) {
		t.Fatalf("correctAnswer %q not drawn from options %v", q.CorrectAnswer, q.Options)
	}
}

func TestNormalizeComprehension_NonMemberCorrectAnswerRepaired(t *testing.T) {
	sec, notes := NormalizeSection(map[string]any{
		"type": "comprehension",
		"questions": []any{map[string]any{
			"question":      "Pick one.",
			"options":       []any{"alpha", "beta"},
			"correctAnswer": "gamma",
		}},
	})
	q := sec.(ComprehensionSection).Questions[0]
	if q.CorrectAnswer != "alpha" {
		t.Fatalf("expected first option, got %q", q.CorrectAnswer)
	}
	found := false
	for _, n := range notes {
		if strings.Contains(n, "gamma") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a note naming the rejected answer, got %v", notes)
	}
}

func TestNormalizeQuiz_CommaStringBecomesOptions(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type": "quiz",
		"questions": []any{map[string]any{
			"question":      "Which word means cheap purchase?",
			"options":       "bargain, stall, receipt, queue",
			"correctAnswer": "bargain",
		}},
	})
	q := sec.(QuizSection).Questions[0]
	if len(q.Options) != 4 {
		t.Fatalf("expected comma split into 4 options, got %v", q.Options)
	}
	if q.CorrectAnswer != "bargain" {
		t.Fatalf("valid correctAnswer mutated: %q", q.CorrectAnswer)
	}
}

func TestNormalizeDiscussion_ObjectEntriesExtracted(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type": "discussion",
		"questions": []any{
			map[string]any{"question": "Do you like markets?"},
			map[string]any{"text": "Describe your last trip."},
			map[string]any{"zz": "fallback value", "aa": "sorted first"},
		},
	})
	d := sec.(DiscussionSection)
	want := []string{"Do you like markets?", "Describe your last trip.", "sorted first"}
	if !reflect.DeepEqual(d.Questions, want) {
		t.Fatalf("expected %v, got %v", want, d.Questions)
	}
}

func TestNormalizeSentenceFrames_EmptyGetsErrorEntry(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type":   "sentenceFrames",
		"frames": []any{},
	})
	frames := sec.(SentenceFramesSection).Frames
	if len(frames) != 1 || !strings.Contains(frames[0].Frame, "Error") {
		t.Fatalf("expected single error frame, got %+v", frames)
	}
}

func TestNormalizeReading_MissingPassageGetsErrorParagraph(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{"type": "reading"})
	r := sec.(ReadingSection)
	if len(r.Paragraphs) != 1 || !strings.Contains(r.Paragraphs[0], "Error") {
		t.Fatalf("expected single error paragraph, got %+v", r.Paragraphs)
	}
}

func TestNormalizeReading_PreSplitParagraphsReflowed(t *testing.T) {
	sec, _ := NormalizeSection(map[string]any{
		"type": "reading",
		"paragraphs": []any{
			sentenceRun(9),
			sentenceRun(9),
		},
	})
	r := sec.(ReadingSection)
	// 18 sentences total, reflowed into [4 4 4 4 2]
	if len(r.Paragraphs) != 5 {
		t.Fatalf("expected reflow into 5 paragraphs, got %d", len(r.Paragraphs))
	}
	if n := len(SplitSentences(r.Paragraphs[4])); n != 2 {
		t.Fatalf("expected 2 sentences in the last paragraph, got %d", n)
	}
}

func TestNormalizeLesson_MissingSectionsGetPlaceholders(t *testing.T) {
	l, notes := NormalizeLesson(map[string]any{"title": "Bare"})
	if len(l.Sections) != len(requiredSectionTypes) {
		t.Fatalf("expected %d placeholder sections, got %d", len(requiredSectionTypes), len(l.Sections))
	}
	raw, _ := json.Marshal(l)
	if !strings.Contains(string(raw), "Error") {
		t.Fatalf("placeholders not error-marked: %s", raw)
	}
	if len(notes) < len(requiredSectionTypes) {
		t.Fatalf("expected one note per synthesized section, got %v", notes)
	}
}
