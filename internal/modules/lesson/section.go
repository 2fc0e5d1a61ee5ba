package lesson

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SectionType tags one lesson block variant.
type SectionType string

const (
	SectionWarmup         SectionType = "warmup"
	SectionReading        SectionType = "reading"
	SectionVocabulary     SectionType = "vocabulary"
	SectionComprehension  SectionType = "comprehension"
	SectionSentenceFrames SectionType = "sentenceFrames"
	SectionDiscussion     SectionType = "discussion"
	SectionQuiz           SectionType = "quiz"
)

// Section is the closed set of lesson blocks. The unexported method keeps the
// set closed, so a switch over concrete types can be checked for exhaustiveness.
type Section interface {
	SectionType() SectionType
	sealedSection()
}

type WarmupSection struct {
	Questions         []string `json:"questions"`
	VocabularyPreview []string `json:"vocabularyPreview,omitempty"`
}

type ReadingSection struct {
	Paragraphs []string `json:"paragraphs"`
}

type VocabularyWord struct {
	Term          string `json:"term"`
	Definition    string `json:"definition"`
	PartOfSpeech  string `json:"partOfSpeech,omitempty"`
	Example       string `json:"example,omitempty"`
	Pronunciation string `json:"pronunciation,omitempty"`
	Collocation   string `json:"collocation,omitempty"`
}

type VocabularySection struct {
	Words []VocabularyWord `json:"words"`
}

// QuizQuestion is a multiple-choice item. CorrectAnswer is always one of
// Options once the lesson has passed normalization.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type ComprehensionSection struct {
	Questions []QuizQuestion `json:"questions"`
}

type QuizSection struct {
	Questions []QuizQuestion `json:"questions"`
}

type SentenceFrame struct {
	Frame   string `json:"frame"`
	Example string `json:"example,omitempty"`
}

type SentenceFramesSection struct {
	Frames []SentenceFrame `json:"frames"`
}

type DiscussionSection struct {
	Questions []string `json:"questions"`
}

func (WarmupSection) SectionType() SectionType         { return SectionWarmup }
func (ReadingSection) SectionType() SectionType        { return SectionReading }
func (VocabularySection) SectionType() SectionType     { return SectionVocabulary }
func (ComprehensionSection) SectionType() SectionType  { return SectionComprehension }
func (SentenceFramesSection) SectionType() SectionType { return SectionSentenceFrames }
func (DiscussionSection) SectionType() SectionType     { return SectionDiscussion }
func (QuizSection) SectionType() SectionType           { return SectionQuiz }

func (WarmupSection) sealedSection()         {}
func (ReadingSection) sealedSection()        {}
func (VocabularySection) sealedSection()     {}
func (ComprehensionSection) sealedSection()  {}
func (SentenceFramesSection) sealedSection() {}
func (DiscussionSection) sealedSection()     {}
func (QuizSection) sealedSection()           {}

// Lesson is the canonical normalized plan. Every field is guaranteed non-empty
// after NormalizeLesson (placeholder content carries an explicit error marker
// instead of being silently absent).
type Lesson struct {
	Title         string    `json:"title"`
	Level         Level     `json:"level"`
	Focus         string    `json:"focus"`
	EstimatedTime int       `json:"estimatedTime"`
	Sections      []Section `json:"sections"`
}

// Reading returns the first reading block, or nil when none survived.
func (l *Lesson) Reading() *ReadingSection {
	if l == nil {
		return nil
	}
	for _, s := range l.Sections {
		if r, ok := s.(ReadingSection); ok {
			return &r
		}
	}
	return nil
}

// Vocabulary returns the first vocabulary block, or nil.
func (l *Lesson) Vocabulary() *VocabularySection {
	if l == nil {
		return nil
	}
	for _, s := range l.Sections {
		if v, ok := s.(VocabularySection); ok {
			return &v
		}
	}
	return nil
}

// MarshalJSON flattens each section into a single envelope object carrying a
// "type" discriminator next to the variant's own fields.
func (l Lesson) MarshalJSON() ([]byte, error) {
	sections := make([]json.RawMessage, 0, len(l.Sections))
	for i, s := range l.Sections {
		raw, err := marshalSectionEnvelope(s)
		if err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, s.SectionType(), err)
		}
		sections = append(sections, raw)
	}
	type lessonJSON struct {
		Title         string            `json:"title"`
		Level         Level             `json:"level"`
		Focus         string            `json:"focus"`
		EstimatedTime int               `json:"estimatedTime"`
		Sections      []json.RawMessage `json:"sections"`
	}
	return json.Marshal(lessonJSON{
		Title:         l.Title,
		Level:         l.Level,
		Focus:         l.Focus,
		EstimatedTime: l.EstimatedTime,
		Sections:      sections,
	})
}

// UnmarshalJSON rebuilds the typed sections from their envelope form. Unknown
// section types are an error here: decoding is for data this package already
// normalized, raw model output goes through NormalizeLesson instead.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	type lessonJSON struct {
		Title         string            `json:"title"`
		Level         Level             `json:"level"`
		Focus         string            `json:"focus"`
		EstimatedTime int               `json:"estimatedTime"`
		Sections      []json.RawMessage `json:"sections"`
	}
	var in lessonJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	sections := make([]Section, 0, len(in.Sections))
	for i, raw := range in.Sections {
		s, err := unmarshalSectionEnvelope(raw)
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		sections = append(sections, s)
	}
	l.Title = in.Title
	l.Level = in.Level
	l.Focus = in.Focus
	l.EstimatedTime = in.EstimatedTime
	l.Sections = sections
	return nil
}

func marshalSectionEnvelope(s Section) (json.RawMessage, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = string(s.SectionType())
	return json.Marshal(m)
}

func unmarshalSectionEnvelope(raw json.RawMessage) (Section, error) {
	var tag struct {
		Type SectionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case SectionWarmup:
		var s WarmupSection
		return s, json.Unmarshal(raw, &s)
	case SectionReading:
		var s ReadingSection
		return s, json.Unmarshal(raw, &s)
	case SectionVocabulary:
		var s VocabularySection
		return s, json.Unmarshal(raw, &s)
	case SectionComprehension:
		var s ComprehensionSection
		return s, json.Unmarshal(raw, &s)
	case SectionSentenceFrames:
		var s SentenceFramesSection
		return s, json.Unmarshal(raw, &s)
	case SectionDiscussion:
		var s DiscussionSection
		return s, json.Unmarshal(raw, &s)
	case SectionQuiz:
		var s QuizSection
		return s, json.Unmarshal(raw, &s)
	}
	return nil, fmt.Errorf("unknown section type %q", tag.Type)
}

// canonicalSectionType folds the spelling variants models produce ("Warm-Up",
// "warm_up", "VOCAB") onto the closed tag set.
func canonicalSectionType(raw string) (SectionType, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	switch v {
	case "warmup":
		return SectionWarmup, true
	case "reading", "readingpassage":
		return SectionReading, true
	case "vocabulary", "vocab":
		return SectionVocabulary, true
	case "comprehension", "comprehensionquestions":
		return SectionComprehension, true
	case "sentenceframes", "sentenceframe":
		return SectionSentenceFrames, true
	case "discussion", "discussionquestions":
		return SectionDiscussion, true
	case "quiz":
		return SectionQuiz, true
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
