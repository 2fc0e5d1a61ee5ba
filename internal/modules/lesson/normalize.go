package lesson

import (
	"fmt"
	"strings"
)

// NormalizeLesson turns a parsed but untrusted model response into the
// canonical Lesson. It never fails: anything unrecoverable becomes explicit
// error-marker content a teacher can see and regenerate, and every repair
// appends a human-readable note. A well-formed response passes through with
// zero notes, so normalizing twice is a no-op.
func NormalizeLesson(obj map[string]any) (*Lesson, []string) {
	obj, notes := PreprocessLessonObject(obj)

	lvl, ok := ParseLevel(stringFromAny(obj["level"]))
	if !ok {
		lvl = DefaultLevel
	}
	out := &Lesson{
		Title:         strings.TrimSpace(stringFromAny(obj["title"])),
		Level:         lvl,
		Focus:         strings.TrimSpace(stringFromAny(obj["focus"])),
		EstimatedTime: intFromAny(obj["estimatedTime"], DefaultEstimatedTime),
	}

	arr, _ := obj["sections"].([]any)
	out.Sections = make([]Section, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		sec, secNotes := NormalizeSection(m)
		notes = append(notes, secNotes...)
		if sec != nil {
			out.Sections = append(out.Sections, sec)
		}
	}
	return out, notes
}

// NormalizeSection dispatches a preprocessed section object to its per-type
// normalizer. The switch is exhaustive over the closed tag set; an unknown tag
// can only mean the object skipped preprocessing, and is dropped with a note.
func NormalizeSection(m map[string]any) (Section, []string) {
	t, ok := canonicalSectionType(stringFromAny(m["type"]))
	if !ok {
		return nil, []string{fmt.Sprintf("section with unknown type %q dropped", stringFromAny(m["type"]))}
	}
	switch t {
	case SectionWarmup:
		return normalizeWarmup(m)
	case SectionReading:
		return normalizeReading(m)
	case SectionVocabulary:
		return normalizeVocabulary(m)
	case SectionComprehension:
		sec, notes := normalizeQuestionList(m, "comprehension")
		return ComprehensionSection{Questions: sec}, notes
	case SectionQuiz:
		sec, notes := normalizeQuestionList(m, "quiz")
		return QuizSection{Questions: sec}, notes
	case SectionSentenceFrames:
		return normalizeSentenceFrames(m)
	case SectionDiscussion:
		return normalizeDiscussion(m)
	}
	return nil, []string{fmt.Sprintf("section type %q has no normalizer", t)}
}

func normalizeWarmup(m map[string]any) (Section, []string) {
	notes := make([]string, 0)
	questions := stringListFromAny(m["questions"])
	if len(questions) == 0 {
		questions = []string{errorText("no warm-up questions were generated; regenerate the lesson to fill this in")}
		notes = append(notes, "warmup: questions missing, inserted error placeholder")
	}
	preview := m["vocabularyPreview"]
	if preview == nil {
		preview = m["vocabulary"]
	}
	return WarmupSection{
		Questions:         questions,
		VocabularyPreview: dedupeStrings(stringListFromAny(preview)),
	}, notes
}

func normalizeReading(m map[string]any) (Section, []string) {
	notes := make([]string, 0)

	var sentences []string
	if text, ok := m["text"].(string); ok && strings.TrimSpace(text) != "" {
		sentences = SplitSentences(text)
	} else if m["paragraphs"] != nil {
		// pre-split passage: pull every sentence back out and reflow, so
		// paragraph sizing follows one rule regardless of input shape
		for _, p := range stringListFromAny(m["paragraphs"]) {
			sentences = append(sentences, SplitSentences(p)...)
		}
		if len(sentences) > 0 {
			notes = append(notes, "reading: reflowed pre-split paragraphs")
		}
	}

	if len(sentences) == 0 {
		notes = append(notes, "reading: passage missing, inserted error placeholder")
		return ReadingSection{Paragraphs: []string{
			errorText("the reading passage was missing from the model response; regenerate the lesson to fill this in"),
		}}, notes
	}
	if len(sentences) < targetParagraphs*minSentencesPerParagraph {
		notes = append(notes, fmt.Sprintf("reading: only %d sentences, below the %d needed for a full passage",
			len(sentences), targetParagraphs*minSentencesPerParagraph))
	}
	return ReadingSection{Paragraphs: paragraphsFromSentences(sentences)}, notes
}

func normalizeVocabulary(m map[string]any) (Section, []string) {
	notes := make([]string, 0)
	v := m["words"]
	if v == nil {
		v = m["items"]
	}
	if v == nil {
		v = m["vocabulary"]
	}

	// A bare count ("words": 5) gets exactly one placeholder entry. Expanding
	// the count into N invented entries would be fabrication, and the teacher
	// needs to see that the list itself is missing.
	if isNumber(v) {
		notes = append(notes, fmt.Sprintf("vocabulary: received a count (%s) instead of a word list, inserted error placeholder", stringFromAny(v)))
		return VocabularySection{Words: []VocabularyWord{{
			Term:       "Error",
			Definition: errorText("the model returned a word count instead of vocabulary entries; regenerate the lesson"),
		}}}, notes
	}

	items := coerceList(v)
	words := make([]VocabularyWord, 0, len(items))
	for i, el := range items {
		switch t := el.(type) {
		case map[string]any:
			w, entryNotes := vocabularyWordFromMap(t, i)
			notes = append(notes, entryNotes...)
			words = append(words, w)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			notes = append(notes, fmt.Sprintf("vocabulary entry %d: bare term %q, definition marked missing", i, s))
			words = append(words, VocabularyWord{
				Term:       s,
				Definition: errorText("the model did not provide a definition for this term"),
			})
		default:
			notes = append(notes, fmt.Sprintf("vocabulary entry %d: malformed, inserted error placeholder", i))
			words = append(words, VocabularyWord{
				Term:       "Error",
				Definition: errorText("this vocabulary entry was malformed in the model response"),
			})
		}
	}
	if len(words) == 0 {
		notes = append(notes, "vocabulary: no usable entries, inserted error placeholder")
		words = []VocabularyWord{{
			Term:       "Error",
			Definition: errorText("no vocabulary entries were generated; regenerate the lesson to fill this in"),
		}}
	}
	return VocabularySection{Words: words}, notes
}

func vocabularyWordFromMap(m map[string]any, idx int) (VocabularyWord, []string) {
	notes := make([]string, 0)
	term := strings.TrimSpace(stringFromAny(firstPresent(m, "term", "word")))
	def := strings.TrimSpace(stringFromAny(firstPresent(m, "definition", "meaning")))
	if term == "" {
		term = "Error"
		notes = append(notes, fmt.Sprintf("vocabulary entry %d: term missing", idx))
	}
	if def == "" {
		def = errorText("the model did not provide a definition for this term")
		notes = append(notes, fmt.Sprintf("vocabulary entry %d: definition missing", idx))
	}
	return VocabularyWord{
		Term:          term,
		Definition:    def,
		PartOfSpeech:  strings.TrimSpace(stringFromAny(firstPresent(m, "partOfSpeech", "pos"))),
		Example:       strings.TrimSpace(stringFromAny(firstPresent(m, "example", "exampleSentence"))),
		Pronunciation: strings.TrimSpace(stringFromAny(m["pronunciation"])),
		Collocation:   strings.TrimSpace(stringFromAny(m["collocation"])),
	}, notes
}

func normalizeQuestionList(m map[string]any, name string) ([]QuizQuestion, []string) {
	notes := make([]string, 0)
	items := coerceList(m["questions"])
	out := make([]QuizQuestion, 0, len(items))
	for i, el := range items {
		switch t := el.(type) {
		case map[string]any:
			q, qNotes := quizQuestionFromMap(t, name, i)
			notes = append(notes, qNotes...)
			out = append(out, q)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			// a bare question arrived with no answer data at all; the options
			// say so explicitly rather than inventing plausible answers
			opts := placeholderOptions()
			notes = append(notes, fmt.Sprintf("%s question %d: bare question text, options marked missing", name, i))
			out = append(out, QuizQuestion{Question: s, Options: opts, CorrectAnswer: opts[0]})
		default:
			opts := placeholderOptions()
			notes = append(notes, fmt.Sprintf("%s question %d: malformed, inserted error placeholder", name, i))
			out = append(out, QuizQuestion{
				Question:      errorText("this question was malformed in the model response"),
				Options:       opts,
				CorrectAnswer: opts[0],
			})
		}
	}
	if len(out) == 0 {
		opts := placeholderOptions()
		notes = append(notes, fmt.Sprintf("%s: questions missing, inserted error placeholder", name))
		out = []QuizQuestion{{
			Question:      errorText(fmt.Sprintf("no %s questions were generated; regenerate the lesson to fill this in", name)),
			Options:       opts,
			CorrectAnswer: opts[0],
		}}
	}
	return out, notes
}

func quizQuestionFromMap(m map[string]any, name string, idx int) (QuizQuestion, []string) {
	notes := make([]string, 0)
	q := strings.TrimSpace(stringFromAny(firstPresent(m, "question", "text")))
	if q == "" {
		q = errorText("the question text was missing from the model response")
		notes = append(notes, fmt.Sprintf("%s question %d: question text missing", name, idx))
	}
	opts := stringListFromAny(firstPresent(m, "options", "choices"))
	if len(opts) == 0 {
		opts = placeholderOptions()
		notes = append(notes, fmt.Sprintf("%s question %d: options missing", name, idx))
	}
	correct := strings.TrimSpace(stringFromAny(firstPresent(m, "correctAnswer", "answer")))
	if correct == "" {
		correct = opts[0]
		notes = append(notes, fmt.Sprintf("%s question %d: correct answer missing, defaulted to first option", name, idx))
	} else if !containsString(opts, correct) {
		notes = append(notes, fmt.Sprintf("%s question %d: correct answer %q not among options, defaulted to first option", name, idx, correct))
		correct = opts[0]
	}
	return QuizQuestion{Question: q, Options: opts, CorrectAnswer: correct}, notes
}

func placeholderOptions() []string {
	return []string{
		errorText("the model did not provide answer options for this question"),
		errorText("regenerate the lesson to restore this question"),
	}
}

func normalizeSentenceFrames(m map[string]any) (Section, []string) {
	notes := make([]string, 0)
	items := coerceList(firstPresent(m, "frames", "sentenceFrames"))
	frames := make([]SentenceFrame, 0, len(items))
	for i, el := range items {
		switch t := el.(type) {
		case map[string]any:
			frame := strings.TrimSpace(stringFromAny(firstPresent(t, "frame", "pattern", "template")))
			if frame == "" {
				notes = append(notes, fmt.Sprintf("sentenceFrames entry %d: frame missing, inserted error placeholder", i))
				frames = append(frames, SentenceFrame{Frame: errorText("this sentence frame was malformed in the model response")})
				continue
			}
			frames = append(frames, SentenceFrame{
				Frame:   frame,
				Example: strings.TrimSpace(stringFromAny(t["example"])),
			})
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			frames = append(frames, SentenceFrame{Frame: s})
		default:
			notes = append(notes, fmt.Sprintf("sentenceFrames entry %d: malformed, inserted error placeholder", i))
			frames = append(frames, SentenceFrame{Frame: errorText("this sentence frame was malformed in the model response")})
		}
	}
	if len(frames) == 0 {
		notes = append(notes, "sentenceFrames: no usable frames, inserted error placeholder")
		frames = []SentenceFrame{{Frame: errorText("no sentence frames were generated; regenerate the lesson to fill this in")}}
	}
	return SentenceFramesSection{Frames: frames}, notes
}

func normalizeDiscussion(m map[string]any) (Section, []string) {
	notes := make([]string, 0)
	items := coerceList(m["questions"])
	questions := make([]string, 0, len(items))
	for i, el := range items {
		switch t := el.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				questions = append(questions, s)
			}
		case map[string]any:
			s := strings.TrimSpace(stringFromAny(firstPresent(t, "question", "text")))
			if s == "" {
				s = firstScalarValue(t)
			}
			if s == "" {
				s = errorText("this discussion question was malformed in the model response")
				notes = append(notes, fmt.Sprintf("discussion question %d: no usable text, inserted error placeholder", i))
			}
			questions = append(questions, s)
		default:
			if s := strings.TrimSpace(stringFromAny(el)); s != "" {
				questions = append(questions, s)
			}
		}
	}
	if len(questions) == 0 {
		notes = append(notes, "discussion: questions missing, inserted error placeholder")
		questions = []string{errorText("no discussion questions were generated; regenerate the lesson to fill this in")}
	}
	return DiscussionSection{Questions: questions}, notes
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
