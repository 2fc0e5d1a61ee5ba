package lesson

import (
	"fmt"
	"strings"
)

// PromptVersion is stamped onto run telemetry so prompt changes can be
// correlated with quality shifts.
const PromptVersion = "esl_lesson_v2"

// BuildLessonPrompt renders the system and user messages for a generation
// run. Pure string assembly; retries re-issue the identical prompt, so the
// same params always render the same messages.
func BuildLessonPrompt(p LessonParameters) (string, string) {
	profile := p.Level.Profile()

	system := strings.TrimSpace(fmt.Sprintf(`
MODE: ESL_LESSON

You write complete ESL lesson plans for one-on-one conversation classes.
Rules:
- Output ONLY valid JSON matching the requested shape. No markdown fences, no commentary.
- Top-level fields: title, level, focus, estimatedTime (minutes, number), sections (array).
- Every section object carries a "type" field: one of warmup, reading, vocabulary, comprehension, sentenceFrames, discussion, quiz.
- Work in this order: first choose 5 target vocabulary words for the level and topic, then write the reading passage so it naturally uses every target word, then build every other section from that passage.
- The reading section is the core. Give it a "text" field with one continuous passage of at least 5 paragraphs, each at least 3 full sentences.
- vocabulary: a "words" array of objects with term, partOfSpeech, definition, example, pronunciation. Definitions match the passage usage, at the student's level.
- warmup: a "questions" array of 3 discussion starters that activate the topic before reading, plus a "vocabulary" array previewing the target terms.
- comprehension: a "questions" array of 4 objects with question, options (4 strings), correctAnswer (copied exactly from options). Answers must come from the passage.
- sentenceFrames: a "frames" array of objects with frame (a gap pattern like "If I ___, I would ___") and example.
- discussion: a "questions" array of 3 open questions connecting the passage to the student's own life.
- quiz: a "questions" array of 3 objects shaped like comprehension questions, reviewing the vocabulary.
- Level calibration (%s, %s): %s
- Keep sentences under %d words.
`,
		profile.Code, profile.Label, strings.TrimSpace(profile.Guidance), profile.MaxSentenceWords))

	user := strings.TrimSpace(fmt.Sprintf(`
LEVEL: %s
TOPIC: %s
FOCUS: %s
DURATION_MINUTES: %d

TEACHER_NOTES (optional):
%s
`,
		p.Level,
		strings.TrimSpace(p.Topic),
		focusOrDefault(p.Focus),
		p.DurationMinutes,
		strings.TrimSpace(p.Notes),
	))

	return system, user
}

func focusOrDefault(focus string) string {
	if s := strings.TrimSpace(focus); s != "" {
		return s
	}
	return DefaultFocus
}
