package lesson

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency tier. Lesson difficulty, vocabulary band, and
// sentence complexity are all calibrated from it.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

func AllLevels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// ParseLevel folds case and spacing variants onto the enum ("a1", " B2 ").
func ParseLevel(s string) (Level, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch Level(v) {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return Level(v), true
	}
	return "", false
}

// LessonParameters is the immutable input of one generation request.
type LessonParameters struct {
	Level           Level  `json:"level"`
	Topic           string `json:"topic"`
	Focus           string `json:"focus"`
	DurationMinutes int    `json:"durationMinutes"`
	Notes           string `json:"notes,omitempty"`
	StudentID       string `json:"studentId,omitempty"`
}

func (p LessonParameters) Validate() []string {
	errs := make([]string, 0)
	if _, ok := ParseLevel(string(p.Level)); !ok {
		errs = append(errs, fmt.Sprintf("unknown level %q (want one of A1..C2)", string(p.Level)))
	}
	if strings.TrimSpace(p.Topic) == "" {
		errs = append(errs, "topic is required")
	}
	if p.DurationMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("durationMinutes must be positive (got %d)", p.DurationMinutes))
	}
	return errs
}
