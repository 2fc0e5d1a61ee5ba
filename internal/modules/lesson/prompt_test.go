package lesson

import (
	"strings"
	"testing"
)

func TestBuildLessonPrompt_Deterministic(t *testing.T) {
	p := LessonParameters{Level: LevelB1, Topic: "Street food", Focus: "vocabulary", DurationMinutes: 45}
	sys1, user1 := BuildLessonPrompt(p)
	sys2, user2 := BuildLessonPrompt(p)
	if sys1 != sys2 || user1 != user2 {
		t.Fatalf("same params must render the same prompt")
	}
}

func TestBuildLessonPrompt_CarriesParams(t *testing.T) {
	p := LessonParameters{Level: LevelA2, Topic: "Ordering coffee", Focus: "listening", DurationMinutes: 30, Notes: "shy student"}
	system, user := BuildLessonPrompt(p)

	if !strings.Contains(user, "TOPIC: Ordering coffee") {
		t.Fatalf("topic missing from user prompt:\n%s", user)
	}
	if !strings.Contains(user, "LEVEL: A2") || !strings.Contains(user, "DURATION_MINUTES: 30") {
		t.Fatalf("level/duration missing from user prompt:\n%s", user)
	}
	if !strings.Contains(user, "shy student") {
		t.Fatalf("notes missing from user prompt:\n%s", user)
	}
	if !strings.Contains(system, "Elementary") {
		t.Fatalf("level profile guidance missing from system prompt")
	}
	if !strings.Contains(system, "ONLY valid JSON") {
		t.Fatalf("JSON-only instruction missing from system prompt")
	}
}

func TestBuildLessonPrompt_EmptyFocusFallsBack(t *testing.T) {
	_, user := BuildLessonPrompt(LessonParameters{Level: LevelB1, Topic: "x", DurationMinutes: 60})
	if !strings.Contains(user, "FOCUS: "+DefaultFocus) {
		t.Fatalf("expected focus fallback, got:\n%s", user)
	}
}
