package lesson

import "testing"

func TestParseLevel_FoldsCaseAndSpace(t *testing.T) {
	if lvl, ok := ParseLevel(" b2 "); !ok || lvl != LevelB2 {
		t.Fatalf("expected B2, got %q ok=%v", lvl, ok)
	}
	if _, ok := ParseLevel("native"); ok {
		t.Fatalf("expected rejection of unknown level")
	}
}

func TestLevelProfiles_EveryLevelHasGuidance(t *testing.T) {
	for _, lvl := range AllLevels() {
		p := lvl.Profile()
		if p.Code != string(lvl) {
			t.Fatalf("%s: profile code mismatch %q", lvl, p.Code)
		}
		if p.Label == "" || p.Guidance == "" {
			t.Fatalf("%s: incomplete profile %+v", lvl, p)
		}
		if p.MaxSentenceWords <= 0 {
			t.Fatalf("%s: missing sentence bound", lvl)
		}
	}
}

func TestLevelProfiles_UnknownLevelFallsBackToB1(t *testing.T) {
	p := Level("Z9").Profile()
	if p.Code != string(LevelB1) {
		t.Fatalf("expected B1 profile fallback, got %+v", p)
	}
}

func TestLessonParameters_Validate(t *testing.T) {
	ok := LessonParameters{Level: LevelB1, Topic: "travel", DurationMinutes: 60}
	if errs := ok.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
	bad := LessonParameters{Level: "expert", DurationMinutes: 0}
	errs := bad.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected level+topic+duration errors, got %v", errs)
	}
}
