package lesson

import (
	"fmt"
	"strings"
)

const (
	DefaultTitle         = "English Lesson"
	DefaultLevel         = LevelB1
	DefaultFocus         = "general"
	DefaultEstimatedTime = 60
)

// requiredSectionTypes must all be present before normalization. A lesson
// missing one gets a placeholder synthesized so downstream consumers can rely
// on the shape unconditionally.
var requiredSectionTypes = []SectionType{
	SectionWarmup,
	SectionReading,
	SectionVocabulary,
	SectionComprehension,
}

// PreprocessLessonObject repairs the top-level shape of a parsed model
// response in place: absent scalar fields get defaults, sections becomes a
// real array of typed objects with canonical type tags, and each missing
// required section type gets an explicit error placeholder appended. Every
// repair adds a note; an already well-formed object passes through untouched.
func PreprocessLessonObject(obj map[string]any) (map[string]any, []string) {
	notes := make([]string, 0)
	if obj == nil {
		obj = map[string]any{}
		notes = append(notes, "response was not an object, rebuilt from scratch")
	}

	if s := strings.TrimSpace(stringFromAny(obj["title"])); s == "" {
		obj["title"] = DefaultTitle
		notes = append(notes, "title missing, defaulted")
	} else {
		obj["title"] = s
	}

	rawLevel := strings.TrimSpace(stringFromAny(obj["level"]))
	if lvl, ok := ParseLevel(rawLevel); ok {
		obj["level"] = string(lvl)
	} else {
		obj["level"] = string(DefaultLevel)
		if rawLevel == "" {
			notes = append(notes, "level missing, defaulted to "+string(DefaultLevel))
		} else {
			notes = append(notes, fmt.Sprintf("level %q not recognized, defaulted to %s", rawLevel, DefaultLevel))
		}
	}

	if s := strings.TrimSpace(stringFromAny(obj["focus"])); s == "" {
		obj["focus"] = DefaultFocus
		notes = append(notes, "focus missing, defaulted")
	} else {
		obj["focus"] = s
	}

	if mins := intFromAny(obj["estimatedTime"], 0); mins <= 0 {
		obj["estimatedTime"] = DefaultEstimatedTime
		notes = append(notes, fmt.Sprintf("estimatedTime missing or invalid, defaulted to %d", DefaultEstimatedTime))
	} else {
		obj["estimatedTime"] = mins
	}

	sections, secNotes := preprocessSections(obj["sections"])
	notes = append(notes, secNotes...)

	present := map[SectionType]bool{}
	for _, el := range sections {
		if m, ok := el.(map[string]any); ok {
			present[SectionType(stringFromAny(m["type"]))] = true
		}
	}
	for _, t := range requiredSectionTypes {
		if present[t] {
			continue
		}
		sections = append(sections, placeholderSection(t))
		notes = append(notes, fmt.Sprintf("required section %q missing, inserted error placeholder", t))
	}
	obj["sections"] = sections

	return obj, notes
}

// preprocessSections keeps only section objects whose type tag folds onto the
// known set, rewriting the tag to its canonical spelling.
func preprocessSections(v any) ([]any, []string) {
	notes := make([]string, 0)
	arr, ok := v.([]any)
	if !ok {
		if v != nil {
			notes = append(notes, "sections was not an array, discarded")
		}
		return []any{}, notes
	}
	out := make([]any, 0, len(arr))
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("section %d is not an object, dropped", i))
			continue
		}
		raw := stringFromAny(m["type"])
		t, ok := canonicalSectionType(raw)
		if !ok {
			if strings.TrimSpace(raw) == "" {
				notes = append(notes, fmt.Sprintf("section %d has no type, dropped", i))
			} else {
				notes = append(notes, fmt.Sprintf("section %d has unknown type %q, dropped", i, raw))
			}
			continue
		}
		if raw != string(t) {
			notes = append(notes, fmt.Sprintf("section %d type %q normalized to %q", i, raw, t))
		}
		m["type"] = string(t)
		out = append(out, m)
	}
	return out, notes
}

// placeholderSection synthesizes the stand-in for a required section the model
// failed to produce. Payloads are shaped so the per-type normalizers emit
// their standard error markers without special cases.
func placeholderSection(t SectionType) map[string]any {
	msg := errorText(fmt.Sprintf("the model response did not include a %s section; regenerate the lesson to fill this in", t))
	switch t {
	case SectionWarmup:
		return map[string]any{"type": string(t), "questions": []any{msg}}
	case SectionVocabulary:
		return map[string]any{"type": string(t), "words": []any{
			map[string]any{"term": "Error", "definition": msg},
		}}
	case SectionComprehension:
		return map[string]any{"type": string(t), "questions": []any{msg}}
	default:
		// reading and the optional types carry no payload; their normalizers
		// already emit error content for an empty body
		return map[string]any{"type": string(t)}
	}
}
