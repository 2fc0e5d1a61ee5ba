package lesson

import (
	"fmt"
	"strings"
)

// LessonRequirements is the quality bar a normalized lesson must clear before
// it is accepted. The reading passage is what carries an ESL lesson, so the
// bar is all about reading substance.
type LessonRequirements struct {
	MinParagraphs            int
	MinSentencesPerParagraph int
}

func DefaultLessonRequirements() LessonRequirements {
	return LessonRequirements{
		MinParagraphs:            targetParagraphs,
		MinSentencesPerParagraph: minSentencesPerParagraph,
	}
}

// LessonMetrics measures the normalized lesson for telemetry and validation.
// Sentence counts come from the same splitter the normalizer buckets with, so
// the gate and the builder can never disagree about what a sentence is.
func LessonMetrics(l *Lesson) map[string]any {
	metrics := map[string]any{}
	sectionCounts := map[string]int{}
	for _, s := range l.Sections {
		sectionCounts[string(s.SectionType())]++
	}
	metrics["section_counts"] = sectionCounts

	if reading := l.Reading(); reading != nil {
		counts := make([]int, 0, len(reading.Paragraphs))
		total := 0
		for _, p := range reading.Paragraphs {
			n := len(SplitSentences(p))
			counts = append(counts, n)
			total += n
		}
		metrics["paragraph_count"] = len(reading.Paragraphs)
		metrics["sentence_counts"] = counts
		metrics["sentence_total"] = total
	}
	if vocab := l.Vocabulary(); vocab != nil {
		metrics["vocabulary_count"] = len(vocab.Words)
	}
	return metrics
}

// EvaluateLessonQuality checks the normalized lesson against the bar. An empty
// error list means the lesson is acceptable; a non-empty list is recorded on
// the run for telemetry, so every entry names the shortfall concretely.
func EvaluateLessonQuality(l *Lesson, req LessonRequirements) ([]string, map[string]any) {
	errs := make([]string, 0)
	metrics := LessonMetrics(l)

	if strings.TrimSpace(l.Title) == "" {
		errs = append(errs, "title missing")
	}

	reading := l.Reading()
	if reading == nil {
		errs = append(errs, "reading section missing")
		return errs, metrics
	}

	pc, _ := metrics["paragraph_count"].(int)
	if req.MinParagraphs > 0 && pc < req.MinParagraphs {
		errs = append(errs, fmt.Sprintf("reading: need >=%d paragraphs (got %d)", req.MinParagraphs, pc))
	}
	counts, _ := metrics["sentence_counts"].([]int)
	for i, n := range counts {
		if req.MinSentencesPerParagraph > 0 && n < req.MinSentencesPerParagraph {
			errs = append(errs, fmt.Sprintf("reading: paragraph %d needs >=%d sentences (got %d)", i+1, req.MinSentencesPerParagraph, n))
		}
	}
	return errs, metrics
}
