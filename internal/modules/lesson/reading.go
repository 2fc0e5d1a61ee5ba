package lesson

import (
	"regexp"
	"strings"
)

const (
	targetParagraphs         = 5
	minSentencesPerParagraph = 3
)

var sentenceEndRE = regexp.MustCompile(`[.!?](\s+|$)`)

// SplitSentences segments text on sentence terminators followed by whitespace
// or end of input, so abbreviations glued to the next word and decimals like
// 3.14 stay intact. Every sentence comes back trimmed and re-terminated with a
// period; ! and ? are flattened to flat statements on output. The same splitter
// is used to build paragraphs and to grade them, so the two can never disagree
// on what counts as a sentence.
func SplitSentences(text string) []string {
	parts := sentenceEndRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p+".")
	}
	return out
}

// bucketSentences reflows sentences into up to target paragraphs of per
// sentences each, where per = max(minPer, ceil(n/target)). Trailing buckets
// that would start past the sentence supply are skipped, never padded with
// fabricated content, so a short passage yields fewer paragraphs.
func bucketSentences(sentences []string, target, minPer int) [][]string {
	n := len(sentences)
	if n == 0 || target <= 0 {
		return nil
	}
	per := (n + target - 1) / target
	if per < minPer {
		per = minPer
	}
	out := make([][]string, 0, target)
	for i := 0; i < target; i++ {
		start := i * per
		if start >= n {
			break
		}
		end := start + per
		if end > n {
			end = n
		}
		out = append(out, sentences[start:end])
	}
	return out
}

// paragraphsFromSentences is the reflow used by the reading normalizer: bucket,
// then join each bucket back into one paragraph string.
func paragraphsFromSentences(sentences []string) []string {
	buckets := bucketSentences(sentences, targetParagraphs, minSentencesPerParagraph)
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, strings.Join(b, " "))
	}
	return out
}
