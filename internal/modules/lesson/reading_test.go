package lesson

import (
	"fmt"
	"strings"
	"testing"
)

func sentenceRun(n int) string {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf("This is sentence number %d.", i))
	}
	return strings.Join(parts, " ")
}

func TestSplitSentences_TerminatorsAndTrim(t *testing.T) {
	got := SplitSentences("Hello there!  How are you? I am fine.")
	want := []string{"Hello there.", "How are you.", "I am fine."}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: expected %q got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSentences_KeepsDecimalsIntact(t *testing.T) {
	got := SplitSentences("The value of pi is 3.14 roughly. Everyone knows that.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0], "3.14") {
		t.Fatalf("decimal was split: %q", got[0])
	}
}

func TestSplitSentences_EmptyInput(t *testing.T) {
	if got := SplitSentences("   "); len(got) != 0 {
		t.Fatalf("expected no sentences, got %v", got)
	}
}

func TestBucketSentences_EighteenSentences(t *testing.T) {
	sentences := SplitSentences(sentenceRun(18))
	if len(sentences) != 18 {
		t.Fatalf("fixture broken: %d sentences", len(sentences))
	}
	buckets := bucketSentences(sentences, targetParagraphs, minSentencesPerParagraph)
	wantSizes := []int{4, 4, 4, 4, 2}
	if len(buckets) != len(wantSizes) {
		t.Fatalf("expected %d buckets, got %d", len(wantSizes), len(buckets))
	}
	total := 0
	for i, b := range buckets {
		if len(b) != wantSizes[i] {
			t.Fatalf("bucket %d: expected %d sentences, got %d", i, wantSizes[i], len(b))
		}
		total += len(b)
	}
	if total != 18 {
		t.Fatalf("sentences dropped: 18 in, %d out", total)
	}
	if buckets[4][1] != "This is sentence number 18." {
		t.Fatalf("ordering lost, last sentence is %q", buckets[4][1])
	}
}

func TestBucketSentences_ShortSupplySkipsEmptyBuckets(t *testing.T) {
	sentences := SplitSentences(sentenceRun(6))
	buckets := bucketSentences(sentences, targetParagraphs, minSentencesPerParagraph)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets for 6 sentences, got %d", len(buckets))
	}
	if len(buckets[0]) != 3 || len(buckets[1]) != 3 {
		t.Fatalf("expected [3 3], got [%d %d]", len(buckets[0]), len(buckets[1]))
	}
}

func TestBucketSentences_BelowMinStillProducesOneParagraph(t *testing.T) {
	buckets := bucketSentences([]string{"Only one."}, targetParagraphs, minSentencesPerParagraph)
	if len(buckets) != 1 || len(buckets[0]) != 1 {
		t.Fatalf("expected a single 1-sentence bucket, got %#v", buckets)
	}
}

func TestBucketSentences_ParagraphCountFormulaBelowFloor(t *testing.T) {
	// below 15 sentences the paragraph count is ceil(n/3), capped at 5
	for n := 1; n < targetParagraphs*minSentencesPerParagraph; n++ {
		buckets := bucketSentences(SplitSentences(sentenceRun(n)), targetParagraphs, minSentencesPerParagraph)
		want := (n + minSentencesPerParagraph - 1) / minSentencesPerParagraph
		if want > targetParagraphs {
			want = targetParagraphs
		}
		if len(buckets) != want {
			t.Fatalf("n=%d: expected %d paragraphs, got %d", n, want, len(buckets))
		}
	}
}

func TestParagraphsFromSentences_JoinsWithSpaces(t *testing.T) {
	paragraphs := paragraphsFromSentences(SplitSentences(sentenceRun(15)))
	if len(paragraphs) != 5 {
		t.Fatalf("expected 5 paragraphs, got %d", len(paragraphs))
	}
	for i, p := range paragraphs {
		if n := len(SplitSentences(p)); n != 3 {
			t.Fatalf("paragraph %d: expected 3 sentences, got %d (%q)", i, n, p)
		}
	}
}
