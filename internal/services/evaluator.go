package services

import (
	"strings"
	"unicode"
)

const (
	// Similarity thresholds for judging a spoken answer against the expected
	// one. Speech-delay mode is far more forgiving.
	TextMatchThreshold            = 0.7
	TextMatchThresholdSpeechDelay = 0.3
)

// Evaluator judges answers. Index kinds are exact matches; free-response
// answers are judged by text similarity against a threshold.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

func (e *Evaluator) ScoreIndex(selected, correct int) bool {
	return selected == correct
}

// ScoreText returns the similarity between a transcript and the expected
// answer, plus whether it clears the active threshold.
func (e *Evaluator) ScoreText(transcript, correct string, speechDelay bool) (float64, bool) {
	threshold := TextMatchThreshold
	if speechDelay {
		threshold = TextMatchThresholdSpeechDelay
	}
	score := Similarity(transcript, correct)
	return score, score >= threshold
}

// Similarity is in [0,1]. The expected answer appearing anywhere in the
// transcript counts as a full match ("it's a ball" matches "ball"); anything
// else falls back to normalized edit distance.
func Similarity(a, b string) float64 {
	na, nb := normalizeAnswer(a), normalizeAnswer(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if containsWord(na, nb) {
		return 1
	}
	dist := levenshtein(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

func normalizeAnswer(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsWord(haystack, needle string) bool {
	if !strings.Contains(needle, " ") {
		for _, w := range strings.Fields(haystack) {
			if w == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(haystack, needle)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
