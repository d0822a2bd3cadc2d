package services

import "testing"

func TestSimilarityExactAndNormalized(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "ball", "ball", 1},
		{"case and punctuation", "It's a Ball!", "ball", 1},
		{"answer embedded in sentence", "I think it is a cow", "cow", 1},
		{"empty transcript", "", "cow", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Similarity(tc.a, tc.b); got != tc.want {
				t.Fatalf("Similarity(%q, %q): want=%v got=%v", tc.a, tc.b, tc.want, got)
			}
		})
	}
}

func TestSimilarityNearMiss(t *testing.T) {
	got := Similarity("cot", "cow")
	if got <= 0 || got >= 1 {
		t.Fatalf("near miss should land strictly between 0 and 1, got=%v", got)
	}
}

func TestScoreTextThresholds(t *testing.T) {
	e := NewEvaluator()

	// "tow" vs "cow" is one edit in three runes, similarity 2/3: below the
	// standard threshold but above the speech-delay one.
	if _, ok := e.ScoreText("tow", "cow", false); ok {
		t.Fatalf("standard mode accepted a 0.67 similarity answer")
	}
	if _, ok := e.ScoreText("tow", "cow", true); !ok {
		t.Fatalf("speech-delay mode rejected a 0.67 similarity answer")
	}
}

func TestScoreTextEmbeddedWordDoesNotMatchSubstring(t *testing.T) {
	// "cowboy" contains the letters of "cow" but is a different word.
	score, _ := NewEvaluator().ScoreText("cowboy", "cow", false)
	if score == 1 {
		t.Fatalf("substring of a longer word scored as full match")
	}
}

func TestScoreIndex(t *testing.T) {
	e := NewEvaluator()
	if !e.ScoreIndex(1, 1) {
		t.Fatalf("matching index scored incorrect")
	}
	if e.ScoreIndex(0, 1) {
		t.Fatalf("mismatched index scored correct")
	}
	if e.ScoreIndex(-1, 0) {
		t.Fatalf("missing index scored correct")
	}
}
