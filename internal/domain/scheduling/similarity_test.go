package scheduling

import "testing"

func TestWeightedRatio(t *testing.T) {
	var w WeightedRatio

	if got := w.Score("DR-SMITH", "dr smith"); got != 100 {
		t.Errorf("punctuation and case should not matter, got %d", got)
	}
	if got := w.Score("", "Dr. Smith"); got != 0 {
		t.Errorf("empty input scores 0, got %d", got)
	}
	if got := w.Score("Smith John", "John Smith"); got < 95 {
		t.Errorf("token order should barely matter, got %d", got)
	}
	if got := w.Score("Rao", "Dr. Anita Rao"); got <= MatchThreshold {
		t.Errorf("a surname alone should clear the threshold, got %d", got)
	}
}

func TestWeightedRatio_MisheardName(t *testing.T) {
	var w WeightedRatio

	smith := w.Score("Doctr Smth", "Dr. Smith")
	smithson := w.Score("Doctr Smth", "Dr. Smithson")
	if smith <= MatchThreshold {
		t.Errorf("expected Dr. Smith above threshold, got %d", smith)
	}
	if smith <= smithson {
		t.Errorf("expected Dr. Smith (%d) to outscore Dr. Smithson (%d)", smith, smithson)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "abc", 100},
		{"abc", "xyz", 0},
		{"smith", "smyth", 80},
		{"", "", 0},
	}
	for _, tt := range tests {
		if got := round(ratio(tt.a, tt.b)); got != tt.want {
			t.Errorf("ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"smith", "dr smith jr", 100},
		{"this is a test", "this is a test!", 100},
		// The best window is cut short by the end of the longer string.
		{"smith", "xxsmit", 89},
		{"smith", "mithxx", 89},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		if got := round(partialRatio(tt.a, tt.b)); got != tt.want {
			t.Errorf("partialRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestReferenceScores(t *testing.T) {
	if got := round(ratio("this is a test", "this is a test!")); got != 97 {
		t.Errorf("ratio = %d, want 97", got)
	}
	if got := round(ratio("fuzzy wuzzy was a bear", "wuzzy fuzzy was a bear")); got != 91 {
		t.Errorf("ratio = %d, want 91", got)
	}
	if got := round(ratio(sortedTokens("fuzzy wuzzy was a bear"), sortedTokens("wuzzy fuzzy was a bear"))); got != 100 {
		t.Errorf("token sort ratio = %d, want 100", got)
	}
	if got := round(tokenSetRatio("fuzzy was a bear", "fuzzy fuzzy was a bear")); got != 100 {
		t.Errorf("token set ratio = %d, want 100", got)
	}

	var w WeightedRatio
	tests := []struct {
		a, b string
		want int
	}{
		{"cowboys", "Dallas Cowboys", 90},
		{"Rao", "Dr. Anita Rao", 90},
		{"Smithe", "Dr. Ramesh Smit", 72},
		{"Doctr Smth", "Dr. Smith", 74},
		{"Doctr Smth", "Dr. Smithson", 64},
	}
	for _, tt := range tests {
		if got := w.Score(tt.a, tt.b); got != tt.want {
			t.Errorf("Score(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRound_HalfToEven(t *testing.T) {
	if round(72.5) != 72 || round(73.5) != 74 || round(71.4) != 71 {
		t.Errorf("unexpected rounding: %d %d %d", round(72.5), round(73.5), round(71.4))
	}
}
