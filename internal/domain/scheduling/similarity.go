package scheduling

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// Similarity scores how alike two strings are, from 0 to 100.
type Similarity interface {
	Score(a, b string) int
}

// SimilarityFunc adapts a plain function to Similarity.
type SimilarityFunc func(a, b string) int

func (f SimilarityFunc) Score(a, b string) int { return f(a, b) }

// WeightedRatio combines a plain edit ratio with token-order-insensitive and
// substring ratios and keeps the best, each alternative slightly discounted.
// Sub-scores stay fractional and only the final score is rounded, half to
// even.
type WeightedRatio struct{}

const (
	tokenScale   = 0.95
	partialScale = 0.90
	// Length ratio at which substring matching is considered.
	partialThreshold = 1.5
	// Above this length ratio substring matches count for much less.
	longPartialThreshold = 8
	longPartialScale     = 0.6
)

func (WeightedRatio) Score(a, b string) int {
	p1, p2 := processString(a), processString(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	l1, l2 := float64(len(p1)), float64(len(p2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)

	best := ratio(p1, p2)
	if lenRatio < partialThreshold {
		return round(math.Max(best, tokenRatio(p1, p2)*tokenScale))
	}

	scale := partialScale
	if lenRatio >= longPartialThreshold {
		scale = longPartialScale
	}
	best = math.Max(best, partialRatio(p1, p2)*scale)
	best = math.Max(best, partialTokenRatio(p1, p2)*tokenScale*scale)
	return round(best)
}

// processString lower-cases s and turns every non-alphanumeric rune into a
// space.
func processString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(s)
}

func round(f float64) int {
	return int(math.RoundToEven(f))
}

// ratio is 100 * (1 - indel distance / total length). Substitutions cost two,
// so the distance counts insertions and deletions only.
func ratio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return 100 * float64(total-dist) / float64(total)
}

// partialRatio is the best ratio of the shorter string against any window of
// the longer one. Windows slide past both ends, so a match may be cut short
// where the longer string starts or stops.
func partialRatio(a, b string) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	if a == "" {
		return 0
	}
	best := alignedRatio(a, b)
	if len(a) == len(b) && best < 100 {
		best = math.Max(best, alignedRatio(b, a))
	}
	return best
}

func alignedRatio(short, long string) float64 {
	n := len(short)
	best := 0.0
	for end := 1; end < len(long)+n; end++ {
		window := long[max(0, end-n):min(end, len(long))]
		if r := ratio(short, window); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenRatio(a, b string) float64 {
	return math.Max(ratio(sortedTokens(a), sortedTokens(b)), tokenSetRatio(a, b))
}

// tokenSetRatio compares the shared tokens of a and b against each side's
// shared-plus-remaining tokens. One side's tokens all appearing in the other
// scores 100.
func tokenSetRatio(a, b string) float64 {
	set1, set2 := tokenSet(a), tokenSet(b)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	var sect, diff12, diff21 []string
	for t := range set1 {
		if set2[t] {
			sect = append(sect, t)
		} else {
			diff12 = append(diff12, t)
		}
	}
	for t := range set2 {
		if !set1[t] {
			diff21 = append(diff21, t)
		}
	}
	if len(sect) > 0 && (len(diff12) == 0 || len(diff21) == 0) {
		return 100
	}
	sort.Strings(sect)
	sort.Strings(diff12)
	sort.Strings(diff21)

	sorted := strings.Join(sect, " ")
	combined12 := strings.TrimSpace(sorted + " " + strings.Join(diff12, " "))
	combined21 := strings.TrimSpace(sorted + " " + strings.Join(diff21, " "))

	best := ratio(combined12, combined21)
	if sorted != "" {
		best = math.Max(best, ratio(sorted, combined12))
		best = math.Max(best, ratio(sorted, combined21))
	}
	return best
}

// partialTokenRatio is 100 when a and b share a token and otherwise the
// partial ratio of their sorted tokens.
func partialTokenRatio(a, b string) float64 {
	set1, set2 := tokenSet(a), tokenSet(b)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}
	for t := range set1 {
		if set2[t] {
			return 100
		}
	}
	return partialRatio(sortedTokens(a), sortedTokens(b))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}
