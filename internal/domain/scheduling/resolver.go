package scheduling

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// MatchThreshold is the score a fuzzy candidate must exceed to be accepted.
const MatchThreshold = 70

var (
	fillerWords = regexp.MustCompile(`\b(dr|doctor|mr|mrs|please|book|appointment|with|for|i want|check)\b\.?`)
	spaces      = regexp.MustCompile(`\s+`)
)

// NormalizeName strips titles and filler words from a spoken doctor name and
// title-cases what remains: "please book dr. smith" becomes "Smith".
func NormalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = fillerWords.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.Und).String(s)
}

// Resolver maps a free-text doctor name to a doctor record.
type Resolver struct {
	doctors   clinic.DoctorRepository
	sim       Similarity
	threshold int
}

func NewResolver(doctors clinic.DoctorRepository, sim Similarity) *Resolver {
	if sim == nil {
		sim = WeightedRatio{}
	}
	return &Resolver{doctors: doctors, sim: sim, threshold: MatchThreshold}
}

// Resolve tries a case-insensitive substring match first and falls back to
// the best fuzzy candidate scoring above the threshold. Both stages are
// scoped to branchID when it is set. Ties go to the first candidate in
// repository order.
func (r *Resolver) Resolve(ctx context.Context, raw string, branchID *int64) (*clinic.Doctor, error) {
	name := NormalizeName(raw)
	if name == "" {
		return nil, outcome.New(outcome.NotFound, "Please provide a doctor name.")
	}

	exact, _, err := r.doctors.List(ctx, clinic.DoctorFilter{BranchID: branchID, NameContains: name}, 1, 0)
	if err != nil {
		return nil, outcome.Storage(err)
	}
	if len(exact) > 0 {
		return exact[0], nil
	}

	candidates, _, err := r.doctors.List(ctx, clinic.DoctorFilter{BranchID: branchID}, 0, 0)
	if err != nil {
		return nil, outcome.Storage(err)
	}

	var best *clinic.Doctor
	bestScore := r.threshold
	for _, d := range candidates {
		if score := r.sim.Score(name, d.Name); score > bestScore {
			best, bestScore = d, score
		}
	}
	if best == nil {
		return nil, outcome.New(outcome.NotFound, fmt.Sprintf("I couldn't find a doctor named '%s'.", name))
	}
	return best, nil
}
