// Package knowledge answers general hospital questions from a set of scraped
// web pages using keyword scoring.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Document is one scraped page.
type Document struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Loader produces the full document set.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

const (
	DefaultLimit = 3

	excerptRunes = 600
	contextRunes = 2000

	wordScore   = 2
	phraseScore = 5

	NoResults = "I could not find specific hospital information related to this query."
	header    = "Here is the relevant information found from the hospital website:\n\n"
)

var stopWords = map[string]struct{}{
	"we": {}, "are": {}, "is": {}, "am": {}, "the": {}, "a": {}, "an": {}, "for": {}, "to": {},
	"do": {}, "you": {}, "have": {}, "any": {}, "very": {}, "keen": {}, "please": {},
	"i": {}, "want": {}, "can": {}, "tell": {}, "me": {}, "about": {},
}

// Index holds the loaded documents. Reload swaps the whole set at once so
// concurrent searches see either the old or the new set.
type Index struct {
	loader Loader
	logger zerolog.Logger
	docs   atomic.Pointer[[]Document]
}

func NewIndex(loader Loader, logger zerolog.Logger) *Index {
	idx := &Index{loader: loader, logger: logger.With().Str("component", "knowledge").Logger()}
	empty := []Document{}
	idx.docs.Store(&empty)
	return idx
}

// Load reads the document set for the first time.
func (x *Index) Load(ctx context.Context) error {
	return x.Reload(ctx)
}

// Reload replaces the document set. On error the previous set stays.
func (x *Index) Reload(ctx context.Context) error {
	docs, err := x.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	x.docs.Store(&docs)
	x.logger.Info().Int("documents", len(docs)).Msg("knowledge base loaded")
	return nil
}

func (x *Index) Len() int {
	return len(*x.docs.Load())
}

type hit struct {
	score int
	doc   *Document
}

// Search ranks documents against query and returns a context text for the
// assistant to read from.
func (x *Index) Search(query string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))
	words := keywords(query)

	docs := *x.docs.Load()
	var hits []hit
	for i := range docs {
		content := strings.ToLower(docs[i].Content)
		score := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				score += wordScore
			}
		}
		if strings.Contains(content, query) {
			score += phraseScore
		}
		if score > 0 {
			hits = append(hits, hit{score: score, doc: &docs[i]})
		}
	}
	if len(hits) == 0 {
		return NoResults
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	var b strings.Builder
	b.WriteString(header)
	for _, h := range hits {
		fmt.Fprintf(&b, "--- Source: %s (%s) ---\n", h.doc.Title, h.doc.URL)
		b.WriteString(truncate(h.doc.Content, excerptRunes))
		b.WriteString("...\n\n")
	}
	return truncate(b.String(), contextRunes)
}

func keywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(query) {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
