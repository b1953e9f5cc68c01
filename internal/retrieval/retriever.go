package retrieval

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/unibot/backend/internal/embedding"
	"github.com/unibot/backend/internal/knowledge"
	"github.com/unibot/backend/internal/vector/flat"
	"github.com/unibot/backend/pkg/logger"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.5
)

type Match struct {
	Passage knowledge.Passage
	Score   float64
}

type Retriever struct {
	index    *flat.Index
	embedder embedding.Embedder
}

func NewRetriever(index *flat.Index, embedder embedding.Embedder) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)

// Normalize prepares a query for embedding only; cache keys and logs keep
// the raw text.
func Normalize(query string) string {
	return punctuation.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), "")
}

// Retrieve returns at most k passages scoring strictly above threshold, best
// first. Any failure yields no matches.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, threshold float64) []Match {
	if r.index == nil || r.index.Len() == 0 || k <= 0 {
		return nil
	}

	vector, err := embedding.EmbedOne(ctx, r.embedder, Normalize(query))
	if err != nil {
		logger.Warn("Query embedding failed, continuing without dataset context", zap.Error(err))
		return nil
	}

	var matches []Match
	for _, hit := range r.index.Search(vector, k) {
		if hit.Score <= threshold {
			continue
		}
		matches = append(matches, Match{Passage: r.index.Passage(hit.Index), Score: hit.Score})
	}

	logger.Debug("Retrieval completed",
		zap.Int("candidates", k),
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", threshold),
	)
	return matches
}

// Texts lists the passage texts of matches in order.
func Texts(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Passage.Text
	}
	return out
}
