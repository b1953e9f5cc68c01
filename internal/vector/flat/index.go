// Package flat is an exact, in-memory inner-product index. It is built once
// from the whole corpus and is read-only afterwards, so concurrent searches
// need no locking.
package flat

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/unibot/backend/internal/embedding"
	"github.com/unibot/backend/internal/knowledge"
	"github.com/unibot/backend/pkg/logger"
)

type Hit struct {
	Index int
	Score float64
}

// Index keeps vectors[i] aligned with passages[i].
type Index struct {
	passages []knowledge.Passage
	vectors  [][]float32
	dim      int
}

// Build encodes every passage and normalises the vectors so inner product is
// cosine similarity. An empty passage set yields a valid, empty index.
func Build(ctx context.Context, embedder embedding.Embedder, passages []knowledge.Passage) (*Index, error) {
	idx := &Index{passages: passages, dim: embedder.Dimension()}
	if len(passages) == 0 {
		logger.Warn("Building empty index: no passages loaded")
		return idx, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(passages))
	}

	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), idx.dim)
		}
		embedding.Normalize(v)
	}
	idx.vectors = vectors

	logger.Info("Index built",
		zap.String("embedder", embedder.Name()),
		zap.Int("passages", len(passages)),
		zap.Int("dimension", idx.dim),
	)
	return idx, nil
}

func (x *Index) Len() int { return len(x.passages) }

func (x *Index) Dimension() int { return x.dim }

func (x *Index) Passage(i int) knowledge.Passage { return x.passages[i] }

// Search returns up to k hits ordered by descending inner product with the
// normalised query. Equal scores keep passage order.
func (x *Index) Search(query []float32, k int) []Hit {
	if k <= 0 || len(x.vectors) == 0 {
		return nil
	}

	q := embedding.Normalize(append([]float32(nil), query...))

	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Index: i, Score: embedding.Dot(v, q)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
