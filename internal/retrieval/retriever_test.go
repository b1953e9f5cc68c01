package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibot/backend/internal/embedding"
	"github.com/unibot/backend/internal/knowledge"
	"github.com/unibot/backend/internal/vector/flat"
)

var corpus = []knowledge.Passage{
	{Text: "The library is open from 8 am to 8 pm on weekdays.", Section: "library"},
	{Text: "Hostel fees are paid every semester at the accounts office.", Section: "hostel"},
	{Text: "Placement drives are held in the seminar hall.", Section: "placements"},
	{Text: "hello world", Section: "misc"},
}

func newRetriever(t *testing.T, ps []knowledge.Passage) (*Retriever, embedding.Embedder) {
	t.Helper()
	h, err := embedding.NewHashing(256)
	require.NoError(t, err)
	idx, err := flat.Build(context.Background(), h, ps)
	require.NoError(t, err)
	return NewRetriever(idx, h), h
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Hello World!!  ":        "hello world",
		"What's the FEE?":          "whats the fee",
		"B.Tech (CSE) - 2nd year":  "btech cse  2nd year",
		"snake_case stays":         "snake_case stays",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}

	assert.Equal(t, "కేశవ్ మెమోరియల్", Normalize("కేశవ్ మెమోరియల్?"))
}

func TestRetrieve_ThresholdIsStrict(t *testing.T) {
	r, _ := newRetriever(t, corpus)
	ctx := context.Background()

	all := r.Retrieve(ctx, "library open weekdays", 10, -1)
	require.NotEmpty(t, all)

	for _, threshold := range []float64{-1, 0, 0.1, 0.3, 0.5, 0.9} {
		for _, m := range r.Retrieve(ctx, "library open weekdays", 10, threshold) {
			assert.Greater(t, m.Score, threshold)
		}
	}

	// A threshold equal to the best score excludes it.
	best := all[0].Score
	for _, m := range r.Retrieve(ctx, "library open weekdays", 10, best) {
		assert.Greater(t, m.Score, best)
	}
}

func TestRetrieve_DescendingOrder(t *testing.T) {
	r, _ := newRetriever(t, corpus)
	matches := r.Retrieve(context.Background(), "library hostel placement", 10, -1)
	require.Len(t, matches, len(corpus))
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestRetrieve_RespectsK(t *testing.T) {
	r, _ := newRetriever(t, corpus)
	assert.Len(t, r.Retrieve(context.Background(), "library", 2, -1), 2)
	assert.Empty(t, r.Retrieve(context.Background(), "library", 0, -1))
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	r, _ := newRetriever(t, nil)
	assert.Empty(t, r.Retrieve(context.Background(), "anything at all", 5, 0.5))
}

func TestRetrieve_RawVariantsRetrieveIdentically(t *testing.T) {
	r, _ := newRetriever(t, corpus)
	ctx := context.Background()

	a := r.Retrieve(ctx, "hello world", 5, 0.5)
	b := r.Retrieve(ctx, "Hello World!!", 5, 0.5)

	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.Equal(t, "hello world", a[0].Passage.Text)
}

type failingEmbedder struct{ embedding.Embedder }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func TestRetrieve_EmbeddingFailureIsEmpty(t *testing.T) {
	h, err := embedding.NewHashing(32)
	require.NoError(t, err)
	idx, err := flat.Build(context.Background(), h, corpus)
	require.NoError(t, err)

	r := NewRetriever(idx, failingEmbedder{h})
	assert.Empty(t, r.Retrieve(context.Background(), "library", 5, 0))
}

func TestTexts(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Texts([]Match{
		{Passage: knowledge.Passage{Text: "a"}},
		{Passage: knowledge.Passage{Text: "b"}},
	}))
}
