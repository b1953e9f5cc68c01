package flat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibot/backend/internal/embedding"
	"github.com/unibot/backend/internal/knowledge"
)

// tableEmbedder returns preset vectors keyed by text.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
	short   bool
}

func (e *tableEmbedder) Name() string   { return "table" }
func (e *tableEmbedder) Dimension() int { return 2 }
func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v := append([]float32(nil), e.vectors[t]...)
		out = append(out, v)
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func passages(texts ...string) []knowledge.Passage {
	ps := make([]knowledge.Passage, len(texts))
	for i, t := range texts {
		ps[i] = knowledge.Passage{Text: t, Section: "s"}
	}
	return ps
}

func TestBuild_AlignsVectorsWithPassages(t *testing.T) {
	h, err := embedding.NewHashing(64)
	require.NoError(t, err)

	ps := passages("library hours", "bus routes", "exam timetable")
	idx, err := Build(context.Background(), h, ps)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	for i, p := range ps {
		v, err := embedding.EmbedOne(context.Background(), h, p.Text)
		require.NoError(t, err)
		hits := idx.Search(v, 1)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Index)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.Equal(t, p, idx.Passage(hits[0].Index))
	}
}

func TestSearch_SortedAndStableTies(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"c": {2, 0},
		"d": {1, 1},
	}}
	idx, err := Build(context.Background(), e, passages("a", "b", "c", "d"))
	require.NoError(t, err)

	hits := idx.Search([]float32{5, 0}, 10)
	require.Len(t, hits, 4)
	assert.Equal(t, []int{0, 2, 3, 1}, []int{hits[0].Index, hits[1].Index, hits[2].Index, hits[3].Index})
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	top := idx.Search([]float32{5, 0}, 2)
	assert.Len(t, top, 2)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx, err := Build(context.Background(), &tableEmbedder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Search([]float32{1, 0}, 5))
}

func TestSearch_NonPositiveK(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}}}
	idx, err := Build(context.Background(), e, passages("a"))
	require.NoError(t, err)
	assert.Empty(t, idx.Search([]float32{1, 0}, 0))
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(context.Background(), &tableEmbedder{err: errors.New("model missing")}, passages("a"))
	assert.Error(t, err)

	short := &tableEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}}, short: true}
	_, err = Build(context.Background(), short, passages("a", "b"))
	assert.ErrorContains(t, err, "mismatch")
}
