package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibot/backend/pkg/retry"
)

func norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestHashing_DeterministicAndNormalized(t *testing.T) {
	h, err := NewHashing(128)
	require.NoError(t, err)

	texts := []string{"Admissions open for B.Tech", "Admissions open for B.Tech", "hostel fee details"}
	first, err := h.Embed(context.Background(), texts)
	require.NoError(t, err)
	second, err := h.Embed(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, first[0], first[1])
	for _, v := range first {
		assert.Len(t, v, 128)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
}

func TestHashing_RelatedTextScoresHigher(t *testing.T) {
	h, err := NewHashing(512)
	require.NoError(t, err)

	vs, err := h.Embed(context.Background(), []string{
		"placement statistics for computer science",
		"computer science placement statistics",
		"canteen menu on friday",
	})
	require.NoError(t, err)

	assert.Greater(t, Dot(vs[0], vs[1]), Dot(vs[0], vs[2]))
}

func TestHashing_EmptyTextIsZeroVector(t *testing.T) {
	h, err := NewHashing(16)
	require.NoError(t, err)

	vs, err := h.Embed(context.Background(), []string{"   ", "!!!"})
	require.NoError(t, err)
	assert.Zero(t, norm(vs[0]))
	assert.Zero(t, norm(vs[1]))
}

func TestNewHashing_RejectsBadDimension(t *testing.T) {
	_, err := NewHashing(0)
	assert.Error(t, err)
}

func embeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			// Reverse order to check the client honours the index field.
			j := len(req.Input) - 1 - i
			data[i] = map[string]any{"object": "embedding", "index": j, "embedding": []float32{float32(j), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type mapCache struct {
	entries map[string][]float32
}

func (m *mapCache) GetEmbedding(_ context.Context, key string) ([]float32, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapCache) SetEmbedding(_ context.Context, key string, v []float32, _ time.Duration) error {
	m.entries[key] = v
	return nil
}

func TestOpenAI_BatchOrder(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	e := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "test"})

	vs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}, {2, 1}}, vs)
	assert.Equal(t, 2, e.Dimension())
}

func TestOpenAI_DimensionOfKnownModel(t *testing.T) {
	e := NewOpenAI(OpenAIConfig{APIKey: "k", Model: "text-embedding-3-small", Dimension: 384})
	assert.Equal(t, 1536, e.Dimension())

	e = NewOpenAI(OpenAIConfig{APIKey: "k", Model: "custom", Dimension: 768})
	assert.Equal(t, 768, e.Dimension())
}

func TestOpenAI_ConcurrentQueriesLearnDimension(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	e := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "test"})
	assert.Equal(t, 0, e.Dimension())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := EmbedOne(context.Background(), e, "admission dates")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 8, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, e.Dimension())
}

func TestOpenAI_QueryCache(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	cache := &mapCache{entries: map[string][]float32{}}
	e := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "test", Cache: cache, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		v, err := EmbedOne(context.Background(), e, "fee structure")
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 1}, v)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Len(t, cache.entries, 1)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "test"})
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

type flaky struct {
	failures int
	calls    int
}

func (f *flaky) Name() string   { return "flaky" }
func (f *flaky) Dimension() int { return 1 }
func (f *flaky) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestWithRetry(t *testing.T) {
	inner := &flaky{failures: 2}
	e := WithRetry(inner, retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond})

	vs, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vs, 1)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", e.Name())
}
