package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibot/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestInitSchema_Idempotent(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.InitSchema())
}

func TestChatLog_NewestFirst(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.InsertChatLog(ctx, &models.ChatLog{
			UserQuery:  fmt.Sprintf("q%d", i),
			AIResponse: fmt.Sprintf("a%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := c.RecentChatLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "q2", logs[0].UserQuery)
	assert.Equal(t, "a1", logs[1].AIResponse)
	assert.Equal(t, base.Add(2*time.Minute).Unix(), logs[0].Timestamp.Unix())
}

func TestInsertFeedback(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	fb := &models.Feedback{UserQuery: "q", AIResponse: "a", UserFeedback: "thumbs up"}
	require.NoError(t, c.InsertFeedback(ctx, fb))
	assert.NotZero(t, fb.ID)
	assert.False(t, fb.Timestamp.IsZero())

	n, err := c.CountFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_ConcurrentInserts(t *testing.T) {
	c := newTestClient(t)
	r := NewRecorder(c)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.RecordQuery(ctx, fmt.Sprintf("q%d", i), "a")
		}(i)
	}
	wg.Wait()

	logs, err := r.History(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, logs, 20)
}

func TestRecorder_FailuresAreSwallowed(t *testing.T) {
	c := newTestClient(t)
	r := NewRecorder(c)
	require.NoError(t, c.Close())

	assert.NotPanics(t, func() {
		r.RecordQuery(context.Background(), "q", "a")
		r.RecordFeedback(context.Background(), "q", "a", "bad")
	})
}

func TestRecorder_NilClient(t *testing.T) {
	r := NewRecorder(nil)
	r.RecordQuery(context.Background(), "q", "a")
	r.RecordFeedback(context.Background(), "q", "a", "f")

	logs, err := r.History(context.Background(), 10)
	assert.NoError(t, err)
	assert.Empty(t, logs)
}
