package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/unibot/backend/internal/storage/models"
	"github.com/unibot/backend/pkg/logger"
)

// Recorder is the fire-and-forget face of the log: failures are logged and
// swallowed.
type Recorder struct {
	client *Client
}

// NewRecorder accepts a nil client, in which case every call is a no-op.
func NewRecorder(client *Client) *Recorder {
	if client == nil {
		logger.Warn("Persistence log disabled: no database")
	}
	return &Recorder{client: client}
}

func (r *Recorder) RecordQuery(ctx context.Context, userQuery, aiResponse string) {
	if r == nil || r.client == nil {
		return
	}
	err := r.client.InsertChatLog(ctx, &models.ChatLog{UserQuery: userQuery, AIResponse: aiResponse})
	if err != nil {
		logger.Error("Failed to record query", zap.Error(err))
	}
}

func (r *Recorder) RecordFeedback(ctx context.Context, userQuery, aiResponse, userFeedback string) {
	if r == nil || r.client == nil {
		return
	}
	err := r.client.InsertFeedback(ctx, &models.Feedback{
		UserQuery:    userQuery,
		AIResponse:   aiResponse,
		UserFeedback: userFeedback,
	})
	if err != nil {
		logger.Error("Failed to record feedback", zap.Error(err))
	}
}

// History returns nil when the log is unavailable.
func (r *Recorder) History(ctx context.Context, limit int) ([]models.ChatLog, error) {
	if r == nil || r.client == nil {
		return nil, nil
	}
	return r.client.RecentChatLogs(ctx, limit)
}
