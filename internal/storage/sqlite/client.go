package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/unibot/backend/internal/storage/models"
	"github.com/unibot/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	// busy_timeout lets concurrent request goroutines queue on the write lock.
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_query TEXT NOT NULL,
		ai_response TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_log_timestamp ON chat_log(timestamp);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_query TEXT NOT NULL,
		ai_response TEXT NOT NULL,
		user_feedback TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_timestamp ON feedback(timestamp);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertChatLog(ctx context.Context, entry *models.ChatLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_log (user_query, ai_response, timestamp) VALUES (?, ?, ?)`,
		entry.UserQuery,
		entry.AIResponse,
		entry.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}

	entry.ID, _ = res.LastInsertId()
	logger.Debug("Chat log recorded", zap.Int64("id", entry.ID))
	return nil
}

func (c *Client) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO feedback (user_query, ai_response, user_feedback, timestamp) VALUES (?, ?, ?, ?)`,
		fb.UserQuery,
		fb.AIResponse,
		fb.UserFeedback,
		fb.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	fb.ID, _ = res.LastInsertId()
	logger.Info("Feedback stored", zap.Int64("id", fb.ID))
	return nil
}

// RecentChatLogs returns up to limit rows, newest first.
func (c *Client) RecentChatLogs(ctx context.Context, limit int) ([]models.ChatLog, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_query, ai_response, timestamp
		FROM chat_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	var logs []models.ChatLog
	for rows.Next() {
		var l models.ChatLog
		var ts int64

		if err := rows.Scan(&l.ID, &l.UserQuery, &l.AIResponse, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		l.Timestamp = time.Unix(ts, 0)
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (c *Client) CountFeedback(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}
