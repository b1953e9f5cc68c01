package models

import "time"

type ChatLog struct {
	ID         int64     `json:"id"`
	UserQuery  string    `json:"user_query"`
	AIResponse string    `json:"ai_response"`
	Timestamp  time.Time `json:"timestamp"`
}

type Feedback struct {
	ID           int64     `json:"id"`
	UserQuery    string    `json:"user_query"`
	AIResponse   string    `json:"ai_response"`
	UserFeedback string    `json:"user_feedback"`
	Timestamp    time.Time `json:"timestamp"`
}
