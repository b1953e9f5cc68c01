package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/logger"
)

type WebSocketHandler struct {
	service ChatService
}

func NewWebSocketHandler(service ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
	}
}

type wsMessage struct {
	Type          string `json:"type"`
	Content       string `json:"content"`
	IncludeSearch bool   `json:"include_search"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsMessage
		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}
		if msg.Content == "" {
			h.sendError(c, "Message is required")
			continue
		}

		err = h.streamResponse(c, msg)
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			break
		}
	}
}

// streamResponse sends the finished reply word by word so clients can render
// it progressively.
func (h *WebSocketHandler) streamResponse(c *websocket.Conn, msg wsMessage) error {
	messageID := uuid.New().String()

	if err := h.sendChunk(c, "status", "Processing query..."); err != nil {
		return err
	}

	reply := h.service.Chat(context.Background(), msg.Content, msg.IncludeSearch)

	words := splitIntoWords(reply)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": messageID,
		"reply":      reply,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	if err := c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}); err != nil {
		logger.Debug("Failed to send WebSocket error", zap.Error(err))
	}
}

func splitIntoWords(text string) []string {
	words := []string{}
	var current []rune

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if len(current) > 0 {
				words = append(words, string(current))
				current = current[:0]
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			current = append(current, char)
		}
	}

	if len(current) > 0 {
		words = append(words, string(current))
	}

	return words
}
