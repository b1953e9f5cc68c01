package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/unibot/backend/internal/storage/models"
	"github.com/unibot/backend/pkg/logger"
)

// ChatService is the subset of chat.Engine the HTTP layer needs.
type ChatService interface {
	Chat(ctx context.Context, message string, includeSearch bool) string
	Search(ctx context.Context, query string) []string
	Feedback(ctx context.Context, userQuery, aiResponse, userFeedback string)
	History(ctx context.Context, limit int) ([]models.ChatLog, error)
}

type ChatHandler struct {
	service ChatService
}

func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{
		service: service,
	}
}

type chatRequest struct {
	Message       string `json:"message" form:"message"`
	IncludeSearch bool   `json:"include_search" form:"include_search"`
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	reply := h.service.Chat(c.UserContext(), req.Message, req.IncludeSearch)

	return c.JSON(fiber.Map{
		"reply": reply,
	})
}

func (h *ChatHandler) HandleSearch(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query" form:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"results": h.service.Search(c.UserContext(), req.Query),
	})
}

func (h *ChatHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		UserQuery    string `json:"user_query" form:"user_query"`
		AIResponse   string `json:"ai_response" form:"ai_response"`
		UserFeedback string `json:"user_feedback" form:"user_feedback"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserQuery == "" || req.AIResponse == "" || req.UserFeedback == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_query, ai_response and user_feedback are required",
		})
	}

	h.service.Feedback(c.UserContext(), req.UserQuery, req.AIResponse, req.UserFeedback)

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Feedback recorded",
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	history, err := h.service.History(c.UserContext(), limit)
	if err != nil {
		logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	if history == nil {
		history = []models.ChatLog{}
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}
