// Package chat turns a user message into a reply: cached answers first, then
// fixed rules, then retrieval-augmented generation.
package chat

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unibot/backend/internal/metrics"
	"github.com/unibot/backend/internal/prompt"
	"github.com/unibot/backend/internal/retrieval"
	"github.com/unibot/backend/internal/search/web"
	"github.com/unibot/backend/internal/storage/models"
	"github.com/unibot/backend/pkg/logger"
)

const (
	ErrorReplyPrefix = "Error generating response: "

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type Cache interface {
	Lookup(ctx context.Context, query string) (string, bool)
	Store(ctx context.Context, query, response string)
}

type Recorder interface {
	RecordQuery(ctx context.Context, userQuery, aiResponse string)
	RecordFeedback(ctx context.Context, userQuery, aiResponse, userFeedback string)
	History(ctx context.Context, limit int) ([]models.ChatLog, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) []string
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, threshold float64) []retrieval.Match
}

type Config struct {
	ShortName    string
	FullForm     string
	Hint         string
	SystemPrompt string
	TopK         int
	Threshold    float64
	// FAQ is the rendered static FAQ block.
	FAQ string
}

type Engine struct {
	cfg       Config
	cache     Cache
	recorder  Recorder
	llm       Completer
	searcher  Searcher
	retriever Retriever

	greetings map[string]struct{}
	intros    []string
	fullForm  *regexp.Regexp
	shortName string
	pick      func(n int) int
}

// NewEngine wires the collaborators. searcher may be nil when web search is
// disabled.
func NewEngine(cfg Config, cache Cache, recorder Recorder, llm Completer, searcher Searcher, retriever Retriever) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful assistant."
	}

	short := strings.ToLower(cfg.ShortName)

	return &Engine{
		cfg:       cfg,
		cache:     cache,
		recorder:  recorder,
		llm:       llm,
		searcher:  searcher,
		retriever: retriever,
		greetings: map[string]struct{}{
			"hi": {}, "hello": {}, "hey": {}, "hii": {}, "hiii": {}, "yo": {},
		},
		intros: []string{
			"Hi there! I'm UniBot, your university assistant. How can I help you today?",
			fmt.Sprintf("Hello! I'm here to assist you with %s-related queries.", cfg.ShortName),
			fmt.Sprintf("Greetings! Ask me anything about %s or your student life.", cfg.ShortName),
		},
		fullForm:  regexp.MustCompile(`(?i)full\s*form\s*(of)?\s*` + regexp.QuoteMeta(short)),
		shortName: short,
		pick:      rand.Intn,
	}
}

// Chat always produces a reply. The first matching rule wins: cache, greeting,
// fixed fact, then generation.
func (e *Engine) Chat(ctx context.Context, message string, includeSearch bool) string {
	start := time.Now()
	requestID := uuid.New().String()

	reply, outcome := e.respond(ctx, requestID, message, includeSearch)

	metrics.ChatTotal.WithLabelValues(outcome).Inc()
	metrics.ChatDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	logger.Info("Chat handled",
		zap.String("request_id", requestID),
		zap.String("outcome", outcome),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return reply
}

func (e *Engine) respond(ctx context.Context, requestID, message string, includeSearch bool) (string, string) {
	if cached, ok := e.cache.Lookup(ctx, message); ok {
		metrics.CacheHits.Inc()
		return cached, metrics.OutcomeCacheHit
	}
	metrics.CacheMisses.Inc()

	lower := strings.ToLower(strings.TrimSpace(message))

	if _, ok := e.greetings[lower]; ok {
		return e.intros[e.pick(len(e.intros))], metrics.OutcomeGreeting
	}

	if e.fullForm.MatchString(lower) {
		e.recorder.RecordQuery(ctx, message, e.cfg.FullForm)
		e.cache.Store(ctx, message, e.cfg.FullForm)
		return e.cfg.FullForm, metrics.OutcomeFixedFact
	}

	question := message
	if e.shortName != "" && e.cfg.Hint != "" && strings.Contains(lower, e.shortName) {
		question += "\n\n" + e.cfg.Hint
	}

	matches := e.retriever.Retrieve(ctx, message, e.cfg.TopK, e.cfg.Threshold)
	metrics.RetrievalResultsCount.Observe(float64(len(matches)))

	var snippets []string
	if includeSearch && e.searcher != nil {
		snippets = e.webContext(ctx, requestID, message)
	}

	userPrompt := prompt.Assemble(prompt.Input{
		Question: question,
		Passages: retrieval.Texts(matches),
		Web:      snippets,
		FAQ:      e.cfg.FAQ,
	})

	logger.Debug("Prompt assembled",
		zap.String("request_id", requestID),
		zap.Int("passages", len(matches)),
		zap.Int("web_snippets", len(snippets)),
		zap.Int("prompt_len", len(userPrompt)),
	)

	llmStart := time.Now()
	answer, err := e.llm.Complete(ctx, e.cfg.SystemPrompt, userPrompt)
	metrics.LLMDuration.Observe(time.Since(llmStart).Seconds())
	if err != nil {
		logger.Error("LLM completion failed", zap.String("request_id", requestID), zap.Error(err))
		return ErrorReplyPrefix + err.Error(), metrics.OutcomeLLMError
	}

	e.recorder.RecordQuery(ctx, message, answer)
	e.cache.Store(ctx, message, answer)
	return answer, metrics.OutcomeGenerated
}

func (e *Engine) webContext(ctx context.Context, requestID, query string) []string {
	results := e.searcher.Search(ctx, query)
	snippets := web.Snippets(results)

	switch {
	case len(snippets) > 0:
		metrics.WebSearchTotal.WithLabelValues("results").Inc()
	case len(results) == 1 && results[0] == web.NoResults:
		metrics.WebSearchTotal.WithLabelValues("no_results").Inc()
	default:
		metrics.WebSearchTotal.WithLabelValues("error").Inc()
		logger.Warn("Web search unavailable, continuing without web context",
			zap.String("request_id", requestID),
		)
	}
	return snippets
}

// Search exposes raw web results, sentinels included.
func (e *Engine) Search(ctx context.Context, query string) []string {
	if e.searcher == nil {
		return []string{web.ErrorPrefix + "web search is disabled"}
	}
	return e.searcher.Search(ctx, query)
}

func (e *Engine) Feedback(ctx context.Context, userQuery, aiResponse, userFeedback string) {
	metrics.FeedbackTotal.Inc()
	e.recorder.RecordFeedback(ctx, userQuery, aiResponse, userFeedback)
}

// History returns the most recent logged exchanges. limit is clamped to
// [1, MaxHistoryLimit]; zero or less means DefaultHistoryLimit.
func (e *Engine) History(ctx context.Context, limit int) ([]models.ChatLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return e.recorder.History(ctx, limit)
}
