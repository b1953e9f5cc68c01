package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for ChatTotal.
const (
	OutcomeCacheHit  = "cache_hit"
	OutcomeGreeting  = "greeting"
	OutcomeFixedFact = "fixed_fact"
	OutcomeGenerated = "generated"
	OutcomeLLMError  = "llm_error"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unibot_chat_duration_seconds",
			Help:    "Chat request duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unibot_chat_total",
			Help: "Total chat requests by outcome",
		},
		[]string{"outcome"},
	)

	LLMDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unibot_llm_duration_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	RetrievalResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unibot_retrieval_results_count",
			Help:    "Number of passages above threshold per query",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
		},
	)

	WebSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unibot_web_search_total",
			Help: "Web searches by result kind",
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unibot_cache_hits_total",
			Help: "Total response cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unibot_cache_misses_total",
			Help: "Total response cache misses",
		},
	)

	FeedbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unibot_feedback_total",
			Help: "Total feedback submissions",
		},
	)

	IndexedPassages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "unibot_indexed_passages",
			Help: "Passages in the in-memory index",
		},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(ChatDuration)
		prometheus.MustRegister(ChatTotal)
		prometheus.MustRegister(LLMDuration)
		prometheus.MustRegister(RetrievalResultsCount)
		prometheus.MustRegister(WebSearchTotal)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(FeedbackTotal)
		prometheus.MustRegister(IndexedPassages)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
