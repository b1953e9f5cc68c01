package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Sources     SourcesConfig
	Embedding   EmbeddingConfig
	Retrieval   RetrievalConfig
	SQLite      SQLiteConfig
	Redis       RedisConfig
	LLM         LLMConfig
	Search      SearchConfig
	Institution InstitutionConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        int
	WriteTimeout       int
	BodyLimit          int
	RateLimitPerMinute int
	MaxMessageLength   int
	AllowedOrigins     []string
}

type SourcesConfig struct {
	JSONPath   string
	CSVPath    string
	FAQPath    string
	TextField  string
	CSVSection string
}

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string
}

type RetrievalConfig struct {
	TopK      int
	Threshold float64
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSec) * time.Second
}

type LLMConfig struct {
	Model        string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	TimeoutSec   int
}

type SearchConfig struct {
	Enabled      bool
	GoogleAPIKey string
	GoogleCX     string
	SerpAPIKey   string
	MaxResults   int
	TimeoutSec   int
	DelayMs      int
}

type InstitutionConfig struct {
	ShortName string
	FullForm  string
	Hint      string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads configuration from (in increasing precedence) defaults, the config
// file, a .env file and UNIBOT_* environment variables. An empty path searches
// the default locations.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/unibot")
	}

	v.SetEnvPrefix("UNIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "hashing", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "hashing" && c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval topK must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Institution.ShortName == "" {
		return errors.New("institution shortName is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.rateLimitPerMinute", 60)
	v.SetDefault("server.maxMessageLength", 4000)
	v.SetDefault("server.allowedOrigins", []string{"*"})

	v.SetDefault("sources.jsonPath", "./data/structured_text_data.json")
	v.SetDefault("sources.csvPath", "./data/full_text_data.csv")
	v.SetDefault("sources.faqPath", "./data/imp_questions.json")
	v.SetDefault("sources.textField", "extracted_text")
	v.SetDefault("sources.csvSection", "KMIT Website")

	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.baseURL", "")

	v.SetDefault("retrieval.topK", 5)
	v.SetDefault("retrieval.threshold", 0.5)

	v.SetDefault("sqlite.path", "./data/queries.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.systemPrompt", "You are a helpful assistant.")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.maxTokens", 0)
	v.SetDefault("llm.timeoutSec", 60)

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.googleAPIKey", "")
	v.SetDefault("search.googleCX", "")
	v.SetDefault("search.serpAPIKey", "")
	v.SetDefault("search.maxResults", 3)
	v.SetDefault("search.timeoutSec", 10)
	v.SetDefault("search.delayMs", 2000)

	v.SetDefault("institution.shortName", "KMIT")
	v.SetDefault("institution.fullForm", "KMIT stands for Keshav Memorial Institute of Technology, located in Narayanguda, Hyderabad.")
	v.SetDefault("institution.hint", "(When answering, note that 'KMIT' refers to Keshav Memorial Institute of Technology, located in Narayanguda, Hyderabad. Tailor responses accordingly.)")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
