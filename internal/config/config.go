package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CB_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CB_DB_MAX_CONNS" default:"8"`

	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"ollama"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIEmbdModel string `envconfig:"OPENAI_EMBED_MODEL" default:"text-embedding-3-small"`
	OllamaBaseURL   string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel     string `envconfig:"OLLAMA_MODEL" default:"llama3.1"`
	OllamaEmbdModel string `envconfig:"OLLAMA_EMBED_MODEL" default:"nomic-embed-text"`

	ChromaURL        string `envconfig:"CHROMA_URL" default:"http://localhost:8000"`
	ChromaCollection string `envconfig:"CHROMA_COLLECTION" default:"cannibal_posts"`

	DedupThreshold float64       `envconfig:"DEDUP_THRESHOLD" default:"0.85"`
	DedupWindow    time.Duration `envconfig:"DEDUP_WINDOW" default:"24h"`
	DedupTopK      int           `envconfig:"DEDUP_TOP_K" default:"5"`

	MaxChars      int    `envconfig:"MAX_CHARS" default:"4000"`
	QueueSize     int    `envconfig:"QUEUE_SIZE" default:"100"`
	Workers       int    `envconfig:"WORKERS" default:"4"`
	OutputPath    string `envconfig:"OUTPUT_PATH" default:"out.txt"`
	FilteredTerms string `envconfig:"FILTERED_TERMS" default:"подписывайтесь,розыгрыш,промокод,скидка,реклама"`

	ProfileSampleLimit     int           `envconfig:"PROFILE_SAMPLE_LIMIT" default:"50"`
	ProfileRefreshInterval time.Duration `envconfig:"PROFILE_REFRESH_INTERVAL" default:"0"`

	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"8s"`

	HTTPAddr           string `envconfig:"HTTP_ADDR" default:":8080"`
	RequireAPIKey      bool   `envconfig:"REQUIRE_API_KEY" default:"false"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CB_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CB_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CB_DB_MIN_CONNS (%d) cannot exceed CB_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	switch strings.ToLower(strings.TrimSpace(c.LLMProvider)) {
	case "openai", "ollama":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or ollama, got %q", c.LLMProvider)
	}
	if strings.TrimSpace(c.ChromaURL) == "" {
		return fmt.Errorf("CHROMA_URL is required")
	}
	if strings.TrimSpace(c.ChromaCollection) == "" {
		return fmt.Errorf("CHROMA_COLLECTION is required")
	}
	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be within [0, 1], got %v", c.DedupThreshold)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("DEDUP_WINDOW must be positive")
	}
	if c.DedupTopK < 1 {
		return fmt.Errorf("DEDUP_TOP_K must be >= 1")
	}
	if c.MaxChars < 1 {
		return fmt.Errorf("MAX_CHARS must be >= 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be >= 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	if c.ProfileSampleLimit < 1 {
		return fmt.Errorf("PROFILE_SAMPLE_LIMIT must be >= 1")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must be positive")
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY must be >= RETRY_BASE_DELAY")
	}
	return nil
}

// FilteredTermsList returns the lowercased, deduplicated ad-filter terms.
func (c *Config) FilteredTermsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.FilteredTerms, ",")
	terms := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		term := strings.ToLower(strings.TrimSpace(part))
		if term == "" {
			continue
		}
		if _, exists := seen[term]; exists {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
