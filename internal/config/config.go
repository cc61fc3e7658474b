package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	ChatCache ChatCacheConfig
	Profile   ProfileConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	EmbeddingBaseURL  string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	LLMProvider       string // "ollama" or "huggingface"
	LLMBaseURL        string
	LLMModel          string
	LLMAPIKey         string
}

type RetrievalConfig struct {
	HybridEnabled      bool
	VectorWeight       float64
	KeywordWeight      float64
	MaxResults         int
	RerankEnabled      bool
	RelevanceWeight    float64
	DiversityWeight    float64
	MaxRerankedResults int
}

type ChatCacheConfig struct {
	Enabled              bool
	Backend              string // "redis" or "memory"
	MaxConversationTurns int
	TTLHours             int
}

type ProfileConfig struct {
	TemplateEnabled bool
	TemplatePreset  string // standard, minimal, detailed
	ExampleCount    int
	CustomPrefix    string
	CustomSuffix    string
	// Sections disabled on top of the preset, e.g. "workflow,examples".
	DisabledSections []string
	QueryCap         int
	TopicName        string
	// Field prompts and model outputs go here, away from the console log.
	AuditLogPath string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/ragone.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		},
		Retrieval: RetrievalConfig{
			HybridEnabled:      getEnvAsBool("RETRIEVAL_HYBRID_ENABLED", false),
			VectorWeight:       getEnvAsFloat("RETRIEVAL_VECTOR_WEIGHT", 0.7),
			KeywordWeight:      getEnvAsFloat("RETRIEVAL_KEYWORD_WEIGHT", 0.3),
			MaxResults:         getEnvAsInt("RETRIEVAL_MAX_RESULTS", 10),
			RerankEnabled:      getEnvAsBool("RETRIEVAL_RERANK_ENABLED", true),
			RelevanceWeight:    getEnvAsFloat("RERANK_RELEVANCE_WEIGHT", 0.9),
			DiversityWeight:    getEnvAsFloat("RERANK_DIVERSITY_WEIGHT", 0.1),
			MaxRerankedResults: getEnvAsInt("RERANK_MAX_RESULTS", 5),
		},
		ChatCache: ChatCacheConfig{
			Enabled:              getEnvAsBool("CHAT_CACHE_ENABLED", true),
			Backend:              getEnv("CHAT_CACHE_BACKEND", "redis"),
			MaxConversationTurns: getEnvAsInt("CHAT_MAX_CONVERSATION_TURNS", 10),
			TTLHours:             getEnvAsInt("CHAT_SESSION_TTL_HOURS", 24),
		},
		Profile: ProfileConfig{
			TemplateEnabled:  getEnvAsBool("PROFILE_TEMPLATE_ENABLED", true),
			TemplatePreset:   getEnv("PROFILE_TEMPLATE_PRESET", "standard"),
			ExampleCount:     getEnvAsInt("PROFILE_EXAMPLE_COUNT", 0),
			CustomPrefix:     getEnv("PROFILE_CUSTOM_PREFIX", ""),
			CustomSuffix:     getEnv("PROFILE_CUSTOM_SUFFIX", ""),
			DisabledSections: getEnvAsList("PROFILE_DISABLED_SECTIONS"),
			QueryCap:         getEnvAsInt("PROFILE_QUERY_CAP", 5),
			TopicName:        getEnv("PROFILE_GENERATION_TOPIC_NAME", "GENERATE_CHARACTER_PROFILE"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ragone-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

var knownSections = map[string]bool{
	"basic_info":         true,
	"personality_traits": true,
	"workflow":           true,
	"speaking_style":     true,
	"background_setting": true,
	"interaction_rules":  true,
	"examples":           true,
}

// Validate reports every malformed value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Connection == "" {
		errs = append(errs, errors.New("DB_CONNECTION_STRING is required"))
	}
	if c.App.JwtSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	r := c.Retrieval
	if r.VectorWeight < 0 || r.KeywordWeight < 0 || r.RelevanceWeight < 0 || r.DiversityWeight < 0 {
		errs = append(errs, errors.New("retrieval weights must not be negative"))
	}
	if r.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_MAX_RESULTS must be at least 1, got %d", r.MaxResults))
	}
	if r.MaxRerankedResults < 1 {
		errs = append(errs, fmt.Errorf("RERANK_MAX_RESULTS must be at least 1, got %d", r.MaxRerankedResults))
	}

	cc := c.ChatCache
	if cc.MaxConversationTurns < 1 {
		errs = append(errs, fmt.Errorf("CHAT_MAX_CONVERSATION_TURNS must be at least 1, got %d", cc.MaxConversationTurns))
	}
	if cc.TTLHours < 1 {
		errs = append(errs, fmt.Errorf("CHAT_SESSION_TTL_HOURS must be at least 1, got %d", cc.TTLHours))
	}
	if cc.Backend != "redis" && cc.Backend != "memory" {
		errs = append(errs, fmt.Errorf("unknown CHAT_CACHE_BACKEND %q", cc.Backend))
	}

	p := c.Profile
	switch p.TemplatePreset {
	case "standard", "minimal", "detailed":
	default:
		errs = append(errs, fmt.Errorf("unknown PROFILE_TEMPLATE_PRESET %q", p.TemplatePreset))
	}
	// 0 keeps the preset's count
	if p.ExampleCount != 0 && (p.ExampleCount < 1 || p.ExampleCount > 10) {
		errs = append(errs, fmt.Errorf("PROFILE_EXAMPLE_COUNT must be between 1 and 10, got %d", p.ExampleCount))
	}
	for _, s := range p.DisabledSections {
		if !knownSections[s] {
			errs = append(errs, fmt.Errorf("unknown profile section %q", s))
		}
	}
	if p.QueryCap < 1 {
		errs = append(errs, fmt.Errorf("PROFILE_QUERY_CAP must be at least 1, got %d", p.QueryCap))
	}

	if t := c.Tracing; t.Enabled && (t.SampleRatio < 0 || t.SampleRatio > 1) {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", t.SampleRatio))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
