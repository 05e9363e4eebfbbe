package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Diagnon server.
type Config struct {
	Port      int
	Version   string
	Corpus    CorpusConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Rerank    RerankConfig
	Tools     ToolsConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

// CorpusConfig locates the disease knowledge base.
type CorpusConfig struct {
	CSVPath     string
	JSONLPath   string
	PersistPath string
	Collection  string
}

// LLMConfig configures the generative model endpoints.
type LLMConfig struct {
	Endpoint string
	APIKey   string
	// Model backs the structured diagnosis pipeline.
	Model string
	// AgentModel backs the conversational data-collection agent.
	AgentModel string
}

// EmbeddingConfig configures the embedding driver.
type EmbeddingConfig struct {
	Kind     string // "ollama" or "openai"
	Endpoint string
	APIKey   string
	Model    string
}

// RerankConfig configures the cross-encoder rerank endpoint.
// An empty endpoint disables reranking and the assistant falls back
// to retriever order.
type RerankConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ToolsConfig configures the tool dispatch layer.
type ToolsConfig struct {
	DiagnoseURL string
	Timeout     time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// MetricsConfig configures the append-only metrics stream.
type MetricsConfig struct {
	Path string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("DIAGNON_PORT", 8000),
		Version: envStr("DIAGNON_VERSION", "0.4.0"),
		Corpus: CorpusConfig{
			CSVPath:     envStr("DATASET_FILENAME", "dataset/processed/disease_symptoms.csv"),
			JSONLPath:   envStr("DOCS_FILENAME", "disease_docs/disease_documents.jsonl"),
			PersistPath: envStr("DB_PATH", "data/chroma"),
			Collection:  envStr("DB_COLLECTION", "diseases"),
		},
		LLM: LLMConfig{
			Endpoint:   envStr("LLM_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     envStr("LLM_API_KEY", ""),
			Model:      envStr("LLM_MODEL", "gpt-4o-mini"),
			AgentModel: envStr("AGENT_MODEL", "gpt-4o-mini"),
		},
		Embedding: EmbeddingConfig{
			Kind:     envStr("EMBEDDING_KIND", "ollama"),
			Endpoint: envStr("EMBEDDING_ENDPOINT", "http://localhost:11434"),
			APIKey:   envStr("EMBEDDING_API_KEY", ""),
			Model:    envStr("EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Rerank: RerankConfig{
			Endpoint: envStr("RERANK_ENDPOINT", ""),
			APIKey:   envStr("RERANK_API_KEY", ""),
			Model:    envStr("RERANK_MODEL", "ms-marco-MiniLM-L-6-v2"),
		},
		Tools: ToolsConfig{
			DiagnoseURL: envStr("DIAGNOSE_URL", "http://localhost:8000/diagnose"),
			Timeout:     envDuration("TOOL_TIMEOUT", 60*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "diagnon"),
		},
		Metrics: MetricsConfig{
			Path: envStr("METRICS_FILE", "logs/metrics.log"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
