// Package contracts defines the service interfaces of the Diagnon core.
//
// The core components (guardrails, dispatcher, orchestrator, assistant) only
// depend on these interfaces. Concrete drivers live in internal/llm,
// internal/embeddings, internal/rerank and internal/retrieval, so swapping a
// provider is a single line change in the wiring code (pkg/server).
package contracts

import (
	"context"

	"github.com/medkit-ai/diagnon/pkg/models"
)

// ── Retrieval ────────────────────────────────────────────────

// Retriever performs semantic search over the disease knowledge base.
type Retriever interface {
	// Search returns up to k documents ranked by similarity to query.
	Search(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)
}

// Reranker scores a (query, candidate) pair with a finer-grained relevance
// model than the retriever. Higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query, candidate string) (float64, error)
}

// EmbeddingDriver generates vector embeddings for texts.
type EmbeddingDriver interface {
	// Kind returns the driver identifier (e.g. "ollama", "openai").
	Kind() string

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Embed generates one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ── Generative Models ────────────────────────────────────────

// Completion is the result of a free-text model call.
type Completion struct {
	Content string
	Usage   models.TokenUsage
}

// ChatModel generates a free-text response over a conversation history.
type ChatModel interface {
	Generate(ctx context.Context, messages []models.ChatMessage) (*Completion, error)
}

// StructuredModel generates a response constrained to a declared schema.
// The decoded value is written into out, which must be a pointer.
type StructuredModel interface {
	GenerateStructured(ctx context.Context, messages []models.ChatMessage, out any) (models.TokenUsage, error)
}

// ── Observability ────────────────────────────────────────────

// MetricsSink receives append-only operation records. Implementations must
// never block the caller on slow IO paths.
type MetricsSink interface {
	Emit(rec models.MetricsRecord)
}
