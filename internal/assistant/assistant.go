// Package assistant implements the retrieval-augmented diagnosis pipeline:
// guardrail screening, semantic retrieval, optional reranking and a
// structured model call that grounds its answer in the retrieved context.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/guardrails"
	"github.com/medkit-ai/diagnon/internal/rerank"
	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

const (
	// DefaultFetchK is how many candidates the retriever over-fetches
	// before reranking narrows them down.
	DefaultFetchK = 12

	// DefaultTopK is how many documents reach the model context.
	DefaultTopK = 6
)

// Assistant is the diagnosis pipeline. Safe for concurrent use.
type Assistant struct {
	retriever contracts.Retriever
	reranker  contracts.Reranker // nil disables the rerank stage
	model     contracts.StructuredModel
	metrics   contracts.MetricsSink

	fetchK int
	topK   int
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithTopK overrides the retrieval depths.
func WithTopK(fetchK, topK int) Option {
	return func(a *Assistant) {
		a.fetchK = fetchK
		a.topK = topK
	}
}

// New builds the pipeline. reranker may be nil, in which case the
// retriever's own ranking is used directly.
func New(retriever contracts.Retriever, reranker contracts.Reranker, model contracts.StructuredModel, metrics contracts.MetricsSink, opts ...Option) *Assistant {
	a := &Assistant{
		retriever: retriever,
		reranker:  reranker,
		model:     model,
		metrics:   metrics,
		fetchK:    DefaultFetchK,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Diagnose runs the full pipeline for a validated patient query.
//
// The query is screened by the guardrails before any retrieval happens; a
// rejected query returns a *guardrails.SecurityError and touches neither
// the store nor the model. The returned list holds at most
// models.MaxDiseases entries, most probable first, and may be empty when
// no context disease matches.
func (a *Assistant) Diagnose(ctx context.Context, q models.PatientQuery) (*models.DiagnoseResponse, error) {
	start := time.Now()
	rec := models.MetricsRecord{Operation: "diagnose", Status: models.StatusSuccess}
	defer func() {
		rec.Duration = time.Since(start)
		a.metrics.Emit(rec)
	}()

	if err := guardrails.Check(q.String()); err != nil {
		rec.Status = models.StatusDenied
		return nil, err
	}

	query := q.SymptomsQuery()

	retrieveStart := time.Now()
	docs, err := a.retriever.Search(ctx, query, a.fetchK)
	rec.RetrieveMs = time.Since(retrieveStart).Milliseconds()
	if err != nil {
		rec.Status = models.StatusError
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	docs = a.narrowContext(ctx, query, docs, &rec)

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: buildUserPrompt(q, docs)},
	}

	var resp models.DiagnoseResponse
	modelStart := time.Now()
	usage, err := a.model.GenerateStructured(ctx, messages, &resp)
	rec.ModelMs = time.Since(modelStart).Milliseconds()
	rec.Usage = usage
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			rec.Status = models.StatusTimeout
		} else {
			rec.Status = models.StatusError
		}
		return nil, fmt.Errorf("generate diagnosis: %w", err)
	}

	if len(resp.PossibleDiseases) > models.MaxDiseases {
		resp.PossibleDiseases = resp.PossibleDiseases[:models.MaxDiseases]
	}

	log.Info().
		Int("context_docs", len(docs)).
		Int("diseases", len(resp.PossibleDiseases)).
		Int64("retrieve_ms", rec.RetrieveMs).
		Int64("model_ms", rec.ModelMs).
		Msg("diagnosis generated")
	return &resp, nil
}

// narrowContext reranks the over-fetched candidates down to topK. A rerank
// failure is not fatal: the retriever's own order is kept and the incident
// is logged.
func (a *Assistant) narrowContext(ctx context.Context, query string, docs []models.RetrievedDocument, rec *models.MetricsRecord) []models.RetrievedDocument {
	if a.reranker == nil || len(docs) == 0 {
		if len(docs) > a.topK {
			docs = docs[:a.topK]
		}
		return docs
	}

	rerankStart := time.Now()
	ranked, err := rerank.TopK(ctx, a.reranker, query, docs, a.topK)
	rec.RerankMs = time.Since(rerankStart).Milliseconds()
	if err != nil {
		log.Warn().Err(err).Msg("rerank failed, falling back to retriever order")
		if len(docs) > a.topK {
			docs = docs[:a.topK]
		}
		return docs
	}
	return ranked
}
