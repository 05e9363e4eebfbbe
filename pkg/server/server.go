// Package server provides the public entry point for initializing the
// Diagnon diagnosis server.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/agent"
	"github.com/medkit-ai/diagnon/internal/api"
	"github.com/medkit-ai/diagnon/internal/api/handlers"
	"github.com/medkit-ai/diagnon/internal/assistant"
	"github.com/medkit-ai/diagnon/internal/config"
	"github.com/medkit-ai/diagnon/internal/dispatch"
	"github.com/medkit-ai/diagnon/internal/embeddings"
	"github.com/medkit-ai/diagnon/internal/llm"
	"github.com/medkit-ai/diagnon/internal/metrics"
	"github.com/medkit-ai/diagnon/internal/rerank"
	"github.com/medkit-ai/diagnon/internal/retrieval"
	"github.com/medkit-ai/diagnon/internal/sessions"
	"github.com/medkit-ai/diagnon/internal/telemetry"
	"github.com/medkit-ai/diagnon/internal/tools"
	"github.com/medkit-ai/diagnon/pkg/contracts"
)

// Server holds the initialized diagnosis service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the loaded server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from the environment and returns a ready
// Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	sink := metrics.Open(cfg.Metrics.Path)

	embedder, err := embeddings.FromConfig(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embeddings: %w", err)
	}

	store, err := retrieval.NewStore(cfg.Corpus, embedder)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := retrieval.Bootstrap(ctx, store, cfg.Corpus); err != nil {
		return nil, fmt.Errorf("bootstrap corpus: %w", err)
	}

	var reranker contracts.Reranker
	if cfg.Rerank.Endpoint != "" {
		reranker = rerank.NewHTTPReranker(cfg.Rerank.Endpoint, cfg.Rerank.APIKey, cfg.Rerank.Model)
		log.Info().Str("model", cfg.Rerank.Model).Msg("reranker enabled")
	}

	diagModel := llm.NewOpenAIDriver(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model)
	agentModel := llm.NewOpenAIDriver(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.AgentModel)

	diagnoser := assistant.New(store, reranker, diagModel, sink)

	dispatcher := dispatch.New(sink)
	registry := dispatch.Registry{
		tools.DiagnosisToolName: tools.NewDiagnosisTool(cfg.Tools.DiagnoseURL).Call,
	}

	sessionStore := sessions.NewStore(func() *agent.Agent {
		return agent.New(agentModel, dispatcher, registry, cfg.Tools.Timeout, sink)
	})
	go sessionStore.Sweep(ctx, sessions.DefaultSweepInterval, sessions.DefaultMaxIdle)

	h := handlers.New(diagnoser, sessionStore)
	router := api.NewRouter(cfg, h)

	log.Info().
		Int("port", cfg.Port).
		Str("model", cfg.LLM.Model).
		Str("agent_model", cfg.LLM.AgentModel).
		Int("corpus", store.Count()).
		Msg("diagnosis service initialized")

	return &Server{
		Handler:      router,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
