// Package metrics provides the append-only metrics stream.
//
// The core emits one MetricsRecord per operation (tool dispatch, chat turn,
// diagnosis pipeline run) and never reads records back. Records are written
// as JSON lines to a dedicated file, separate from the application log.
package metrics

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// FileSink writes one JSON line per record to a metrics file.
type FileSink struct {
	logger zerolog.Logger
	file   *os.File
}

// NewFileSink opens (or creates) the metrics file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{
		logger: zerolog.New(f).With().Timestamp().Logger(),
		file:   f,
	}, nil
}

// Emit appends one record. Failures are logged, never propagated: metrics
// must not break the operation they observe.
func (s *FileSink) Emit(rec models.MetricsRecord) {
	ev := s.logger.Info().
		Str("operation", rec.Operation).
		Str("status", rec.Status).
		Dur("duration", rec.Duration)
	if rec.Tool != "" {
		ev = ev.Str("tool", rec.Tool)
	}
	if rec.ToolInvoked {
		ev = ev.Bool("tool_invoked", true)
	}
	if rec.RetrieveMs > 0 {
		ev = ev.Int64("retrieve_ms", rec.RetrieveMs)
	}
	if rec.RerankMs > 0 {
		ev = ev.Int64("rerank_ms", rec.RerankMs)
	}
	if rec.ModelMs > 0 {
		ev = ev.Int64("model_ms", rec.ModelMs)
	}
	if rec.Usage.TotalTokens > 0 {
		ev = ev.Int64("input_tokens", rec.Usage.InputTokens).
			Int64("output_tokens", rec.Usage.OutputTokens).
			Int64("total_tokens", rec.Usage.TotalTokens)
	}
	ev.Msg("metric")
}

// Close releases the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// NopSink discards all records. Used in tests and as a safe fallback when
// the metrics file cannot be opened.
type NopSink struct{}

func (NopSink) Emit(models.MetricsRecord) {}

// Open returns a FileSink for path, or a NopSink when the file cannot be
// opened. The server keeps running without metrics rather than failing.
func Open(path string) contracts.MetricsSink {
	s, err := NewFileSink(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("metrics sink unavailable, discarding records")
		return NopSink{}
	}
	return s
}
