package retrieval

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/config"
	"github.com/medkit-ai/diagnon/internal/dataset"
)

// Bootstrap fills an empty store from the corpus files. A persisted,
// non-empty collection is reused as-is. The prepared JSONL is preferred;
// the raw CSV is the fallback.
func Bootstrap(ctx context.Context, store *Store, cfg config.CorpusConfig) error {
	if store.Count() > 0 {
		log.Info().Int("documents", store.Count()).Msg("loading existing vector store")
		return nil
	}

	if cfg.JSONLPath != "" {
		if _, err := os.Stat(cfg.JSONLPath); err == nil {
			docs, err := dataset.LoadJSONL(cfg.JSONLPath)
			if err != nil {
				return fmt.Errorf("load prepared documents: %w", err)
			}
			return store.Add(ctx, docs)
		}
	}

	docs, err := dataset.LoadCSV(cfg.CSVPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	return store.Add(ctx, docs)
}
