// Package retrieval implements the disease knowledge base on an embedded
// vector store (chromem-go) with pluggable embedding drivers.
package retrieval

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/config"
	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// Store is the vector-backed disease corpus. Implements contracts.Retriever.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewStore opens (or creates) the vector store. With a persist path the
// collection survives restarts; without one it lives in memory.
func NewStore(cfg config.CorpusConfig, embedder contracts.EmbeddingDriver) (*Store, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		persistFile := filepath.Join(cfg.PersistPath, "chromem.gob")
		db, err = chromem.NewPersistentDB(persistFile, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return vectors[0], nil
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", cfg.Collection, err)
	}

	log.Info().
		Str("collection", cfg.Collection).
		Str("embedder", embedder.Kind()).
		Int("documents", collection.Count()).
		Msg("vector store ready")

	return &Store{db: db, collection: collection}, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Add ingests prepared documents into the collection.
func (s *Store) Add(ctx context.Context, docs []models.DiseaseDocument) error {
	for i, doc := range docs {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:       uuid.NewString(),
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %d (%s): %w", i, doc.Metadata["disease"], err)
		}
	}
	log.Info().Int("documents", len(docs)).Msg("corpus ingested")
	return nil
}

// Search returns up to k documents ranked by similarity to query.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make([]models.RetrievedDocument, len(results))
	for i, r := range results {
		docs[i] = models.RetrievedDocument{
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    float64(r.Similarity),
		}
	}
	return docs, nil
}
