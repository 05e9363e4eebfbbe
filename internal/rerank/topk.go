package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// TopK scores every document against the query and returns the k best,
// highest score first. The sort is stable, so retriever order is preserved
// among equal scores.
func TopK(ctx context.Context, r contracts.Reranker, query string, docs []models.RetrievedDocument, k int) ([]models.RetrievedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	scored := make([]models.RetrievedDocument, len(docs))
	for i, doc := range docs {
		score, err := r.Score(ctx, query, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("score document %d: %w", i, err)
		}
		doc.Score = score
		scored[i] = doc
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}
