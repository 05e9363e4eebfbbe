package rerank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/medkit-ai/diagnon/internal/rerank"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// mapReranker scores candidates from a fixed table.
type mapReranker struct {
	scores map[string]float64
	err    error
}

func (r *mapReranker) Score(ctx context.Context, query, candidate string) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.scores[candidate], nil
}

func docs(contents ...string) []models.RetrievedDocument {
	out := make([]models.RetrievedDocument, len(contents))
	for i, c := range contents {
		out[i] = models.RetrievedDocument{Content: c}
	}
	return out
}

func TestTopK_OrdersByScore(t *testing.T) {
	r := &mapReranker{scores: map[string]float64{"a": 0.1, "b": 0.9, "c": 0.5}}

	ranked, err := rerank.TopK(context.Background(), r, "q", docs("a", "b", "c"), 2)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].Content != "b" || ranked[1].Content != "c" {
		t.Errorf("order = [%s %s], want [b c]", ranked[0].Content, ranked[1].Content)
	}
	if ranked[0].Score != 0.9 {
		t.Errorf("score = %v, want 0.9", ranked[0].Score)
	}
}

func TestTopK_StableOnTies(t *testing.T) {
	// Equal scores keep retriever order.
	r := &mapReranker{scores: map[string]float64{"a": 0.5, "b": 0.5, "c": 0.5}}

	ranked, err := rerank.TopK(context.Background(), r, "q", docs("a", "b", "c"), 3)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].Content != want {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].Content, want)
		}
	}
}

func TestTopK_EmptyInput(t *testing.T) {
	ranked, err := rerank.TopK(context.Background(), &mapReranker{}, "q", nil, 5)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("len = %d, want 0", len(ranked))
	}
}

func TestTopK_ScoreError(t *testing.T) {
	r := &mapReranker{err: errors.New("rerank endpoint down")}

	_, err := rerank.TopK(context.Background(), r, "q", docs("a"), 1)
	if err == nil {
		t.Fatal("TopK() error = nil, want score error")
	}
}
