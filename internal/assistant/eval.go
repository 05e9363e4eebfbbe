package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/rerank"
	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// RecallReport summarizes a retrieval recall@k evaluation run.
type RecallReport struct {
	SampleSize int     `json:"sample_size"`
	K          int     `json:"k"`
	Reranked   bool    `json:"reranked"`
	Hits       int     `json:"hits"`
	Recall     float64 `json:"recall"`
}

// EvaluateRecall measures how often the retriever (optionally followed by
// the reranker) surfaces a disease's own document when queried with that
// disease's symptoms. docs is the prepared corpus; sampleSize diseases are
// drawn with the given seed so runs are reproducible. The run is reported
// to sink as one "recall_eval" record.
func EvaluateRecall(ctx context.Context, retriever contracts.Retriever, reranker contracts.Reranker, sink contracts.MetricsSink, docs []models.DiseaseDocument, sampleSize, k int, seed int64) (*RecallReport, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}
	start := time.Now()
	if sampleSize <= 0 || sampleSize > len(docs) {
		sampleSize = len(docs)
	}

	rng := rand.New(rand.NewSource(seed))
	sample := rng.Perm(len(docs))[:sampleSize]

	report := &RecallReport{SampleSize: sampleSize, K: k, Reranked: reranker != nil}
	for _, idx := range sample {
		doc := docs[idx]
		disease := doc.Metadata["disease"]
		query := symptomsQuery(doc.Content)
		if query == "" {
			continue
		}

		fetchK := k
		if reranker != nil {
			fetchK = k * 2
		}
		retrieved, err := retriever.Search(ctx, query, fetchK)
		if err != nil {
			return nil, fmt.Errorf("search for %q: %w", disease, err)
		}
		if reranker != nil {
			retrieved, err = rerank.TopK(ctx, reranker, query, retrieved, k)
			if err != nil {
				return nil, fmt.Errorf("rerank for %q: %w", disease, err)
			}
		}

		if containsDisease(retrieved, disease) {
			report.Hits++
		} else {
			log.Debug().Str("disease", disease).Str("query", query).Msg("recall miss")
		}
	}

	report.Recall = float64(report.Hits) / float64(sampleSize)
	sink.Emit(models.MetricsRecord{
		Operation: "recall_eval",
		Status:    models.StatusSuccess,
		Duration:  time.Since(start),
	})
	log.Info().
		Int("sample", report.SampleSize).
		Int("k", report.K).
		Bool("reranked", report.Reranked).
		Float64("recall", report.Recall).
		Msg("recall evaluation complete")
	return report, nil
}

// symptomsQuery rebuilds a symptom query from a prepared document: every
// "- <symptom> <prob>%" line contributes its symptom name.
func symptomsQuery(content string) string {
	var symptoms []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "- "))
		if len(fields) == 0 {
			continue
		}
		if strings.HasSuffix(fields[len(fields)-1], "%") {
			fields = fields[:len(fields)-1]
		}
		if len(fields) > 0 {
			symptoms = append(symptoms, strings.Join(fields, " "))
		}
	}
	return strings.Join(symptoms, ", ")
}

func containsDisease(docs []models.RetrievedDocument, disease string) bool {
	for _, d := range docs {
		if strings.EqualFold(d.Metadata["disease"], disease) {
			return true
		}
	}
	return false
}
