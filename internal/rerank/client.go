// Package rerank provides cross-encoder relevance scoring for retrieved
// documents. Coarse vector retrieval over-fetches candidates; the reranker
// re-scores each (query, document) pair and the pipeline keeps the top k.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPReranker implements contracts.Reranker against a rerank API
// (Jina/Cohere-style POST /rerank with query + documents).
type HTTPReranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPReranker creates a reranker for the given endpoint and model.
func NewHTTPReranker(endpoint, apiKey, model string) *HTTPReranker {
	return &HTTPReranker{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns the relevance of candidate to query. Higher is more
// relevant.
func (r *HTTPReranker) Score(ctx context.Context, query, candidate string) (float64, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: []string{candidate},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("rerank API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Results) == 0 {
		return 0, fmt.Errorf("rerank API returned no results")
	}
	return result.Results[0].RelevanceScore, nil
}
