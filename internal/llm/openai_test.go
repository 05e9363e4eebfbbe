package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medkit-ai/diagnon/internal/llm"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// chatEndpoint fakes an OpenAI-compatible /chat/completions endpoint that
// always answers with content.
func chatEndpoint(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1",
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 7,
				"total_tokens":      19,
			},
		})
	}))
}

func TestGenerate(t *testing.T) {
	var captured map[string]any
	server := chatEndpoint(t, "Could you tell me your age?", &captured)
	defer server.Close()

	driver := llm.NewOpenAIDriver(server.URL, "test-key", "gpt-4o-mini")
	completion, err := driver.Generate(context.Background(), []models.ChatMessage{
		{Role: models.RoleSystem, Content: "collect patient data"},
		{Role: models.RoleUser, Content: "I feel sick"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if completion.Content != "Could you tell me your age?" {
		t.Errorf("content = %q", completion.Content)
	}
	if completion.Usage.TotalTokens != 19 {
		t.Errorf("usage = %+v, want 19 total tokens", completion.Usage)
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Errorf("request model = %v", captured["model"])
	}
	if _, ok := captured["response_format"]; ok {
		t.Error("free-text call must not set response_format")
	}
}

func TestGenerateStructured(t *testing.T) {
	var captured map[string]any
	server := chatEndpoint(t, `{"possible_diseases": [{"name": "Influenza", "icd_code": "J11", "reasoning": "match"}]}`, &captured)
	defer server.Close()

	driver := llm.NewOpenAIDriver(server.URL, "", "gpt-4o-mini")
	var out models.DiagnoseResponse
	usage, err := driver.GenerateStructured(context.Background(), []models.ChatMessage{
		{Role: models.RoleUser, Content: "diagnose"},
	}, &out)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}

	if len(out.PossibleDiseases) != 1 || out.PossibleDiseases[0].ICDCode != "J11" {
		t.Errorf("decoded = %+v", out)
	}
	if usage.TotalTokens != 19 {
		t.Errorf("usage = %+v", usage)
	}

	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", captured["response_format"])
	}
}

func TestGenerateStructured_RepairsAlmostJSON(t *testing.T) {
	// Trailing comma: invalid JSON that the repair pass should fix.
	server := chatEndpoint(t, `{"possible_diseases": [{"name": "Influenza", "icd_code": "J11", "reasoning": "match"},],}`, nil)
	defer server.Close()

	driver := llm.NewOpenAIDriver(server.URL, "", "gpt-4o-mini")
	var out models.DiagnoseResponse
	if _, err := driver.GenerateStructured(context.Background(), nil, &out); err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if len(out.PossibleDiseases) != 1 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	driver := llm.NewOpenAIDriver(server.URL, "", "gpt-4o-mini")
	if _, err := driver.Generate(context.Background(), nil); err == nil {
		t.Fatal("Generate() error = nil, want upstream error")
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	driver := llm.NewOpenAIDriver(server.URL, "", "gpt-4o-mini")
	if _, err := driver.Generate(context.Background(), nil); err == nil {
		t.Fatal("Generate() error = nil, want no-choices error")
	}
}
