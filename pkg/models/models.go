// Package models defines the shared data model for the Diagnon diagnosis service.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ── Patient Input ────────────────────────────────────────────

// Gender is the patient gender accepted by the diagnosis pipeline.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// MaxPatientAge bounds the accepted patient age.
const MaxPatientAge = 100

// PatientQuery is the validated patient input for a diagnosis request.
// All three fields must be present before the diagnosis tool may run.
type PatientQuery struct {
	Age      int      `json:"age"`
	Gender   Gender   `json:"gender"`
	Symptoms []string `json:"symptoms"`
}

// Validate checks the schema-level invariants of the query.
func (q PatientQuery) Validate() error {
	if q.Age <= 0 || q.Age > MaxPatientAge {
		return fmt.Errorf("age must be between 1 and %d, got %d", MaxPatientAge, q.Age)
	}
	if q.Gender != GenderMale && q.Gender != GenderFemale {
		return fmt.Errorf("gender must be %q or %q, got %q", GenderMale, GenderFemale, q.Gender)
	}
	if len(q.Symptoms) == 0 {
		return fmt.Errorf("at least one symptom is required")
	}
	for i, s := range q.Symptoms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("symptom %d is empty", i)
		}
	}
	return nil
}

// SymptomsQuery joins the symptoms into a single retrieval query string.
func (q PatientQuery) SymptomsQuery() string {
	return strings.Join(q.Symptoms, ", ")
}

// String serializes the query for guardrail screening and prompting.
func (q PatientQuery) String() string {
	return fmt.Sprintf("Gender: %s, age: %d, symptoms: %s.", q.Gender, q.Age, q.SymptomsQuery())
}

// ── Diagnosis Output ─────────────────────────────────────────

// Disease is a single ranked differential diagnosis entry.
type Disease struct {
	Name      string `json:"name"`
	ICDCode   string `json:"icd_code"`
	Reasoning string `json:"reasoning"`
}

// MaxDiseases is the maximum number of entries in a diagnosis result.
const MaxDiseases = 3

// DiagnoseResponse is the structured result of the diagnosis pipeline.
// PossibleDiseases is ordered most-probable first, holds at most
// MaxDiseases entries and may be empty when no candidate grounds.
type DiagnoseResponse struct {
	PossibleDiseases []Disease `json:"possible_diseases"`
}

// ── Retrieval ────────────────────────────────────────────────

// RetrievedDocument is one knowledge-base record returned by the retriever.
// Immutable once retrieved; Metadata carries at least "disease" and "source".
type RetrievedDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score,omitempty"`
}

// DiseaseDocument is a preprocessed corpus record ready for ingestion.
type DiseaseDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// ── Conversation ─────────────────────────────────────────────

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// ── Model Usage & Metrics ────────────────────────────────────

// TokenUsage is the token accounting reported by a model call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Metric statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusDenied  = "denied"
)

// MetricsRecord is one append-only observation of an operation.
// Write-only: the core emits records and never reads them back.
type MetricsRecord struct {
	Operation   string        `json:"operation"`
	Status      string        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Tool        string        `json:"tool,omitempty"`
	ToolInvoked bool          `json:"tool_invoked,omitempty"`
	RetrieveMs  int64         `json:"retrieve_ms,omitempty"`
	RerankMs    int64         `json:"rerank_ms,omitempty"`
	ModelMs     int64         `json:"model_ms,omitempty"`
	Usage       TokenUsage    `json:"usage"`
}

// ── API Errors ───────────────────────────────────────────────

// ErrorResponse is the uniform error body for the HTTP surface.
type ErrorResponse struct {
	Error string `json:"error"`
}
