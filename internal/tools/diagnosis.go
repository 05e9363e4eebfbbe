// Package tools contains the concrete tool implementations exposed to the
// conversational agent through the dispatcher's allow-list.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/dispatch"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// DiagnosisToolName is the allow-list key for the diagnosis capability.
const DiagnosisToolName = "get_diagnosis_tool"

// DiagnosisTool calls the external diagnosis capability over HTTP. It is the
// only place where the generic dispatcher meets domain semantics: it validates
// business-level preconditions beyond generic sanitation and maps transport
// failures to the dispatcher taxonomy.
type DiagnosisTool struct {
	url    string
	client *http.Client
}

// NewDiagnosisTool creates the adapter for the given diagnose endpoint.
func NewDiagnosisTool(url string) *DiagnosisTool {
	return &DiagnosisTool{
		url: url,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Call implements dispatch.Tool. Arguments arrive already sanitized by the
// dispatcher; this layer checks the domain invariants.
func (t *DiagnosisTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query, err := parseQuery(args)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, dispatch.ExecutionError(DiagnosisToolName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, dispatch.ExecutionError(DiagnosisToolName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, dispatch.ExecutionError(DiagnosisToolName, fmt.Errorf("diagnose request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dispatch.ExecutionError(DiagnosisToolName, fmt.Errorf("read diagnose response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dispatch.ExecutionError(DiagnosisToolName,
			fmt.Errorf("diagnose API returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, dispatch.ExecutionError(DiagnosisToolName, fmt.Errorf("decode diagnose response: %w", err))
	}

	log.Info().
		Int("age", query.Age).
		Str("gender", string(query.Gender)).
		Int("symptoms", len(query.Symptoms)).
		Msg("diagnosis tool call complete")

	return result, nil
}

// parseQuery extracts and validates a PatientQuery from dispatcher args.
// Every violation is a KindValidation error so the orchestrator can react
// uniformly.
func parseQuery(args map[string]any) (*models.PatientQuery, error) {
	age, err := intArg(args, "age")
	if err != nil {
		return nil, err
	}
	if age <= 0 || age > models.MaxPatientAge {
		return nil, dispatch.ValidationError(DiagnosisToolName, "age must be a positive integer up to %d, got %d", models.MaxPatientAge, age)
	}

	gender, _ := args["gender"].(string)
	if gender != string(models.GenderMale) && gender != string(models.GenderFemale) {
		return nil, dispatch.ValidationError(DiagnosisToolName, "gender must be %q or %q", models.GenderMale, models.GenderFemale)
	}

	symptoms, err := stringsArg(args, "symptoms")
	if err != nil {
		return nil, err
	}
	if len(symptoms) == 0 {
		return nil, dispatch.ValidationError(DiagnosisToolName, "at least one symptom is required")
	}

	return &models.PatientQuery{
		Age:      age,
		Gender:   models.Gender(gender),
		Symptoms: symptoms,
	}, nil
}

// intArg reads an integer argument. JSON numbers decode as float64, so both
// representations are accepted.
func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, dispatch.ValidationError(DiagnosisToolName, "argument %q must be an integer", key)
	}
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, dispatch.ValidationError(DiagnosisToolName, "argument %q element %d must be a string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, dispatch.ValidationError(DiagnosisToolName, "argument %q must be a list of strings", key)
	}
}
