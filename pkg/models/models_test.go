package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/medkit-ai/diagnon/pkg/models"
)

func TestPatientQuery_Validate(t *testing.T) {
	valid := models.PatientQuery{Age: 30, Gender: models.GenderFemale, Symptoms: []string{"cough"}}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate(valid) = %v, want nil", err)
	}

	cases := []struct {
		name  string
		query models.PatientQuery
	}{
		{"zero age", models.PatientQuery{Age: 0, Gender: models.GenderMale, Symptoms: []string{"cough"}}},
		{"negative age", models.PatientQuery{Age: -5, Gender: models.GenderMale, Symptoms: []string{"cough"}}},
		{"age above bound", models.PatientQuery{Age: models.MaxPatientAge + 1, Gender: models.GenderMale, Symptoms: []string{"cough"}}},
		{"unknown gender", models.PatientQuery{Age: 30, Gender: "other", Symptoms: []string{"cough"}}},
		{"no symptoms", models.PatientQuery{Age: 30, Gender: models.GenderMale}},
		{"blank symptom", models.PatientQuery{Age: 30, Gender: models.GenderMale, Symptoms: []string{"cough", "  "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.query.Validate(); err == nil {
				t.Errorf("Validate(%+v) = nil, want error", tc.query)
			}
		})
	}
}

func TestPatientQuery_String(t *testing.T) {
	q := models.PatientQuery{Age: 42, Gender: models.GenderMale, Symptoms: []string{"cough", "fever"}}

	s := q.String()
	if s != "Gender: male, age: 42, symptoms: cough, fever." {
		t.Errorf("String() = %q", s)
	}
	if q.SymptomsQuery() != "cough, fever" {
		t.Errorf("SymptomsQuery() = %q", q.SymptomsQuery())
	}
}

func TestTokenUsage_Add(t *testing.T) {
	u := models.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	u.Add(models.TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})

	if u.InputTokens != 11 || u.OutputTokens != 7 || u.TotalTokens != 18 {
		t.Errorf("Add() = %+v", u)
	}
}

func TestMetricsRecord_AlwaysCarriesUsage(t *testing.T) {
	// Zero usage still lands on the wire; aggregation scripts key on the
	// field being present.
	rec := models.MetricsRecord{Operation: "diagnose", Status: models.StatusSuccess}
	encoded, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(encoded), `"usage"`) {
		t.Errorf("encoded = %s, want a usage field", encoded)
	}
}

func TestDisease_JSONShape(t *testing.T) {
	// The wire field is icd_code, not ICDCode.
	d := models.Disease{Name: "Influenza", ICDCode: "J11", Reasoning: "match"}
	encoded, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(encoded), `"icd_code":"J11"`) {
		t.Errorf("encoded = %s", encoded)
	}
}
