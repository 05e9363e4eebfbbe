package dataset_test

import (
	"strings"
	"testing"

	"github.com/medkit-ai/diagnon/internal/dataset"
)

const sampleCSV = `prognosis,icd_code,high_fever,dry_cough,skin_rash
Influenza,J11,85.5,60,0
Measles,B05,70,0,95
`

func TestPrepareDocs(t *testing.T) {
	docs, err := dataset.PrepareDocs(strings.NewReader(sampleCSV), "test.csv")
	if err != nil {
		t.Fatalf("PrepareDocs() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}

	flu := docs[0]
	if !strings.Contains(flu.Content, "Disease: Influenza ICD CODE: J11") {
		t.Errorf("content header = %q", flu.Content)
	}
	if !strings.Contains(flu.Content, "Symptoms and probabilities of appearance:") {
		t.Errorf("content missing symptoms section: %q", flu.Content)
	}
	// Column names get their underscores replaced.
	if !strings.Contains(flu.Content, "- high fever 85.5%") {
		t.Errorf("content missing high fever line: %q", flu.Content)
	}
	if !strings.Contains(flu.Content, "- dry cough 60%") {
		t.Errorf("content missing dry cough line: %q", flu.Content)
	}
	// Zero-probability symptoms are omitted.
	if strings.Contains(flu.Content, "skin rash") {
		t.Errorf("zero-probability symptom must be skipped: %q", flu.Content)
	}

	if flu.Metadata["disease"] != "Influenza" || flu.Metadata["icd_code"] != "J11" || flu.Metadata["source"] != "test.csv" {
		t.Errorf("metadata = %v", flu.Metadata)
	}
}

func TestPrepareDocs_MissingColumns(t *testing.T) {
	_, err := dataset.PrepareDocs(strings.NewReader("disease,fever\nFlu,80\n"), "bad.csv")
	if err == nil {
		t.Fatal("PrepareDocs() error = nil, want missing-column error")
	}
}

func TestReadJSONL(t *testing.T) {
	input := `{"content": "Disease: Flu", "metadata": {"disease": "Flu"}}

{"content": "Disease: Measles", "metadata": {"disease": "Measles"}}
`
	docs, err := dataset.ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2 (blank line skipped)", len(docs))
	}
	if docs[1].Metadata["disease"] != "Measles" {
		t.Errorf("docs[1] = %+v", docs[1])
	}
}

func TestReadJSONL_BadLine(t *testing.T) {
	_, err := dataset.ReadJSONL(strings.NewReader("{\"content\": \"ok\"}\nnot json\n"))
	if err == nil {
		t.Fatal("ReadJSONL() error = nil, want decode error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %v, want line number", err)
	}
}
