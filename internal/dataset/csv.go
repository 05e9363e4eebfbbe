// Package dataset turns the disease/symptom CSV into documents for the
// knowledge base.
//
// The CSV layout: one row per disease with a "prognosis" column, an
// "icd_code" column, and one column per symptom holding the probability (in
// percent) that the symptom appears with the disease. Zero means the symptom
// does not occur.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/pkg/models"
)

const (
	colPrognosis = "prognosis"
	colICDCode   = "icd_code"
)

// LoadCSV reads the dataset file and prepares one document per disease.
func LoadCSV(path string) ([]models.DiseaseDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	docs, err := PrepareDocs(f, path)
	if err != nil {
		return nil, fmt.Errorf("prepare documents from %s: %w", path, err)
	}
	return docs, nil
}

// PrepareDocs parses CSV rows into documents with disease/ICD metadata.
// Each document lists the disease's symptoms with their probabilities of
// appearance, which is the text the retriever matches symptoms against.
func PrepareDocs(r io.Reader, source string) ([]models.DiseaseDocument, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	prognosisIdx, icdIdx := -1, -1
	for i, col := range header {
		switch col {
		case colPrognosis:
			prognosisIdx = i
		case colICDCode:
			icdIdx = i
		}
	}
	if prognosisIdx < 0 || icdIdx < 0 {
		return nil, fmt.Errorf("dataset is missing %q or %q column", colPrognosis, colICDCode)
	}

	var docs []models.DiseaseDocument
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		disease := row[prognosisIdx]
		icdCode := row[icdIdx]

		lines := []string{
			fmt.Sprintf("Disease: %s ICD CODE: %s", disease, icdCode),
			"Symptoms and probabilities of appearance:",
		}
		for i, cell := range row {
			if i == prognosisIdx || i == icdIdx {
				continue
			}
			prob, err := strconv.ParseFloat(cell, 64)
			if err != nil || prob <= 0 {
				continue
			}
			symptom := strings.ReplaceAll(header[i], "_", " ")
			lines = append(lines, fmt.Sprintf("- %s %g%%", symptom, prob))
		}

		docs = append(docs, models.DiseaseDocument{
			Content: strings.Join(lines, "\n"),
			Metadata: map[string]string{
				"disease":  disease,
				"icd_code": icdCode,
				"source":   source,
			},
		})
	}

	log.Info().Int("documents", len(docs)).Str("source", source).Msg("disease documents prepared")
	return docs, nil
}
