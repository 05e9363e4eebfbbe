package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/medkit-ai/diagnon/pkg/models"
)

// LoadJSONL reads prepared documents from a JSON-lines file
// (one {"content": ..., "metadata": ...} object per line).
func LoadJSONL(path string) ([]models.DiseaseDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open documents: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f)
}

// ReadJSONL decodes documents line by line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]models.DiseaseDocument, error) {
	var docs []models.DiseaseDocument
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc models.DiseaseDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}

// WriteJSONL serializes documents one JSON object per line.
func WriteJSONL(w io.Writer, docs []models.DiseaseDocument) error {
	enc := json.NewEncoder(w)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	return nil
}
