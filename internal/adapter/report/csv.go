package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"regbot/internal/domain"
)

// Columns is the fixed fact-score report header.
var Columns = []string{"id", "question", "answer", "fact_score", "retrieved_refs", "retrieved_sims"}

// WriteCSV writes rows to path, creating parent directories.
func WriteCSV(path string, rows []domain.EvaluationRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if err := Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes rows as CSV with the fixed header.
func Write(w io.Writer, rows []domain.EvaluationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.ID),
			row.Question,
			row.Answer,
			FormatScore(row.FactScore),
			strings.Join(row.RetrievedRefs, ", "),
			strings.Join(row.RetrievedSims, ", "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatScore renders a fact score with 3 decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 3, 64)
}
