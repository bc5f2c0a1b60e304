package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"regbot/internal/domain"
)

func TestWrite(t *testing.T) {
	rows := []domain.EvaluationRow{
		{
			ID:            1,
			Question:      "Posso trancar?",
			Answer:        "Sim, o regulamento PERMITE.\nBaseado no Art. 5",
			FactScore:     0.8,
			RetrievedRefs: []string{"chunk_1", "chunk_2"},
			RetrievedSims: []string{"chunk_1:0.612", "chunk_2:0.5"},
		},
		{ID: 3, Question: "zzz", Answer: "fallback", FactScore: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"1",
		"Posso trancar?",
		"Sim, o regulamento PERMITE.\nBaseado no Art. 5",
		"0.800",
		"chunk_1, chunk_2",
		"chunk_1:0.612, chunk_2:0.5",
	}, records[1])
	assert.Equal(t, []string{"3", "zzz", "fallback", "0.000", "", ""}, records[2])
}

func TestWriteCSV_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval", "out", "results.csv")
	require.NoError(t, WriteCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,question,answer,fact_score,retrieved_refs,retrieved_sims\n", string(data))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "1.000", FormatScore(1))
	assert.Equal(t, "0.333", FormatScore(1.0/3))
	assert.Equal(t, "0.000", FormatScore(0))
}
