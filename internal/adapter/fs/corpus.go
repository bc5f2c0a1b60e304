package fs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"regbot/internal/domain"
)

const maxLineSize = 16 * 1024 * 1024

// LoadChunks reads a JSONL chunk file into a ref -> text map.
// Blank lines and records without a ref are skipped.
func LoadChunks(path string) (domain.ChunkCorpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunks: %w", err)
	}
	defer f.Close()

	corpus := make(domain.ChunkCorpus)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec domain.ChunkRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid chunk record: %w", path, lineNo, err)
		}
		if rec.Ref == "" {
			continue
		}
		corpus[rec.Ref] = rec.Text
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	return corpus, nil
}

// LoadQuestions reads questions from every file matching pattern, one per
// line. Blank lines and lines starting with # are skipped.
func LoadQuestions(pattern string) ([]string, error) {
	paths, err := ExpandPattern(pattern)
	if err != nil {
		return nil, err
	}

	var questions []string
	for _, path := range paths {
		qs, err := readQuestions(path)
		if err != nil {
			return nil, err
		}
		questions = append(questions, qs...)
	}
	return questions, nil
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open questions: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" || strings.HasPrefix(q, "#") {
			continue
		}
		questions = append(questions, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions %s: %w", path, err)
	}
	return questions, nil
}
