package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

// ReadSeedFile loads the newline-delimited JSON seed records used to
// populate the sheet. Blank lines are skipped; a malformed line fails the
// whole load.
func ReadSeedFile(path string) ([]domain.QuestionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repository: open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var records []domain.QuestionRow
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec domain.QuestionRow
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("repository: parse seed file line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("repository: read seed file: %w", err)
	}
	return records, nil
}
