package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

// AnswerErrorPrefix marks a stored answer as a per-question failure. The
// sheet's grading formula classifies such rows as Error, and the next batch
// run retries them.
const AnswerErrorPrefix = "Error: "

// SheetRepository defines the tabular store operations the batch driver
// consumes.
type SheetRepository interface {
	Clear(ctx context.Context) error
	SeedRows(ctx context.Context, records []domain.QuestionRow) error
	Questions(ctx context.Context) ([]string, error)
	GeneratedAnswers(ctx context.Context) ([]string, error)
	WriteAnswer(ctx context.Context, index int, answer string) error
}

// UsageReader exposes the cumulative token usage for progress reporting.
type UsageReader interface {
	Total() int64
}

// BatchService seeds the sheet and walks its rows sequentially, producing
// one answer per unanswered question through the configured strategy.
type BatchService struct {
	repo     SheetRepository
	answerer Answerer
	usage    UsageReader
	runID    string
}

func NewBatchService(repo SheetRepository, answerer Answerer, usage UsageReader) (*BatchService, error) {
	if repo == nil {
		return nil, newError(ErrorInvalidInput, "nil_sheet_repository", nil)
	}
	if answerer == nil {
		return nil, newError(ErrorInvalidInput, "nil_answerer", nil)
	}
	if usage == nil {
		return nil, newError(ErrorInvalidInput, "nil_usage_reader", nil)
	}
	return &BatchService{
		repo:     repo,
		answerer: answerer,
		usage:    usage,
		runID:    uuid.NewString(),
	}, nil
}

// Seed clears the sheet and writes the seed questions, expected answers and
// grading formulas. Destructive: existing content is lost.
func (s *BatchService) Seed(ctx context.Context, records []domain.QuestionRow) error {
	if err := s.repo.Clear(ctx); err != nil {
		return newError(ErrorInternal, "sheet_clear_error", err)
	}
	if err := s.repo.SeedRows(ctx, records); err != nil {
		return newError(ErrorInternal, "sheet_seed_error", err)
	}
	slog.Info("seeded spreadsheet", "rows", len(records), "run_id", s.runID)
	return nil
}

// Answer processes up to max unanswered rows, writing each result back to
// the generated-answer column. A per-question failure is encoded as an
// Error:-prefixed string in the same cell a successful answer would occupy;
// only a failure to write back aborts the batch. The loop stops at the
// first empty question cell.
func (s *BatchService) Answer(ctx context.Context, max int) error {
	questions, err := s.repo.Questions(ctx)
	if err != nil {
		return newError(ErrorInternal, "sheet_read_questions_error", err)
	}
	answers, err := s.repo.GeneratedAnswers(ctx)
	if err != nil {
		return newError(ErrorInternal, "sheet_read_answers_error", err)
	}

	answered := 0
	for i, question := range questions {
		if question == "" {
			break
		}
		if answered >= max {
			break
		}
		if i < len(answers) && skipStoredAnswer(answers[i]) {
			continue
		}

		slog.Info("answering question", "row", i+2, "question", snippet(question), "run_id", s.runID)

		text, err := s.answerer.Answer(ctx, question)
		if err != nil {
			text = AnswerErrorPrefix + err.Error()
			slog.Warn("question failed", "row", i+2, "run_id", s.runID, "err", err)
		}
		if err := s.repo.WriteAnswer(ctx, i, text); err != nil {
			return newError(ErrorInternal, "sheet_write_error", fmt.Errorf("row %d: %w", i+2, err))
		}

		answered++
		slog.Info("answered question", "answered", answered, "max", max,
			"tokens_used", s.usage.Total(), "run_id", s.runID)
	}
	return nil
}

// skipStoredAnswer reports whether an already stored answer blocks a
// reattempt. Rows holding a stored error result are retried on the next run.
func skipStoredAnswer(stored string) bool {
	trimmed := strings.TrimSpace(stored)
	return trimmed != "" && !strings.HasPrefix(trimmed, AnswerErrorPrefix)
}

func snippet(s string) string {
	const n = 40
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
