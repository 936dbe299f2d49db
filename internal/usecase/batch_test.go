package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/tokens"
)

type mockRepo struct {
	questions []string
	answers   []string

	cleared bool
	seeded  []domain.QuestionRow
	written map[int]string

	clearErr     error
	seedErr      error
	questionsErr error
	answersErr   error
	writeErr     error
}

func (m *mockRepo) Clear(_ context.Context) error {
	m.cleared = true
	return m.clearErr
}

func (m *mockRepo) SeedRows(_ context.Context, records []domain.QuestionRow) error {
	m.seeded = records
	return m.seedErr
}

func (m *mockRepo) Questions(_ context.Context) ([]string, error) {
	return m.questions, m.questionsErr
}

func (m *mockRepo) GeneratedAnswers(_ context.Context) ([]string, error) {
	return m.answers, m.answersErr
}

func (m *mockRepo) WriteAnswer(_ context.Context, index int, answer string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.written == nil {
		m.written = map[int]string{}
	}
	m.written[index] = answer
	return nil
}

type answererFunc func(ctx context.Context, question string) (string, error)

func (f answererFunc) Answer(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

func echoAnswerer() Answerer {
	return answererFunc(func(_ context.Context, question string) (string, error) {
		return "answered: " + question, nil
	})
}

func newBatch(t *testing.T, repo SheetRepository, a Answerer) *BatchService {
	t.Helper()
	svc, err := NewBatchService(repo, a, tokens.NewCounter())
	require.NoError(t, err)
	return svc
}

func TestNewBatchService_Validation(t *testing.T) {
	_, err := NewBatchService(nil, echoAnswerer(), tokens.NewCounter())
	requireUsecaseError(t, err, ErrorInvalidInput)
	_, err = NewBatchService(&mockRepo{}, nil, tokens.NewCounter())
	requireUsecaseError(t, err, ErrorInvalidInput)
	_, err = NewBatchService(&mockRepo{}, echoAnswerer(), nil)
	requireUsecaseError(t, err, ErrorInvalidInput)
}

func TestSeed_ClearsThenWrites(t *testing.T) {
	repo := &mockRepo{}
	svc := newBatch(t, repo, echoAnswerer())

	records := []domain.QuestionRow{{Question: "q", ExpectedAnswer: "#### 1"}}
	require.NoError(t, svc.Seed(context.Background(), records))
	require.True(t, repo.cleared)
	require.Equal(t, records, repo.seeded)
}

func TestSeed_ClearFailureAborts(t *testing.T) {
	repo := &mockRepo{clearErr: errors.New("no access")}
	svc := newBatch(t, repo, echoAnswerer())

	err := svc.Seed(context.Background(), nil)
	ue := requireUsecaseError(t, err, ErrorInternal)
	require.Equal(t, "sheet_clear_error", ue.Reason)
	require.Nil(t, repo.seeded)
}

func TestAnswer_SkipsRowsWithStoredAnswers(t *testing.T) {
	repo := &mockRepo{
		questions: []string{"q1", "q2", "q3"},
		answers:   []string{"already answered", "", ""},
	}
	svc := newBatch(t, repo, echoAnswerer())

	require.NoError(t, svc.Answer(context.Background(), 10))
	require.NotContains(t, repo.written, 0)
	require.Equal(t, "answered: q2", repo.written[1])
	require.Equal(t, "answered: q3", repo.written[2])
}

// Pins the adopted reattempt policy: a stored Error:-prefixed answer does
// not block the row; any other stored text does.
func TestAnswer_RetriesStoredErrorRows(t *testing.T) {
	repo := &mockRepo{
		questions: []string{"q1", "q2"},
		answers:   []string{"Error: backend unavailable", "a fine answer"},
	}
	svc := newBatch(t, repo, echoAnswerer())

	require.NoError(t, svc.Answer(context.Background(), 10))
	require.Equal(t, "answered: q1", repo.written[0])
	require.NotContains(t, repo.written, 1)
}

func TestAnswer_EncodesFailuresAsErrorText(t *testing.T) {
	repo := &mockRepo{questions: []string{"q1"}}
	failing := answererFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("all attempts failed")
	})
	svc := newBatch(t, repo, failing)

	require.NoError(t, svc.Answer(context.Background(), 10))
	require.Equal(t, "Error: all attempts failed", repo.written[0])
}

func TestAnswer_StopsAtFirstEmptyQuestion(t *testing.T) {
	repo := &mockRepo{questions: []string{"q1", "", "q3"}}
	svc := newBatch(t, repo, echoAnswerer())

	require.NoError(t, svc.Answer(context.Background(), 10))
	require.Len(t, repo.written, 1)
	require.Equal(t, "answered: q1", repo.written[0])
}

func TestAnswer_HonorsMax(t *testing.T) {
	repo := &mockRepo{questions: []string{"q1", "q2", "q3"}}
	svc := newBatch(t, repo, echoAnswerer())

	require.NoError(t, svc.Answer(context.Background(), 2))
	require.Len(t, repo.written, 2)
}

func TestAnswer_SkippedRowsDoNotConsumeBudget(t *testing.T) {
	repo := &mockRepo{
		questions: []string{"q1", "q2", "q3"},
		answers:   []string{"done", "", ""},
	}
	svc := newBatch(t, repo, echoAnswerer())

	require.NoError(t, svc.Answer(context.Background(), 2))
	require.Equal(t, "answered: q2", repo.written[1])
	require.Equal(t, "answered: q3", repo.written[2])
}

func TestAnswer_ReadFailuresAbort(t *testing.T) {
	repo := &mockRepo{questionsErr: errors.New("get failed")}
	svc := newBatch(t, repo, echoAnswerer())
	requireUsecaseError(t, svc.Answer(context.Background(), 10), ErrorInternal)

	repo = &mockRepo{questions: []string{"q1"}, answersErr: errors.New("get failed")}
	svc = newBatch(t, repo, echoAnswerer())
	requireUsecaseError(t, svc.Answer(context.Background(), 10), ErrorInternal)
}

func TestAnswer_WriteFailureAborts(t *testing.T) {
	repo := &mockRepo{questions: []string{"q1"}, writeErr: errors.New("readonly")}
	svc := newBatch(t, repo, echoAnswerer())

	err := svc.Answer(context.Background(), 10)
	ue := requireUsecaseError(t, err, ErrorInternal)
	require.Equal(t, "sheet_write_error", ue.Reason)
	require.Contains(t, err.Error(), "row 2")
}

func TestSkipStoredAnswer(t *testing.T) {
	require.False(t, skipStoredAnswer(""))
	require.False(t, skipStoredAnswer("   "))
	require.False(t, skipStoredAnswer("Error: something broke"))
	require.False(t, skipStoredAnswer("  Error: padded"))
	require.True(t, skipStoredAnswer("a real answer"))
	require.True(t, skipStoredAnswer("Error-adjacent text"))
}
