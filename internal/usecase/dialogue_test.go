package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

// scriptedLLM replays canned responses in call order and records every
// message sequence it was sent. When the script runs out, the last response
// repeats.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     [][]domain.ChatMessage
}

func (m *scriptedLLM) Chat(_ context.Context, _ string, msgs []domain.ChatMessage) (string, error) {
	idx := len(m.calls)
	m.calls = append(m.calls, msgs)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if len(m.responses) == 0 {
		return "", errors.New("no llm response configured")
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func newDialogue(t *testing.T, llm LLMClient) *DialogueService {
	t.Helper()
	svc, err := NewDialogueService(llm, "gpt-4")
	require.NoError(t, err)
	return svc
}

func TestNewDialogueService_Validation(t *testing.T) {
	_, err := NewDialogueService(nil, "gpt-4")
	requireUsecaseError(t, err, ErrorInvalidInput)
	_, err = NewDialogueService(&scriptedLLM{}, " ")
	requireUsecaseError(t, err, ErrorInvalidInput)
}

func requireUsecaseError(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, code, ue.Code)
	return ue
}

func TestDialogue_HappyPath_CorrectsEquation(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"What is the sum of <b>1 and 2</b>? <<1+2=4>>",
		"3",
		"Excellent work, you've got it! The answer is indeed 3.\n#### 3",
	}}
	svc := newDialogue(t, llm)

	transcript, err := svc.Answer(context.Background(), "Tom has 1 apple and buys 2 more. How many apples does he have?")
	require.NoError(t, err)

	// The fabricated result 4 is replaced with the validator's own 3.
	require.Contains(t, transcript, "<<1+2=3>>")
	require.NotContains(t, transcript, "<<1+2=4>>")
	require.Contains(t, transcript, "\n• StudentBot: Tom has 1 apple")
	require.Contains(t, transcript, "\n• MathBot: What is the sum")
	require.Contains(t, transcript, "\n• StudentBot: 3")
	require.Contains(t, transcript, "#### 3")

	require.Len(t, llm.calls, 3)
}

func TestDialogue_StudentNeverSeesMarkers(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"How many wheels on 3 cars? <<3*4=12>>",
		"12",
		"Right! #### 12",
	}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "A question about wheels.")
	require.NoError(t, err)

	// Second call is the student turn; its transcript must hold the tutor
	// reply with the equation marker stripped.
	studentMsgs := llm.calls[1]
	last := studentMsgs[len(studentMsgs)-1]
	require.Equal(t, domain.RoleUser, last.Role)
	require.NotContains(t, last.Content, "<<")
	require.NotContains(t, last.Content, ">>")
	require.Contains(t, last.Content, "How many wheels on 3 cars?")
}

func TestDialogue_TurnCapFailsAttempt(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"Let's think about the next step."}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "An endless question.")
	var failed *FailedAttemptError
	require.ErrorAs(t, err, &failed)
	require.Contains(t, failed.Transcript, "• MathBot: Let's think about the next step.")

	// 10 tutor turns and 10 student turns fill the 20-entry budget.
	require.Len(t, llm.calls, 20)
}

func TestDialogue_MultipleMarkersFailAttempt(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"First <<1+1=2>> then <<2+2=4>>",
		"ok",
		"Well done! #### 4",
	}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "q")
	var failed *FailedAttemptError
	require.ErrorAs(t, err, &failed)
	// The malformed turn still lands in the transcript, unmodified.
	require.Contains(t, failed.Transcript, "First <<1+1=2>> then <<2+2=4>>")
	require.Contains(t, failed.Transcript, "#### 4")
}

func TestDialogue_DanglingMarkerFailsAttempt(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"Consider <<1+1=2>> before answering.",
		"2",
		"Great! #### 2",
	}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "q")
	var failed *FailedAttemptError
	require.ErrorAs(t, err, &failed)
}

func TestDialogue_UnvalidatableEquationKeptVerbatim(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"What is x? <<x+1=2>>",
		"1",
		"Yes! #### 1",
	}}
	svc := newDialogue(t, llm)

	transcript, err := svc.Answer(context.Background(), "q")
	require.NoError(t, err)
	// Silent fallback: the equation could not be validated, so it stays as
	// the model wrote it and the attempt still succeeds.
	require.Contains(t, transcript, "<<x+1=2>>")
}

func TestDialogue_TurnsVisibleAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	llm := &scriptedLLM{responses: []string{
		"Add them. <<1+2=3>>",
		"3",
		"Correct!\n#### 3",
	}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "q")
	require.NoError(t, err)

	// Every dialogue turn surfaces through the default Info-level handler.
	out := buf.String()
	require.Contains(t, out, "tutor turn")
	require.Contains(t, out, "Add them.")
	require.Contains(t, out, "student turn")
}

func TestDialogue_GatewayErrorIsTerminal(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("backend unavailable")}}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "q")
	ue := requireUsecaseError(t, err, ErrorUpstream)
	require.Equal(t, "tutor_turn_error", ue.Reason)
	require.Contains(t, err.Error(), "backend unavailable")

	var failed *FailedAttemptError
	require.False(t, errors.As(err, &failed))
}

func TestDialogue_StudentGatewayError(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{"What is 1+1? <<1+1=2>>"},
		errs:      []error{nil, errors.New("boom")},
	}
	svc := newDialogue(t, llm)

	_, err := svc.Answer(context.Background(), "q")
	ue := requireUsecaseError(t, err, ErrorUpstream)
	require.Equal(t, "student_turn_error", ue.Reason)
	require.Contains(t, err.Error(), "boom")
}
