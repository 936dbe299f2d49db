package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/mathexpr"
)

// LLMClient dispatches a chat message sequence to the model backend.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// Answerer produces the stored answer text for a single question. The two
// implementations, DialogueService and RouterService, are interchangeable
// strategies selected by configuration.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// The final-answer marker the tutor emits when the problem is solved.
const finalAnswerMarker = "####"

// Hard cap on tutor-facing conversation entries, system instruction
// included (about 10 round trips).
const maxConversationEntries = 20

var (
	equationMarkerRe = regexp.MustCompile(`<<(.+?)>>`)
	trailingMarkerRe = regexp.MustCompile(`<<.+?>>$`)
	anyMarkerRe      = regexp.MustCompile(`<<.*?>>`)
)

// DialogueService answers a question by simulating a tutoring dialogue
// between a tutor persona and a student persona, validating the arithmetic
// equation embedded in each tutor turn.
type DialogueService struct {
	llm   LLMClient
	model string
}

func NewDialogueService(llm LLMClient, model string) (*DialogueService, error) {
	if llm == nil {
		return nil, newError(ErrorInvalidInput, "nil_llm_client", nil)
	}
	if strings.TrimSpace(model) == "" {
		return nil, newError(ErrorInvalidInput, "empty_model", nil)
	}
	return &DialogueService{llm: llm, model: model}, nil
}

// Answer drives the two-persona dialogue until the tutor states a final
// answer or the turn budget runs out. On success it returns the full
// transcript; a turn-cap exit or any equation-marker violation fails the
// attempt with a FailedAttemptError carrying the transcript.
func (s *DialogueService) Answer(ctx context.Context, question string) (string, error) {
	tutor := domain.NewConversation(mathbotSystemPrompt,
		domain.ChatMessage{Role: domain.RoleUser, Content: question})
	student := domain.NewConversation(studentbotSystemPrompt,
		domain.ChatMessage{Role: domain.RoleAssistant, Content: question})

	reachedFinalAnswer := false
	foundEquationError := false

	slog.Debug("dialogue started", "question", question)

	for tutor.Len() <= maxConversationEntries {
		reply, err := s.llm.Chat(ctx, s.model, tutor.Messages())
		if err != nil {
			return "", newError(ErrorUpstream, "tutor_turn_error", err)
		}
		reply = strings.TrimRightFunc(reply, unicode.IsSpace)

		if strings.HasSuffix(reply, ">>") {
			matches := equationMarkerRe.FindAllStringSubmatch(reply, -1)
			if len(matches) == 1 {
				validated := mathexpr.Equation(matches[0][1])
				reply = trailingMarkerRe.ReplaceAllLiteralString(reply, "<<"+validated+">>")
			} else {
				foundEquationError = true
			}
		} else if strings.Contains(reply, "<<") || strings.Contains(reply, ">>") {
			foundEquationError = true
		}

		// The student never sees the bracketed equation.
		tutor.Append(domain.RoleAssistant, reply)
		student.Append(domain.RoleUser, anyMarkerRe.ReplaceAllLiteralString(reply, ""))
		slog.Info("tutor turn", "content", reply)

		if strings.Contains(reply, finalAnswerMarker) {
			reachedFinalAnswer = true
			break
		}

		studentReply, err := s.llm.Chat(ctx, s.model, student.Messages())
		if err != nil {
			return "", newError(ErrorUpstream, "student_turn_error", err)
		}
		tutor.Append(domain.RoleUser, studentReply)
		student.Append(domain.RoleAssistant, studentReply)
		slog.Info("student turn", "content", studentReply)
	}

	transcript := formatTranscript(tutor.Turns())
	if !reachedFinalAnswer || foundEquationError {
		return "", &FailedAttemptError{Transcript: transcript}
	}
	return transcript, nil
}

// formatTranscript renders the tutor-facing turns as labeled lines. The
// opening user turn is the question itself, attributed to the student.
func formatTranscript(turns []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range turns {
		switch m.Role {
		case domain.RoleUser:
			b.WriteString("\n• StudentBot: ")
			b.WriteString(m.Content)
		case domain.RoleAssistant:
			b.WriteString("\n• MathBot: ")
			b.WriteString(m.Content)
		}
	}
	return b.String()
}
