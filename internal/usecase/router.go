package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/mathexpr"
)

// RouterService answers a question by classifying it into one of six
// categories, then re-answering the same conversation under the
// category-specific instruction. Calculation-type questions go through a
// two-stage pipeline: extract the arithmetic, validate it locally, then ask
// for the explanation with the validated results as context.
type RouterService struct {
	llm   LLMClient
	model string
}

func NewRouterService(llm LLMClient, model string) (*RouterService, error) {
	if llm == nil {
		return nil, newError(ErrorInvalidInput, "nil_llm_client", nil)
	}
	if strings.TrimSpace(model) == "" {
		return nil, newError(ErrorInvalidInput, "empty_model", nil)
	}
	return &RouterService{llm: llm, model: model}, nil
}

func (s *RouterService) Answer(ctx context.Context, question string) (string, error) {
	conv := domain.NewConversation(classificationPrompt,
		domain.ChatMessage{Role: domain.RoleUser, Content: question})

	reply, err := s.llm.Chat(ctx, s.model, conv.Messages())
	if err != nil {
		return "", newError(ErrorUpstream, "classification_error", err)
	}
	category, ok := domain.ParseCategory(strings.TrimSpace(reply))
	if !ok {
		return "", newError(ErrorUnexpectedResponse, "classification_reply",
			&UnexpectedResponseError{Raw: reply, Category: domain.CategoryUndefined})
	}
	slog.Debug("question classified", "category", category)

	if category == domain.CategoryCalculationBased {
		return s.answerCalculation(ctx, conv)
	}

	conv.SetInstruction(categoryPrompts[category])
	answer, err := s.llm.Chat(ctx, s.model, conv.Messages())
	if err != nil {
		return "", newError(ErrorUpstream, category.String()+"_answer_error", err)
	}
	return answer, nil
}

// answerCalculation runs the two-stage calculation pipeline on the already
// classified conversation.
func (s *RouterService) answerCalculation(ctx context.Context, conv *domain.Conversation) (string, error) {
	conv.SetInstruction(extractionPrompt)
	reply, err := s.llm.Chat(ctx, s.model, conv.Messages())
	if err != nil {
		return "", newError(ErrorUpstream, "extraction_error", err)
	}

	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return "", newError(ErrorUnexpectedResponse, "extraction_reply",
			&UnexpectedResponseError{
				Raw:              reply,
				Category:         domain.CategoryCalculationBased,
				CalculationStage: true,
			})
	}

	lines := evaluateExpressionList(trimmed[1 : len(trimmed)-1])
	conv.SetInstruction(calculationAnswerPrompt(strings.Join(lines, "\n")))

	answer, err := s.llm.Chat(ctx, s.model, conv.Messages())
	if err != nil {
		return "", newError(ErrorUpstream, "calculation_answer_error", err)
	}
	return answer, nil
}

// evaluateExpressionList turns the interior of the extraction reply into
// "expression = result" context lines. Expressions that fail validation are
// dropped silently; they are never retried.
func evaluateExpressionList(list string) []string {
	var lines []string
	for _, expr := range strings.Split(list, ", ") {
		result, err := mathexpr.Result(expr)
		if err != nil {
			slog.Debug("dropping invalid expression", "expr", expr, "err", err)
			continue
		}
		lines = append(lines, expr+" = "+result)
	}
	return lines
}
