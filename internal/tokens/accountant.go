// Package tokens estimates the OpenAI token cost of a chat message sequence
// and accumulates estimates for usage reporting. Estimates follow the
// published ChatML framing constants and are for diagnostics only; they are
// not billed counts.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

// UnsupportedModelError reports a model identifier the accountant has no
// framing constants for.
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("tokens: estimation is not implemented for model %q", e.Model)
}

const fallbackEncoding = "cl100k_base"

// Every reply is primed with <|start|>assistant<|message|>.
const replyPrimingTokens = 3

// framing holds the model-version-dependent per-message and per-name
// overheads. Unpinned model names resolve to a pinned version first.
type framing struct {
	model      string
	perMessage int
	perName    int
}

func framingFor(model string) (framing, error) {
	switch model {
	case "gpt-3.5-turbo":
		return framingFor("gpt-3.5-turbo-0301")
	case "gpt-4":
		return framingFor("gpt-4-0314")
	case "gpt-3.5-turbo-0301":
		// every message follows <|start|>{role/name}\n{content}<|end|>\n;
		// if there's a name, the role is omitted
		return framing{model: model, perMessage: 4, perName: -1}, nil
	case "gpt-4-0314":
		return framing{model: model, perMessage: 3, perName: 1}, nil
	default:
		return framing{}, &UnsupportedModelError{Model: model}
	}
}

// Estimate returns the number of tokens the given messages would consume if
// sent to the model.
func Estimate(messages []domain.ChatMessage, model string) (int, error) {
	fr, err := framingFor(model)
	if err != nil {
		return 0, err
	}

	enc, err := tiktoken.EncodingForModel(fr.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, fmt.Errorf("tokens: load encoding: %w", err)
		}
	}

	total := 0
	for _, m := range messages {
		total += fr.perMessage
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
		if m.Name != "" {
			total += len(enc.Encode(m.Name, nil, nil))
			total += fr.perName
		}
	}
	return total + replyPrimingTokens, nil
}
