package usecase

import (
	"fmt"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

type ErrorCode string

const (
	ErrorInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorUnexpectedResponse ErrorCode = "UNEXPECTED_RESPONSE"
	ErrorInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error is the usecase-level failure wrapper. Code classifies the failure,
// Reason names the step that failed, and Err carries the underlying cause
// for errors.As inspection.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// FailedAttemptError reports a tutoring dialogue that ran out of turns
// without reaching a final answer, or that recorded an equation-marker
// violation along the way. The transcript is the error message so the
// textual error channel written to the sheet keeps the whole conversation.
type FailedAttemptError struct {
	Transcript string
}

func (e *FailedAttemptError) Error() string {
	return e.Transcript
}

// UnexpectedResponseError reports a protocol violation by the model in the
// classification flow: a non-digit classification reply, or an extraction
// reply that is not a bracketed expression list. Raw carries the offending
// text for diagnostics.
type UnexpectedResponseError struct {
	Raw              string
	Category         domain.Category
	CalculationStage bool
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected model response %q (category=%s, calculation_stage=%t)",
		e.Raw, e.Category, e.CalculationStage)
}
