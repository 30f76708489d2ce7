package tutor

import "errors"

// ErrBudgetExhausted is returned when the daily token budget is spent.
var ErrBudgetExhausted = errors.New("daily generation budget exhausted, try again tomorrow")

// GenerationError reports a failed generation. Its message is the
// provider's message, unchanged, so callers can show it to the user.
type GenerationError struct {
	Flow    Flow
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
