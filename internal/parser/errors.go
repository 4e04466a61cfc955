package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every error this package returns.
	ErrParse             = errors.New("failed to parse model output")
	ErrMalformedQuiz     = fmt.Errorf("%w: invalid quiz format", ErrParse)
	ErrMalformedQuestion = fmt.Errorf("%w: invalid question format", ErrParse)
)

// MalformedQuestionError names the first question that failed validation.
type MalformedQuestionError struct {
	Index  int
	Reason string
}

func (e *MalformedQuestionError) Error() string {
	return fmt.Sprintf("invalid question format at index %d: %s", e.Index, e.Reason)
}

func (e *MalformedQuestionError) Is(target error) bool {
	return target == ErrMalformedQuestion || target == ErrParse
}
