package app

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrAuthRequired        = errors.New("authentication required")
	ErrValidation          = errors.New("validation failed")
	ErrNotFoundOrForbidden = errors.New("not found or access denied")
)

// ValidationError is a field-level input problem whose Message is safe to
// show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// fieldMessages maps "<Field>.<tag>" to the message shown for that failure.
type fieldMessages map[string]string

// validate runs struct validation and turns the first failure into a
// ValidationError.
func validate(v *validator.Validate, input interface{}, messages fieldMessages) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate input failed: %w", err)
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return invalid(fe.Field(), msg)
	}
	if msg, ok := messages[fe.Field()]; ok {
		return invalid(fe.Field(), msg)
	}
	return invalid(fe.Field(), fmt.Sprintf("%s is invalid", fe.Field()))
}
