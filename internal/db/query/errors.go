package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel is returned for a model missing from the schema.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownField is returned for a where key or sort column that is not a field of the model.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnsupportedOperator is returned for a predicate key the field cannot take.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrInvalidValue is returned when a predicate value has the wrong shape.
	ErrInvalidValue = errors.New("invalid value")
)

// FieldError ties a compile failure to the model field it happened on
type FieldError struct {
	Model string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Model, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(model, field string, err error) error {
	return &FieldError{Model: model, Field: field, Err: err}
}
