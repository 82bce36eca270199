package orders

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation failed")

// ValidationError is returned before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type Step string

const (
	StepCustomer Step = "customer"
	StepOrder    Step = "order"
	StepItems    Step = "items"
)

// WriteError reports which of the three writes failed. Earlier writes are
// not undone.
type WriteError struct {
	Step Step
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Step, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
