package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"property-workflow-backend/internal/store"
)

var (
	// ErrNotFound is returned when the target record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when the record is not in a state the
	// operation can start from, including when a concurrent change won.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned when an idempotency key is reused by someone else.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a rejected input field. Nothing is written when
// an operation returns one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrStaleState):
		return fmt.Errorf("%w: record changed concurrently", ErrInvalidTransition)
	}
	return err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and reports the first failing field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "oneof":
		return invalid(fe.Field(), "must be one of "+fe.Param())
	case "max":
		return invalid(fe.Field(), "must be at most "+fe.Param()+" characters")
	default:
		return invalid(fe.Field(), "is invalid")
	}
}
