package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// ValidationError reports request data that failed validation.
// It matches repositories.ErrValidation under errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// Unwrap ties service validation failures to the repository sentinel
func (e *ValidationError) Unwrap() error {
	return repositories.ErrValidation
}

// newValidationError converts validator and model errors into a ValidationError
func newValidationError(message string, err error) *ValidationError {
	ve := &ValidationError{Message: message, Fields: map[string]string{}}

	var fieldErrs validator.ValidationErrors
	var modelErr *models.ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			ve.Fields[jsonFieldName(fe)] = describeFieldError(fe)
		}
	case errors.As(err, &modelErr):
		ve.Fields[modelErr.Field] = modelErr.Message
	case err != nil:
		ve.Fields["request"] = err.Error()
	}
	return ve
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	return name
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// newValidator returns a validator that reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
