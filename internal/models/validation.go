package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the number of decimal places a quantity may carry
const QuantityPlaces = 4

var whitespaceRegex = regexp.MustCompile(`\s+`)

// SanitizeString removes extra whitespace and trims the string
func SanitizeString(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fieldName + " is required",
			Value:   value,
		}
	}
	return nil
}

// ValidateStringLength validates string length constraints
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	length := len(strings.TrimSpace(value))

	if minLength > 0 && length < minLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be at least %d characters", fieldName, minLength),
			Value:   value,
		}
	}

	if maxLength > 0 && length > maxLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s cannot exceed %d characters", fieldName, maxLength),
			Value:   value,
		}
	}

	return nil
}

// ValidatePositiveNumber validates that a number is not negative
func ValidatePositiveNumber(value float64, fieldName string) error {
	if value < 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: fieldName + " cannot be negative",
			Value:   value,
		}
	}
	return nil
}

// ValidateQuantityPlaces rejects quantities finer than QuantityPlaces decimals
func ValidateQuantityPlaces(value float64, fieldName string) error {
	if decimal.NewFromFloat(value).Exponent() < -QuantityPlaces {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s cannot have more than %d decimal places", fieldName, QuantityPlaces),
			Value:   value,
		}
	}
	return nil
}

// ValidatePercentage validates that a number lies within 0..100 inclusive
func ValidatePercentage(value float64, fieldName string) error {
	if value < 0 || value > 100 {
		return &ValidationError{
			Field:   fieldName,
			Message: fieldName + " must be between 0 and 100",
			Value:   value,
		}
	}
	return nil
}

// ValidateEnum validates that a value is in the allowed enum values
func ValidateEnum(value string, allowedValues []string, fieldName string) error {
	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return &ValidationError{
		Field:   fieldName,
		Message: fmt.Sprintf("%s must be one of: %s", fieldName, strings.Join(allowedValues, ", ")),
		Value:   value,
	}
}
