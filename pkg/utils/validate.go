package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(value, err)
	}

	return value, nil
}

func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ValidationErrorToString(value, err)
	}
	return nil
}

// ValidationErrorToString flattens validator field errors into one readable message.
func ValidationErrorToString(input any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() == "" {
			parts = append(parts, fmt.Sprintf("field '%s' failed rule '%s'", fe.Field(), fe.Tag()))
			continue
		}
		parts = append(parts, fmt.Sprintf("field '%s' failed rule '%s=%s', got '%v'", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return errors.New(strings.Join(parts, "; "))
}
