package scim

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type (
	// ErrorResponse represents a validation error response.
	ErrorResponse struct {
		FailedField string
		Tag         string
		Value       interface{}
	}

	// XValidator is a custom validator struct.
	XValidator struct {
		validator *validator.Validate
	}
)

// NewValidator returns a validator reporting json field names.
func NewValidator() XValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return XValidator{validator: v}
}

// Validate performs validation on the provided data and returns a slice of ErrorResponse.
func (v XValidator) Validate(data interface{}) []ErrorResponse {
	var validationErrors []ErrorResponse

	errs := v.validator.Struct(data)
	if errs == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(errs, &fieldErrs) {
		return []ErrorResponse{{FailedField: "body", Tag: errs.Error()}}
	}

	for _, err := range fieldErrs {
		validationErrors = append(validationErrors, ErrorResponse{
			FailedField: err.Namespace(),
			Tag:         err.Tag(),
			Value:       err.Value(),
		})
	}

	return validationErrors
}

// detail renders validation errors as a SCIM error detail.
func detail(errs []ErrorResponse) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", e.FailedField, e.Tag))
	}

	return "Invalid request: " + strings.Join(parts, "; ")
}
