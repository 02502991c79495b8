package ingest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidateEvent checks required fields and value domains on a parsed event.
// The result is a terminal classification: invalid events are never retried.
func ValidateEvent(event *ParsedEvent) ValidationResult {
	if event == nil {
		return ValidationResult{Reasons: []string{"event is missing"}}
	}

	err := validate.Struct(event)
	if err == nil {
		return ValidationResult{Valid: true}
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationResult{Reasons: []string{err.Error()}}
	}

	// ValidationErrors follow struct field order, so reasons are stable
	// across runs for the same input.
	reasons := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		reasons = append(reasons, fmt.Sprintf("%s %s", fieldErr.Field(), validationMessage(fieldErr)))
	}
	return ValidationResult{Reasons: reasons}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
