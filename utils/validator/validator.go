package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"kyc-gate/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with navigation rules.
// It satisfies echo.Validator.
type Validator struct {
	validator *validator.Validate
}

// New creates a new validator instance with custom rules
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	registerCustomValidators(validate)

	// Use JSON field names for validation error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate validates a struct and returns validation errors
func (v *Validator) Validate(i interface{}) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// ValidationError maps JSON field names to user-facing messages.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	messages := make(map[string]string, len(errs))

	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			messages[field] = fmt.Sprintf("%s is required", field)
		case "max":
			messages[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case "nav_source":
			messages[field] = "source must be one of link, programmatic, history"
		case "nav_method":
			messages[field] = "method must be push or replace"
		case "invalidation_kind":
			messages[field] = "kind must be key or user"
		default:
			messages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return &ValidationError{Errors: messages}
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("nav_source", func(fl validator.FieldLevel) bool {
		switch domain.NavigationSource(fl.Field().String()) {
		case domain.SourceLink, domain.SourceProgrammatic, domain.SourceHistory:
			return true
		}
		return false
	})

	// Empty is allowed; the intent itself checks method against source.
	_ = validate.RegisterValidation("nav_method", func(fl validator.FieldLevel) bool {
		switch domain.NavigationMethod(fl.Field().String()) {
		case "", domain.MethodPush, domain.MethodReplace:
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("invalidation_kind", func(fl validator.FieldLevel) bool {
		switch domain.InvalidationKind(fl.Field().String()) {
		case domain.InvalidateByKey, domain.InvalidateByUser:
			return true
		}
		return false
	})
}
