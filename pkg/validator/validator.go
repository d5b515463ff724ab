package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/employee-service/internal/domain"
)

// CustomValidator validates request payloads and reports fields by their json names.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds a validator with the "role" tag registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseRole(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate runs struct validation.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// FormatValidationErrors maps each failing field to a message.
func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = field + " is required"
		case "email":
			errs[field] = field + " must be a valid email address"
		case "min":
			errs[field] = field + " must be at least " + e.Param() + " characters"
		case "max":
			errs[field] = field + " must be at most " + e.Param() + " characters"
		case "uuid4", "uuid":
			errs[field] = field + " must be a valid id"
		case "role":
			errs[field] = field + " must be one of intern, employee, manager, administrator, super_administrator"
		default:
			errs[field] = field + " is invalid"
		}
	}
	return errs
}

// ToDetails converts validation errors to error details.
func (cv *CustomValidator) ToDetails(err error) map[string]any {
	details := make(map[string]any)
	for k, v := range cv.FormatValidationErrors(err) {
		details[k] = v
	}
	return details
}
