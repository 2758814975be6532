// File: internal/utils/validator/validator.go
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Field names in validation errors come from json tags.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("revoke_reason", RevokeReason)
}

// RevokeReason accepts short, printable reason strings. Reasons end up in
// audit records and event payloads, so control characters and free-form
// essays are rejected. Exported so the gin binding engine can register the
// same rule.
func RevokeReason(fl validator.FieldLevel) bool {
	reason := fl.Field().String()
	if len(reason) == 0 || len(reason) > 255 {
		return false
	}
	for _, r := range reason {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Validate checks a struct against its validation tags and returns a
// caller-presentable error for the first violation.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("invalid validation target: %w", err)
	}

	validationErrors := err.(validator.ValidationErrors)
	if len(validationErrors) == 0 {
		return err
	}
	first := validationErrors[0]
	switch first.Tag() {
	case "required":
		return fmt.Errorf("field '%s' is required", first.Field())
	case "max":
		return fmt.Errorf("field '%s' must be at most %s characters long", first.Field(), first.Param())
	case "uuid":
		return fmt.Errorf("field '%s' must be a valid UUID", first.Field())
	case "revoke_reason":
		return fmt.Errorf("field '%s' must be a printable string of at most 255 characters", first.Field())
	default:
		return fmt.Errorf("field '%s' failed validation on '%s'", first.Field(), first.Tag())
	}
}

// ValidateVar checks a single value against a tag expression.
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// Engine returns the underlying validator so gin binding can share the
// custom rules.
func Engine() *validator.Validate {
	return validate
}
