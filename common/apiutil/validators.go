package apiutil

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/go-playground/validator/v10"
)

func NewValidator() *Validator {
	validator := validator.New(validator.WithRequiredStructEnabled())
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator}
}

type Validator struct {
	validator *validator.Validate
}

// RegisterValidation adds a custom tag rule.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validator.RegisterValidation(tag, fn)
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return translate(err)
	}
	return nil
}

// Var validates a single value against tag, reporting it as field.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	if err := v.validator.Var(value, tag); err != nil {
		var fieldsError validator.ValidationErrors
		if errors.As(err, &fieldsError) {
			validationErr := errors.Invalid.Explain("validation error")
			for _, fieldErr := range fieldsError {
				validationErr = validationErr.WithField(fieldErr.Tag(), field, message(fieldErr))
			}
			return validationErr
		}
		return errors.Invalid.Explain("validation error").Wrap(err)
	}
	return nil
}

func translate(err error) error {
	validationErr := errors.Invalid.Explain("validation error")
	var fieldsError validator.ValidationErrors
	if errors.As(err, &fieldsError) {
		for _, fieldErr := range fieldsError {
			validationErr = validationErr.WithField(fieldErr.Tag(), fieldErr.Field(), message(fieldErr))
		}
		return validationErr
	}
	return validationErr.Wrap(err)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}
