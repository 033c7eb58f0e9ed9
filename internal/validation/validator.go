// Package validation validates request structs with validator/v10 and
// converts failures into apperror field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with apperror conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Fields validates s and returns one FieldError per failing field, in
// struct order. It returns nil when s is valid.
func (v *Validator) Fields(s any) []apperror.FieldError {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []apperror.FieldError{{Message: err.Error()}}
	}

	out := make([]apperror.FieldError, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, apperror.FieldError{Field: e.Field(), Message: friendlyMessage(e)})
	}
	return out
}

// Validate returns a Validation AppError when s is invalid.
func (v *Validator) Validate(s any) error {
	if fields := v.Fields(s); len(fields) > 0 {
		return apperror.NewValidationFields(fields)
	}
	return nil
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "printascii":
		return "must contain printable ASCII characters only"
	case "excludesall":
		return "contains a forbidden character"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
