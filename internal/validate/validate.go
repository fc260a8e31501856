// Package validate applies struct-tag defaults and validation rules to
// configuration values.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/newthinker/meridian/internal/core"
)

var validate = validator.New()

// Defaults fills zero-valued fields from their `default` tags.
func Defaults(v any) error {
	if err := defaults.Set(v); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	return nil
}

// Struct checks v against its `validate` tags. Every failing field is
// reported in one error wrapping core.ErrConfigInvalid.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return core.Errorf(core.ErrConfigInvalid, "%s", strings.Join(msgs, "; "))
}

// Apply runs Defaults then Struct.
func Apply(v any) error {
	if err := Defaults(v); err != nil {
		return err
	}
	return Struct(v)
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
