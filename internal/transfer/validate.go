package transfer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

// requestValidator is shared; a validator caches struct metadata and is
// safe for concurrent use.
var requestValidator = newValidator()

// Validate checks req without contacting any upstream. It returns an
// InvalidRequest error naming every violated field.
func Validate(req catalog.TransferRequest) error {
	return validateRequest(requestValidator, &req)
}

// newValidator returns a validator that reports fields by their JSON names
// and knows the notblank tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("transfer: registering notblank: %v", err))
	}

	return v
}

// validateRequest checks req and returns a single InvalidRequest error that
// names every violated field.
func validateRequest(v *validator.Validate, req *catalog.TransferRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("transfer: validating request: %w: %w", catalog.ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}

	return fmt.Errorf("transfer: %s: %w", strings.Join(msgs, "; "), catalog.ErrInvalidRequest)
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "notblank":
		return field + " must not be blank"
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
