package validator

import (
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Flatten renders Validate's result as sorted "field: tag" lines.
func Flatten(errs map[string]string) []string {
	out := make([]string, 0, len(errs))
	for field, tag := range errs {
		out = append(out, field+": "+tag)
	}
	sort.Strings(out)
	return out
}
