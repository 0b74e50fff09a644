// Package validator wraps go-playground/validator with a flat error shape
// shared by configuration loading and the HTTP API.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is returned by Err when at least one rule failed.
var ErrValidation = errors.New("validation failed")

// Validator validates structs and single values against struct tags.
type Validator struct {
	cli *validator.Validate
}

// ValidationError describes one failed field rule.
type ValidationError struct {
	// Field is the namespaced field path without the root type, e.g. "Streams[0].StreamName".
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (v *Validator) formatError(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.StructNamespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, ValidationError{
			Field:   field,
			Rule:    fe.Tag(),
			Message: fe.Error(),
		})
	}
	return out
}

// ValidateStruct validates s and returns every failed rule, or nil.
func (v *Validator) ValidateStruct(s any) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks a single value against tag.
func (v *Validator) Validate(value any, tag string) []ValidationError {
	if err := v.cli.Var(value, tag); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Err folds validation errors into one error wrapping ErrValidation.
func Err(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

// New returns a Validator with required-struct checks enabled.
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}
