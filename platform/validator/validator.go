// Package validator wraps go-playground struct validation behind a small
// injectable type so handlers share one configured instance.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request DTOs against their struct tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the default rule set.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates s against its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}
