package config

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func validateStruct(s any) error {
	if err := validatorInstance().Struct(s); err != nil {
		return fromValidation(err)
	}
	return nil
}

// Validate checks every settings field.
func (s *Settings) Validate() error {
	return validateStruct(s)
}
