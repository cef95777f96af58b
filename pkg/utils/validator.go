package utils

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps go-playground/validator for request bodies.
type CustomValidator struct {
	validate *validator.Validate
}

var (
	validatorOnce     sync.Once
	validatorInstance *CustomValidator
)

// GetValidator returns the shared validator instance.
func GetValidator() *CustomValidator {
	validatorOnce.Do(func() {
		validatorInstance = &CustomValidator{validate: validator.New()}
	})
	return validatorInstance
}

// Validate runs struct-tag validation on i.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}
