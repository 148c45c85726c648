package utils

import (
	"regexp"
	"sync"

	"taxi-booking/internal/models"

	"github.com/go-playground/validator/v10"
)

// phonePattern accepts an optional leading plus followed by at least nine
// digits, spaces, dashes or parentheses.
var phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]{9,}$`)

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

var (
	validatorOnce sync.Once
	sharedValid   *CustomValidator
)

// GetValidator returns the process-wide validator with the custom tags registered.
func GetValidator() *CustomValidator {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).Valid()
		})
		sharedValid = &CustomValidator{validate: v}
	})
	return sharedValid
}

// ValidPhone reports whether s looks like a phone number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
