package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	ciPattern    = regexp.MustCompile(`^[0-9]{5,10}(-[0-9A-Z]{1,3})?$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("ci", validateCI)
	_ = validate.RegisterValidation("phone", validatePhone)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateCI(fl validator.FieldLevel) bool {
	return ciPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(fl.Field().String())
	return phonePattern.MatchString(phone)
}
