package validate

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	err := validate.RegisterValidation("account_role", validateAccountRole)
	if err != nil {
		return
	}
}

func Struct(s interface{}) error {
	return validate.Struct(s)
}

func validateAccountRole(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	return role == "user" || role == "admin"
}
