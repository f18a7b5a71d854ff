package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academibot/core"
)

var (
	roleTag  = "role"
	roleText = "{0} must be one of: default, admin"
)

func init() {
	_ = core.Validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(roleTag, roleText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	_, ok := ParseRole(fl.Field().String())
	return ok
}
