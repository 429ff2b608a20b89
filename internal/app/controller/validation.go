package controller

import (
	"errors"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var resetTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// RegisterValidators adds the custom binding tags to gin's validator:
//
//	resettoken  64 lowercase hex characters
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("resettoken", func(fl validator.FieldLevel) bool {
		return resetTokenPattern.MatchString(fl.Field().String())
	})
}

// failedField reports whether err is a validation failure on the named struct field
func failedField(err error, field string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.StructField() == field {
			return true
		}
	}
	return false
}
