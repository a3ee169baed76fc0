package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/suar-net/suar-studio/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("httpmethod", func(fl validator.FieldLevel) bool {
		return model.IsValidMethod(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	return v
}

// ValidationError wraps the validators.ValidationErrors to provide a more user-friendly message.
func ValidationError(err error) string {
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	var errorMsgs []string

	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' is required", e.Field()))
		case "url":
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' must be a valid URL", e.Field()))
		case "httpmethod":
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' must be one of GET, POST, PUT, DELETE, PATCH", e.Field()))
		case "gte":
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' must be greater than or equal to %s", e.Field(), e.Param()))
		case "lte", "max":
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' must be less than or equal to %s", e.Field(), e.Param()))
		default:
			errorMsgs = append(errorMsgs, fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()))
		}
	}

	return strings.Join(errorMsgs, ", ")
}
