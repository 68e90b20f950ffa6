package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator adapts go-playground/validator to echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a CustomValidator reporting fields by their JSON names
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// bindAndValidate decodes the JSON body into req and runs its validate tags. When it
// reports false the 400 response has already been written.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, NewValidationError(c, "Invalid request body", nil)
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, NewValidationError(c, err.Error(), nil)
		}
		missing := make([]string, 0, len(verrs))
		fields := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, ValidationError{Field: fe.Field(), Message: validationMessage(fe)})
			if fe.Tag() == "required" {
				missing = append(missing, fe.Field())
			}
		}
		detail := "Validation failed"
		if len(missing) > 0 {
			detail = "Missing required fields: " + strings.Join(missing, ", ")
		}
		return false, NewValidationError(c, detail, fields)
	}
	return true, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
