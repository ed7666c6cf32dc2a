package api

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rpupo63/portfolio-backend/errs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("weburl", isWebURL); err != nil {
		panic(err)
	}
	return v
}

var webURLSchemes = []string{"http", "https", "ftp", "ftps"}

// isWebURL accepts absolute links a browser can follow safely: a known
// scheme and a host.
func isWebURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return slices.Contains(webURLSchemes, strings.ToLower(u.Scheme)) && u.Hostname() != ""
}

// validateInto runs the struct's validate tags and adds one message per
// failing field to into. Fields that already carry a decode error are skipped.
func validateInto(s any, into *errs.ValidationError) {
	err := validate.Struct(s)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		into.Add("non_field_errors", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		if into.Has(fe.Field()) {
			continue
		}
		into.Add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		if isString {
			return "This field may not be blank."
		}
		return msgRequired
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "url", "weburl":
		return "Enter a valid URL."
	case "email":
		return "Enter a valid email address."
	default:
		return "Invalid value."
	}
}
