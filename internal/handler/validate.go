package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/service"
)

// Validator adapts validator/v10 to echo.Validator.  Field names in errors
// are the JSON names of the request fields.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the project's custom rules:
//
//	rolecategory – a known role category (empty passes; pair with required)
//	usertype     – a known user type
//	ymd          – a YYYY-MM-DD calendar date
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("rolecategory", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := model.ParseRoleCategory(s)
		return err == nil
	})
	_ = v.RegisterValidation("usertype", func(fl validator.FieldLevel) bool {
		return model.UserType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.  Failures are returned as a
// validation *service.Error carrying one FieldError per failed rule.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return service.ValidationError("Invalid request body")
	}
	fields := make([]service.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, service.FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
	}
	return service.ValidationError("Validation failed", fields...)
}

// fieldPath drops the struct name from the namespace: "req.positions[0].role"
// becomes "positions[0].role".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "rolecategory":
		return "unknown role category"
	case "usertype":
		return "unknown user type"
	case "ymd":
		return "must be a date formatted YYYY-MM-DD"
	case "dive":
		return "is invalid"
	}
	return "failed " + fe.Tag() + " validation"
}
