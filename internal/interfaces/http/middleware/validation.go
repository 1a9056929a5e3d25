package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
)

// SetupValidator makes validation errors report json field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// FormatValidationErrors converts a binding error into the error envelope.
// Errors that are not rule violations (malformed JSON, wrong types) carry no
// field details.
func FormatValidationErrors(err error) dto.Response {
	resp := dto.NewErrorResponse(dto.ErrCodeValidation, "Request validation failed")

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		resp.Error.Message = "Invalid request body"
		resp.Message = resp.Error.Message
		return resp
	}
	for _, e := range validationErrors {
		resp.Error.Details = append(resp.Error.Details, dto.FieldError{
			Field:   fieldPath(e),
			Message: getValidationMessage(e),
		})
	}
	return resp
}

// HandleValidationError aborts with a 400 VALIDATION_ERROR response
func HandleValidationError(c *gin.Context, err error) {
	resp := FormatValidationErrors(err)
	resp.Message = Localize(c, dto.ErrCodeValidation, resp.Message)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeValidation), resp)
}

// fieldPath drops the struct name from "PlaceOrderRequest.shipping_address.city"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "url":
		return "Invalid URL format"
	case "alphanum":
		return "Must be alphanumeric"
	default:
		return "Invalid value"
	}
}
