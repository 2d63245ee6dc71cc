// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/replayline/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	slugPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	chunkKeyPattern  = regexp.MustCompile(`^chunks/[A-Za-z0-9_-]{1,64}/[A-Za-z0-9_-]{1,128}/[0-9]{6,7}-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.json\.gz$`)
)

// IsSessionID reports whether s is a well-formed session id.
func IsSessionID(s string) bool {
	return sessionIDPattern.MatchString(s)
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the JSON field name that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "128" for max=128.
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

// Error returns a human-readable error message.
func (e *ValidationError) Error() string { return e.message }

// RequestValidationError is a collection of field errors. It wraps
// models.ErrValidation.
type RequestValidationError struct {
	errors []ValidationError
}

// NewFieldError builds a single-field RequestValidationError for checks that
// cannot be expressed as struct tags.
func NewFieldError(field, tag, message string) *RequestValidationError {
	return &RequestValidationError{errors: []ValidationError{{field: field, tag: tag, message: message}}}
}

// Errors returns the individual field errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		messages = append(messages, ve.errors[i].message)
	}
	return strings.Join(messages, "; ")
}

// Unwrap lets errors.Is(err, models.ErrValidation) match.
func (ve *RequestValidationError) Unwrap() error {
	return models.ErrValidation
}

// Details returns the field breakdown for the API error envelope.
func (ve *RequestValidationError) Details() map[string]interface{} {
	if len(ve.errors) == 1 {
		e := ve.errors[0]
		return map[string]interface{}{"field": e.field, "tag": e.tag}
	}
	fields := make([]map[string]interface{}, len(ve.errors))
	for i, e := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   e.field,
			"tag":     e.tag,
			"message": e.message,
		}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report json names so messages match the request body.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		mustRegister(v, "sessionid", func(fl validator.FieldLevel) bool {
			return sessionIDPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "blobkey", func(fl validator.FieldLevel) bool {
			return chunkKeyPattern.MatchString(fl.Field().String())
		})

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateStruct validates s. It returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewFieldError("unknown", "unknown", err.Error())
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

var errorMessageTemplates = map[string]string{
	"required":   "%s is required",
	"sessionid":  "%s must be 1-128 characters of letters, digits, '-' or '_'",
	"slug":       "%s must be 1-64 characters of letters, digits, '-' or '_'",
	"blobkey":    "%s is not a valid chunk key",
	"printascii": "%s must contain printable ASCII only",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind().String() == "string"
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must contain at least %s items", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
