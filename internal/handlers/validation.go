package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
)

var registerOnce sync.Once

// registerValidators teaches gin's validator the custom rules and makes it
// report JSON (or form) field names instead of Go field names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("future", validateFuture)
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.Split(f.Tag.Get(tag), ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// validateFuture accepts times strictly after now.
func validateFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(time.Now())
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fieldPath turns "CreateContentRequestRequest.invitees[0].email" into
// "invitees.0.email".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return indexPattern.ReplaceAllString(namespace, ".$1")
}

// label is the human name of the last path segment: "duration_max" -> "duration max".
func label(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return strings.ReplaceAll(path, "_", " ")
}

func isSized(kind reflect.Kind) bool {
	return kind == reflect.String || kind == reflect.Slice || kind == reflect.Map || kind == reflect.Array
}

// message renders one failed rule in the client's wording.
func message(fe validator.FieldError, name string) string {
	kind := fe.Kind()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "future":
		return fmt.Sprintf("The %s must be a date after now.", name)
	case "hexcolor":
		return fmt.Sprintf("The %s must be a valid hex color.", name)
	case "min", "gte":
		switch {
		case kind == reflect.String:
			return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
		case isSized(kind):
			return fmt.Sprintf("The %s must have at least %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "max", "lte":
		if kind == reflect.String {
			return fmt.Sprintf("The %s must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must not be greater than %s.", name, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

// bindError converts a binding failure into a validation error with
// per-field messages.
func bindError(err error) error {
	fields := make(apperr.Fields)
	addBindError(fields, err)
	return fields.Err()
}

// addBindError records err in fields.
func addBindError(fields apperr.Fields, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			path := fieldPath(fe.Namespace())
			fields.Add(path, message(fe, label(path)))
		}
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fields.Add(typeErr.Field, fmt.Sprintf("The %s field has an invalid type.", label(typeErr.Field)))
		return
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		fields.Add("deadline", "The deadline is not a valid date.")
		return
	}

	var sizeErr *http.MaxBytesError
	if errors.As(err, &sizeErr) {
		fields.Add("video_file", "The video file must not be greater than 102400 kilobytes.")
		return
	}

	fields.Add("body", "The request body is invalid.")
}
