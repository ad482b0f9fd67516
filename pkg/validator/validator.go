// Package validator wraps go-playground/validator with JSON field names, a notblank rule and
// client-ready messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// FieldError is one failed rule. Field is the JSON path, e.g. "items[1].quantity".
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Message renders the failure for API clients.
func (f FieldError) Message() string {
	switch f.Rule {
	case "required", "notblank":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", f.Field, f.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f.Field, f.Param)
	case "gte":
		return fmt.Sprintf("%s must be %s or more", f.Field, f.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f.Field, strings.Join(strings.Fields(f.Param), ", "))
	}
	if f.Param == "" {
		return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
	return fmt.Sprintf("%s failed %s=%s", f.Field, f.Rule, f.Param)
}

// Errors is returned by Struct when one or more rules fail.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, f := range e {
		msgs[i] = f.Message()
	}
	return strings.Join(msgs, "; ")
}

// Struct validates v against its `validate` tags. Rule failures come back as Errors; any other
// error (for example a non-struct argument) is returned unchanged.
func Struct(v any) error {
	err := get().Struct(v)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{Field: jsonPath(fe.Namespace()), Rule: fe.Tag(), Param: fe.Param()}
	}
	return out
}

// jsonPath drops the root struct name from a validator namespace.
func jsonPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func notBlank(fl validator.FieldLevel) bool {
	field := reflect.Indirect(fl.Field())
	if !field.IsValid() || field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(jsonName)
		if err := instance.RegisterValidation("notblank", notBlank); err != nil {
			panic(err)
		}
	})
	return instance
}
