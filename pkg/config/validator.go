package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Validator validates configuration
type Validator interface {
	Validate(config interface{}) error
}

// ValidatorFunc is a function that validates configuration
type ValidatorFunc func(config interface{}) error

func (f ValidatorFunc) Validate(config interface{}) error {
	return f(config)
}

// Validate runs validators in order and returns the first failure.
func Validate(config interface{}, validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// RequiredFields fails when any named field holds its zero value.
// Nested fields use dot notation ("Metrics.Addr").
func RequiredFields(fields ...string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		val := reflect.Indirect(reflect.ValueOf(config))
		var missing []string
		for _, name := range fields {
			f := getNestedField(val, name)
			if !f.IsValid() {
				return fmt.Errorf("field %s not found in config struct", name)
			}
			if f.IsZero() {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("required fields are missing: %s", strings.Join(missing, ", "))
		}
		return nil
	})
}

// RangeValidator fails when an integer field is outside [min, max].
func RangeValidator(fieldName string, min, max int64) Validator {
	return ValidatorFunc(func(config interface{}) error {
		f := getNestedField(reflect.Indirect(reflect.ValueOf(config)), fieldName)
		if !f.IsValid() {
			return fmt.Errorf("field %s not found", fieldName)
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return fmt.Errorf("field %s is not an integer", fieldName)
		}
		if n := f.Int(); n < min || n > max {
			return fmt.Errorf("field %s value %d is out of range [%d, %d]", fieldName, n, min, max)
		}
		return nil
	})
}

// OneOfValidator fails unless a string field equals one of allowed.
func OneOfValidator(fieldName string, allowed ...string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		f := getNestedField(reflect.Indirect(reflect.ValueOf(config)), fieldName)
		if !f.IsValid() || f.Kind() != reflect.String {
			return fmt.Errorf("field %s is not a string field", fieldName)
		}
		for _, a := range allowed {
			if f.String() == a {
				return nil
			}
		}
		return fmt.Errorf("field %s value %q is not one of: %s", fieldName, f.String(), strings.Join(allowed, ", "))
	})
}

// getNestedField resolves a dot-separated field path.
func getNestedField(val reflect.Value, fieldPath string) reflect.Value {
	current := val
	for _, part := range strings.Split(fieldPath, ".") {
		if current.Kind() == reflect.Ptr {
			current = current.Elem()
		}
		if current.Kind() != reflect.Struct {
			return reflect.Value{}
		}
		current = current.FieldByName(part)
		if !current.IsValid() {
			return reflect.Value{}
		}
	}
	return current
}
