package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// ApplyEnvOverrides sets struct fields from environment variables named
// PREFIX_FIELD, nesting as PREFIX_PARENT_FIELD (e.g. LINEHTTPD_METRICS_ADDR).
// Unset or empty variables leave the field alone.
func ApplyEnvOverrides(prefix string, target interface{}) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}
	return applyEnvToStruct(prefix, val.Elem())
}

func applyEnvToStruct(prefix string, val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		envKey := prefix + "_" + strings.ToUpper(typ.Field(i).Name)

		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(envKey, field); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("env %s: %w", envKey, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
