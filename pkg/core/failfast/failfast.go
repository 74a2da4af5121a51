// Package failfast turns programming-contract violations into panics.
// It is never used for conditions a caller could recover from.
package failfast

import (
	"fmt"
	"reflect"
)

// If panics with a formatted message unless condition holds.
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("fail-fast: "+message, args...))
	}
}

// NotNil panics if v is nil, including typed nil pointers, funcs,
// maps, slices, channels and interfaces.
func NotNil(v interface{}, name string) {
	if v == nil {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Errorf("fail-fast: %s is nil", name))
		}
	}
}

// Positive panics unless n > 0.
func Positive(n int, name string) {
	If(n > 0, "%s must be positive, got %d", name, n)
}
