// Package lom addresses and manipulates a host's live object graph through a
// small capability interface. It has no knowledge of any concrete host: the
// graph is reached only through Node, and callers supply the roots.
package lom

import (
	stderrors "errors"
	"fmt"
	"reflect"
)

// Node is a handle into the host graph.
//
// Collections are returned from GetAttribute as []interface{}; IndexInto
// fetches a single element of such a collection.
type Node interface {
	GetAttribute(name string) (interface{}, error)
	SetAttribute(name string, value interface{}) error
	Invoke(name string, args []interface{}) (interface{}, error)
	IndexInto(name string, index int) (interface{}, error)
}

// Named is implemented by nodes that carry a display name.
type Named interface {
	Name() string
}

// Bounded is implemented by nodes with numeric attributes restricted to a range.
type Bounded interface {
	AttributeBounds(name string) (min, max float64, ok bool)
}

// Errors a Node implementation returns so callers can classify failures.
var (
	ErrNoAttribute     = stderrors.New("no such attribute")
	ErrIndexOutOfRange = stderrors.New("index out of range")
	ErrNotCallable     = stderrors.New("attribute is not callable")
	ErrReadOnly        = stderrors.New("attribute is read-only")
	ErrInvalidValue    = stderrors.New("invalid value")
)

// NoAttribute wraps ErrNoAttribute with the attribute name.
func NoAttribute(name string) error {
	return fmt.Errorf("%w: %s", ErrNoAttribute, name)
}

// IndexOutOfRange wraps ErrIndexOutOfRange with the collection and index.
func IndexOutOfRange(name string, index, length int) error {
	return fmt.Errorf("%w: %s[%d] (length %d)", ErrIndexOutOfRange, name, index, length)
}

// InvalidValue wraps ErrInvalidValue with the attribute and offending value.
func InvalidValue(name string, value interface{}) error {
	return fmt.Errorf("%w for %s: %v (%T)", ErrInvalidValue, name, value, value)
}

// DisplayName returns the node's name when it has one, otherwise its string form.
func DisplayName(v interface{}) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return Stringify(v)
}

// Stringify renders any value for client consumption.
func Stringify(v interface{}) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// IsScalar reports whether v is a string, bool or number.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// ToFloat converts any Go numeric kind to float64. Booleans are not numeric.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToInt converts integral numeric values to int. Floats with a fractional
// part are rejected.
func ToInt(v interface{}) (int, bool) {
	if isInteger(v) {
		f, _ := ToFloat(v)
		return int(f), true
	}
	if f, ok := ToFloat(v); ok && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// sliceElements returns the elements of any slice or array value.
func sliceElements(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
