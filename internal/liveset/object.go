// Package liveset is an in-memory model of a music session: tracks, clip
// slots, clips, devices with parameters, a mixer, and a media browser. It
// implements lom.Node so the accessor engine can drive it.
//
// Nothing in this package is safe for concurrent use. The host gives the
// whole graph to a single dispatcher goroutine.
package liveset

import (
	"fmt"
	"sort"

	"github.com/grovetools/lombridge/pkg/lom"
)

// property is one readable, optionally writable, attribute.
type property struct {
	get func() interface{}
	set func(v interface{}) error
}

// object is the attribute table shared by every graph type.
type object struct {
	kind        string
	props       map[string]property
	collections map[string]func() []interface{}
	methods     map[string]func(args []interface{}) (interface{}, error)
	bounds      map[string]func() (float64, float64)
}

func newObject(kind string) object {
	return object{
		kind:        kind,
		props:       map[string]property{},
		collections: map[string]func() []interface{}{},
		methods:     map[string]func([]interface{}) (interface{}, error){},
		bounds:      map[string]func() (float64, float64){},
	}
}

func (o *object) prop(name string, get func() interface{}, set func(interface{}) error) {
	o.props[name] = property{get: get, set: set}
}

func (o *object) collection(name string, items func() []interface{}) {
	o.collections[name] = items
}

func (o *object) method(name string, fn func(args []interface{}) (interface{}, error)) {
	o.methods[name] = fn
}

func (o *object) bound(name string, fn func() (float64, float64)) {
	o.bounds[name] = fn
}

// GetAttribute implements lom.Node.
func (o *object) GetAttribute(name string) (interface{}, error) {
	if p, ok := o.props[name]; ok {
		return p.get(), nil
	}
	if items, ok := o.collections[name]; ok {
		return items(), nil
	}
	return nil, lom.NoAttribute(o.kind + "." + name)
}

// SetAttribute implements lom.Node.
func (o *object) SetAttribute(name string, value interface{}) error {
	p, ok := o.props[name]
	if !ok {
		if _, isCollection := o.collections[name]; isCollection {
			return fmt.Errorf("%w: %s.%s", lom.ErrReadOnly, o.kind, name)
		}
		return lom.NoAttribute(o.kind + "." + name)
	}
	if p.set == nil {
		return fmt.Errorf("%w: %s.%s", lom.ErrReadOnly, o.kind, name)
	}
	return p.set(value)
}

// Invoke implements lom.Node.
func (o *object) Invoke(name string, args []interface{}) (interface{}, error) {
	fn, ok := o.methods[name]
	if !ok {
		if _, exists := o.props[name]; exists {
			return nil, fmt.Errorf("%w: %s.%s", lom.ErrNotCallable, o.kind, name)
		}
		return nil, lom.NoAttribute(o.kind + "." + name)
	}
	return fn(args)
}

// IndexInto implements lom.Node.
func (o *object) IndexInto(name string, index int) (interface{}, error) {
	items, ok := o.collections[name]
	if !ok {
		if _, exists := o.props[name]; exists {
			return nil, fmt.Errorf("%s.%s is not a collection", o.kind, name)
		}
		return nil, lom.NoAttribute(o.kind + "." + name)
	}
	list := items()
	if index < 0 || index >= len(list) {
		return nil, lom.IndexOutOfRange(name, index, len(list))
	}
	return list[index], nil
}

// AttributeBounds implements lom.Bounded.
func (o *object) AttributeBounds(name string) (float64, float64, bool) {
	fn, ok := o.bounds[name]
	if !ok {
		return 0, 0, false
	}
	lo, hi := fn()
	return lo, hi, true
}

// Attributes lists every attribute, collection and method name, sorted.
func (o *object) Attributes() []string {
	names := make([]string, 0, len(o.props)+len(o.collections)+len(o.methods))
	for n := range o.props {
		names = append(names, n)
	}
	for n := range o.collections {
		names = append(names, n)
	}
	for n := range o.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Value coercions used by setters.

func setString(name string, dst *string) func(interface{}) error {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return lom.InvalidValue(name, v)
		}
		*dst = s
		return nil
	}
}

func setBool(name string, dst *bool) func(interface{}) error {
	return func(v interface{}) error {
		switch b := v.(type) {
		case bool:
			*dst = b
		case int:
			if b != 0 && b != 1 {
				return lom.InvalidValue(name, v)
			}
			*dst = b == 1
		default:
			return lom.InvalidValue(name, v)
		}
		return nil
	}
}

// setFloat accepts only float64, mirroring hosts whose float properties
// refuse integer arguments.
func setFloat(name string, dst *float64) func(interface{}) error {
	return func(v interface{}) error {
		f, ok := v.(float64)
		if !ok {
			return lom.InvalidValue(name, v)
		}
		*dst = f
		return nil
	}
}

func setInt(name string, dst *int) func(interface{}) error {
	return func(v interface{}) error {
		i, ok := lom.ToInt(v)
		if !ok {
			return lom.InvalidValue(name, v)
		}
		*dst = i
		return nil
	}
}

func nodes[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// argInt reads positional argument i as an int, or def when absent.
func argInt(args []interface{}, i, def int) (int, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	n, ok := lom.ToInt(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be an integer, got %v", i, args[i])
	}
	return n, nil
}

func argFloat(args []interface{}, i int, def float64) (float64, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	f, ok := lom.ToFloat(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be a number, got %v", i, args[i])
	}
	return f, nil
}
