package lom

import (
	"fmt"
	"math"
	"strings"

	"github.com/grovetools/lombridge/errors"
)

// Action is the operation applied to a resolved attribute.
type Action string

const (
	ActionGet  Action = "get"
	ActionSet  Action = "set"
	ActionCall Action = "call"
)

// ParseAction accepts get, set or call in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionGet, ActionSet, ActionCall:
		return a, nil
	}
	return "", errors.InvalidInput("action", fmt.Sprintf("'%s' is not one of get, set, call", s))
}

// Engine applies get/set/call to string-addressed attributes.
type Engine struct {
	resolver *Resolver
}

// NewEngine returns an Engine resolving paths with r.
func NewEngine(r *Resolver) *Engine {
	return &Engine{resolver: r}
}

// Resolver returns the resolver the engine walks paths with.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Apply resolves path and performs action on the final attribute.
func (e *Engine) Apply(action Action, path string, value interface{}) (interface{}, error) {
	target, err := e.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	if target.IsRoot() {
		return Stringify(target.Parent), nil
	}

	final := *target.Final
	if final.Indexed {
		if action != ActionGet {
			return nil, errors.Accessor(string(action), final.String(),
				fmt.Errorf("indexed targets only support get"))
		}
		element, err := target.Parent.IndexInto(final.Name, final.Index)
		if err != nil {
			return nil, errors.Resolution(target.Path, final.String(), err)
		}
		return DisplayName(element), nil
	}

	switch action {
	case ActionGet:
		return Get(target.Parent, final.Name)
	case ActionSet:
		return Set(target.Parent, final.Name, value)
	case ActionCall:
		return Call(target.Parent, final.Name, value)
	}
	return nil, errors.InvalidInput("action", string(action))
}

// Get reads an attribute and projects it for the client: scalars and null
// pass through, collections become lists of display names, anything else
// is stringified.
func Get(node Node, attr string) (interface{}, error) {
	v, err := node.GetAttribute(attr)
	if err != nil {
		return nil, errors.Accessor("get", attr, err)
	}
	return Project(v), nil
}

// Project applies the Get projection to a raw attribute value.
func Project(v interface{}) interface{} {
	if v == nil || IsScalar(v) {
		return v
	}
	if items, ok := sliceElements(v); ok {
		names := make([]interface{}, len(items))
		for i, item := range items {
			names[i] = DisplayName(item)
		}
		return names
	}
	return Stringify(v)
}

// Set assigns value to attr. Numeric values are clamped whenever the node
// declares bounds for attr. A rejected integer is retried once as a float.
func Set(node Node, attr string, value interface{}) (interface{}, error) {
	if b, ok := node.(Bounded); ok {
		if lo, hi, ok := b.AttributeBounds(attr); ok {
			if f, ok := ToFloat(value); ok {
				value = Clamp(f, lo, hi)
			}
		}
	}

	err := node.SetAttribute(attr, value)
	if err == nil {
		return true, nil
	}
	if isInteger(value) {
		f, _ := ToFloat(value)
		if retryErr := node.SetAttribute(attr, f); retryErr == nil {
			return true, nil
		}
	}
	return nil, errors.Accessor("set", attr, err).WithDetail("value", value)
}

// Call invokes attr. An array value is the argument list, a non-null scalar
// is a single argument, null means no arguments. A null return becomes true.
func Call(node Node, attr string, value interface{}) (interface{}, error) {
	var args []interface{}
	switch v := value.(type) {
	case nil:
	case []interface{}:
		args = v
	default:
		args = []interface{}{v}
	}

	res, err := node.Invoke(attr, args)
	if err != nil {
		return nil, errors.Accessor("call", attr, err)
	}
	if res == nil {
		return true, nil
	}
	if IsScalar(res) {
		return res, nil
	}
	return Stringify(res), nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
