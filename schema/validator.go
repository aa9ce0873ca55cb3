// Package schema checks JSON-compatible values against a JSON Schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/grovetools/lombridge/errors"
)

// Validator holds one compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under name.
func NewValidator(name string, schemaData []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schemaData)); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to add schema resource").WithDetail("schema", name)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to compile schema").WithDetail("schema", name)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks data, which may be any JSON-marshalable value. A failure
// is a CONFIG_VALIDATION error whose "violations" detail lists each
// offending location.
func (v *Validator) Validate(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "value is not JSON-compatible")
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "value is not JSON-compatible")
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	var violations []string
	collect(verr, &violations)
	return errors.New(errors.ErrCodeConfigValidation,
		"schema validation failed:\n"+strings.Join(violations, "\n")).
		WithDetail("violations", violations)
}

// collect flattens the leaf causes of a validation error.
func collect(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("- %s: %s", loc, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collect(cause, out)
	}
}
