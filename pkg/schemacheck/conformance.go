// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package schemacheck checks a demux.Schema for conformance against an
// externally supplied JSON Schema, such as the response_format schema an
// LLM provider was asked to honor. It answers "did the model's declared
// output shape match what we're about to demultiplex", not "is this JSON
// document valid" — the demux package already enforces the latter as it
// parses.
package schemacheck

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/leseb/jsondemux/pkg/demux"
)

const (
	jsonTypeObject  = "object"
	jsonTypeString  = "string"
	jsonTypeInteger = "integer"
	jsonTypeNumber  = "number"
	jsonTypeBoolean = "boolean"
	jsonTypeNull    = "null"
)

// Conforms walks schema against external and returns a path-qualified
// error describing the first divergence, or nil if both declare the same
// field names (each marked required in external) with compatible types
// and, for enumerated fields, exactly the same enum members.
func Conforms(schema *demux.Schema, external *jsonschema.Schema) error {
	return conforms("$", schema, external)
}

func conforms(path string, schema *demux.Schema, external *jsonschema.Schema) error {
	if external == nil {
		return fmt.Errorf("%w: %s: external schema is nil", demux.ErrSchemaMismatch, path)
	}
	if external.Type != "" && external.Type != jsonTypeObject {
		return fmt.Errorf("%w: %s: external schema type %q, want %q", demux.ErrSchemaMismatch, path, external.Type, jsonTypeObject)
	}
	if external.Properties == nil {
		return fmt.Errorf("%w: %s: external schema declares no properties", demux.ErrSchemaMismatch, path)
	}

	required := make(map[string]bool, len(external.Required))
	for _, name := range external.Required {
		required[name] = true
	}

	declared := make(map[string]bool, len(schema.Fields()))
	for _, field := range schema.Fields() {
		declared[field.Name] = true

		fieldPath := path + "." + field.Name

		prop, ok := external.Properties[field.Name]
		if !ok {
			return fmt.Errorf("%w: %s: declared field not present in external schema", demux.ErrSchemaMismatch, fieldPath)
		}
		if !required[field.Name] {
			return fmt.Errorf("%w: %s: external schema does not mark field as required", demux.ErrSchemaMismatch, fieldPath)
		}
		if err := conformsField(fieldPath, field, prop); err != nil {
			return err
		}
	}

	for name := range external.Properties {
		if !declared[name] {
			return fmt.Errorf("%w: %s.%s: external schema property not present in declared schema", demux.ErrSchemaMismatch, path, name)
		}
	}
	return nil
}

func conformsField(path string, field demux.Field, prop *jsonschema.Schema) error {
	if prop == nil {
		return fmt.Errorf("%w: %s: external property schema is nil", demux.ErrSchemaMismatch, path)
	}

	switch field.Value {
	case demux.KindString:
		return expectType(path, prop, jsonTypeString)
	case demux.KindInteger:
		return expectType(path, prop, jsonTypeInteger)
	case demux.KindFloat:
		return expectType(path, prop, jsonTypeNumber)
	case demux.KindBoolean:
		return expectType(path, prop, jsonTypeBoolean)
	case demux.KindNull:
		return expectType(path, prop, jsonTypeNull)
	case demux.KindEnumerated:
		if err := expectType(path, prop, jsonTypeString); err != nil {
			return err
		}
		return conformsEnum(path, field, prop)
	case demux.KindNested:
		if field.Nested == nil {
			return fmt.Errorf("%w: %s: declared nested field has no sub-schema", demux.ErrSchemaMismatch, path)
		}
		return conforms(path, field.Nested, prop)
	default:
		return fmt.Errorf("%w: %s: unrecognized value kind %s", demux.ErrSchemaMismatch, path, field.Value)
	}
}

func expectType(path string, prop *jsonschema.Schema, want string) error {
	if prop.Type == want {
		return nil
	}
	for _, t := range prop.Types {
		if t == want {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: external property type %q (types %v), want %q", demux.ErrSchemaMismatch, path, prop.Type, prop.Types, want)
}

func conformsEnum(path string, field demux.Field, prop *jsonschema.Schema) error {
	if len(prop.Enum) == 0 {
		return fmt.Errorf("%w: %s: external property has no enum constraint", demux.ErrSchemaMismatch, path)
	}
	external := make(map[string]bool, len(prop.Enum))
	for _, v := range prop.Enum {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s: external enum member %v is not a string", demux.ErrSchemaMismatch, path, v)
		}
		external[s] = true
	}
	declared := make(map[string]bool, len(field.Members))
	for _, member := range field.Members {
		declared[member] = true
		if !external[member] {
			return fmt.Errorf("%w: %s: declared enum member %q not present in external schema", demux.ErrSchemaMismatch, path, member)
		}
	}
	for member := range external {
		if !declared[member] {
			return fmt.Errorf("%w: %s: external enum member %q not present in declared schema", demux.ErrSchemaMismatch, path, member)
		}
	}
	return nil
}
