// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package llmfeed

import "github.com/leseb/jsondemux/pkg/demux"

// responseFormatSchema builds the raw JSON Schema document passed as the
// chat completion's response_format.json_schema.schema, mirroring a
// demux.Schema field for field so the model is asked to emit exactly the
// shape the session will demultiplex.
func responseFormatSchema(schema *demux.Schema) map[string]any {
	properties := make(map[string]any, len(schema.Fields()))
	var required []string

	for _, f := range schema.Fields() {
		properties[f.Name] = fieldSchema(f)
		required = append(required, f.Name)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldSchema(f demux.Field) map[string]any {
	switch f.Value {
	case demux.KindString:
		return map[string]any{"type": "string"}
	case demux.KindInteger:
		return map[string]any{"type": "integer"}
	case demux.KindFloat:
		return map[string]any{"type": "number"}
	case demux.KindBoolean:
		return map[string]any{"type": "boolean"}
	case demux.KindNull:
		return map[string]any{"type": "null"}
	case demux.KindEnumerated:
		members := make([]any, len(f.Members))
		for i, m := range f.Members {
			members[i] = m
		}
		return map[string]any{"type": "string", "enum": members}
	case demux.KindNested:
		return responseFormatSchema(f.Nested)
	default:
		return map[string]any{"type": "string"}
	}
}
