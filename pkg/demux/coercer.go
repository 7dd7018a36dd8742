// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

import (
	"fmt"
	"strconv"
	"strings"
)

// coerceStringToken converts a decoded JSON string token to the value
// declared by field. Only KindString and KindEnumerated accept a string
// token.
func coerceStringToken(field Field, decoded string) (any, error) {
	switch field.Value {
	case KindString:
		return decoded, nil
	case KindEnumerated:
		for _, member := range field.Members {
			if member == decoded {
				return decoded, nil
			}
		}
		return nil, fmt.Errorf("%w: field %q value %q not in %v", ErrInvalidEnumValue, field.Name, decoded, field.Members)
	default:
		return nil, fmt.Errorf("%w: field %q declared %s, got string token", ErrTypeMismatch, field.Name, field.Value)
	}
}

// coerceNumberToken converts a raw JSON number token (already validated
// by the lexer's number grammar) to the value declared by field. Only
// KindInteger and KindFloat accept a number token.
func coerceNumberToken(field Field, raw string) (any, error) {
	switch field.Value {
	case KindInteger:
		if strings.ContainsAny(raw, ".eE") {
			return nil, fmt.Errorf("%w: field %q declared integer, got float-shaped number %q", ErrTypeMismatch, field.Name, raw)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q value %q: %v", ErrNumericOverflow, field.Name, raw, err)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q value %q: %v", ErrNumericOverflow, field.Name, raw, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: field %q declared %s, got number token", ErrTypeMismatch, field.Name, field.Value)
	}
}

// coerceLiteralToken converts a bare JSON literal (true, false, null) to
// the value declared by field. Only KindBoolean and KindNull accept a
// literal token.
func coerceLiteralToken(field Field, literal string) (any, error) {
	switch field.Value {
	case KindBoolean:
		switch literal {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case KindNull:
		if literal == "null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: field %q declared %s, got literal %q", ErrTypeMismatch, field.Name, field.Value, literal)
}
