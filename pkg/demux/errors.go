// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

import "errors"

var (
	// ErrMalformedInput is raised when the character stream does not
	// conform to JSON object grammar at the position it was fed.
	ErrMalformedInput = errors.New("demux: malformed input")

	// ErrUnknownField is raised in strict unknown-field mode when a key
	// is encountered that the schema does not declare.
	ErrUnknownField = errors.New("demux: unknown field")

	// ErrTypeMismatch is raised when a field's declared value kind is
	// incompatible with the JSON token category actually encountered.
	ErrTypeMismatch = errors.New("demux: type mismatch")

	// ErrInvalidEnumValue is raised when an enumerated field's resolved
	// string is not one of its declared members.
	ErrInvalidEnumValue = errors.New("demux: invalid enum value")

	// ErrNumericOverflow is raised when an integer field's token does not
	// fit the target representation.
	ErrNumericOverflow = errors.New("demux: numeric overflow")

	// ErrExtraneousInput is raised when characters are fed after the
	// top-level object has already closed.
	ErrExtraneousInput = errors.New("demux: extraneous input after object close")

	// ErrSchemaMismatch is raised by the conformance checker when a
	// demux Schema diverges from an external model schema.
	ErrSchemaMismatch = errors.New("demux: schema mismatch")

	// ErrAlreadyTerminal is raised when an operation that requires a
	// still-open sink is attempted on one that has already resolved,
	// closed, or failed.
	ErrAlreadyTerminal = errors.New("demux: sink already terminal")

	// ErrAborted is raised on every sink still pending when Abort is
	// called on a Demux.
	ErrAborted = errors.New("demux: aborted")
)
