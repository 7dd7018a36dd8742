// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package demux implements a streaming JSON object demultiplexer: a
// character-driven state machine that routes a single top-level object's
// field values to per-field sinks as they arrive, rather than waiting for
// the whole object to close. Callers declare a Schema up front, feed
// characters as they are produced by whatever transport carries them, and
// await or iterate individual fields independently of one another and of
// the object's overall completion.
package demux

import (
	"fmt"
)

type lexState int

const (
	stBeforeObject lexState = iota
	stAfterOpenBrace
	stInKey
	stAfterKey
	stExpectValue
	stInValueString
	stInValueStreamString
	stInValueNumber
	stInValueLiteral
	stInValueNested
	stInValueSkip
	stAfterValue
	stAfterComma
	stDone
)

// UnknownFieldMode controls how a Demux reacts to an object key that the
// Schema does not declare.
type UnknownFieldMode int

const (
	// UnknownFieldStrict fails the whole Demux the moment an undeclared
	// key is encountered.
	UnknownFieldStrict UnknownFieldMode = iota
	// UnknownFieldIgnore discards the value of an undeclared key and
	// continues parsing the rest of the object.
	UnknownFieldIgnore
)

// Option configures a Demux at construction time.
type Option func(*Demux)

// WithUnknownFieldMode sets how undeclared keys are handled. The default
// is UnknownFieldStrict.
func WithUnknownFieldMode(mode UnknownFieldMode) Option {
	return func(d *Demux) { d.unknownMode = mode }
}

// Demux is a single top-level JSON object's demultiplexing session. It is
// safe for its sinks to be read (Await/Iterate/Snapshot) concurrently with
// Feed calls; Feed itself assumes a single feeding goroutine, per the
// single-threaded-feeder model.
type Demux struct {
	schema      *Schema
	unknownMode UnknownFieldMode

	state lexState

	poisoned  bool
	poisonErr error
	fieldErr  error

	keyDecoder stringDecoder
	keyBuf     []rune

	currentField *Field

	valDecoder stringDecoder
	valBuf     []rune

	numSc  numberScanner
	numBuf []rune

	litWant string
	litGot  int

	nestedChild *Demux

	skipper *valueSkipper

	singles map[string]*SingleSink
	streams map[string]*StreamSink
}

// New returns a Demux ready to accept characters for the given schema.
func New(schema *Schema, opts ...Option) *Demux {
	d := &Demux{
		schema:  schema,
		singles: make(map[string]*SingleSink),
		streams: make(map[string]*StreamSink),
	}
	for _, f := range schema.Fields() {
		if f.Sink == Stream {
			d.streams[f.Name] = NewStreamSink()
		} else {
			d.singles[f.Name] = NewSingleSink()
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Single returns the named field's Single sink, if it is declared with
// Single sink kind.
func (d *Demux) Single(name string) (*SingleSink, bool) {
	s, ok := d.singles[name]
	return s, ok
}

// Stream returns the named field's Stream sink, if it is declared with
// Stream sink kind.
func (d *Demux) Stream(name string) (*StreamSink, bool) {
	s, ok := d.streams[name]
	return s, ok
}

// Schema returns the schema this Demux was constructed with.
func (d *Demux) Schema() *Schema { return d.schema }

// IsDone reports whether the top-level object has closed.
func (d *Demux) IsDone() bool { return d.state == stDone }

// Feed processes chunk's characters in order. Chunk boundaries never
// affect the result: feeding "ab" then "c" is equivalent to feeding "abc"
// in one call.
func (d *Demux) Feed(chunk string) error {
	for _, ch := range chunk {
		if err := d.feedOne(ch); err != nil {
			return err
		}
	}
	return nil
}

// FeedChunks feeds each chunk in order, as repeated calls to Feed.
func (d *Demux) FeedChunks(chunks ...string) error {
	for _, c := range chunks {
		if err := d.Feed(c); err != nil {
			return err
		}
	}
	return nil
}

// Abort fails every currently pending sink with err (or ErrAborted if err
// is nil) and marks the Demux terminally poisoned. It is safe to call at
// any time, including after the object has already closed, in which case
// it has no effect.
func (d *Demux) Abort(err error) {
	if d.state == stDone || d.poisoned {
		return
	}
	if err == nil {
		err = ErrAborted
	}
	d.poison(err)
}

func (d *Demux) poison(err error) error {
	d.poisoned = true
	d.poisonErr = err
	d.failAllPending(err)
	return err
}

// fieldAlreadyTerminal reports whether field's sink has already resolved,
// closed, or failed, as happens when the same key appears twice in an
// object. Nested fields check their Single wrapper sink, the same one
// Resolve(child) populates when the nested object is first entered.
func (d *Demux) fieldAlreadyTerminal(field Field) bool {
	if field.Sink == Stream {
		_, terminal, _ := d.streams[field.Name].Snapshot()
		return terminal
	}
	_, _, terminal := d.singles[field.Name].Peek()
	return terminal
}

// failAllPending fails every sink not already terminal. Sinks that have
// already resolved, closed, or failed are left untouched: Abort only
// reaches into what's still pending, and the sink types panic on a
// second terminal transition, so an already-terminal sink must never
// reach Fail here.
func (d *Demux) failAllPending(err error) {
	for _, s := range d.singles {
		if _, _, terminal := s.Peek(); !terminal {
			s.Fail(err)
		}
	}
	for _, s := range d.streams {
		if _, terminal, _ := s.Snapshot(); !terminal {
			s.Fail(err)
		}
	}
	if d.nestedChild != nil {
		d.nestedChild.Abort(err)
	}
}

// Snapshot returns a coerced value for every field that has reached a
// terminal, successful state. Fields still pending, or that failed, are
// omitted. Stream fields are represented as their concatenated fragments.
// Nested fields are represented as their own Snapshot.
func (d *Demux) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, f := range d.schema.Fields() {
		switch f.Sink {
		case Stream:
			sink := d.streams[f.Name]
			fragments, terminal, err := sink.Snapshot()
			if !terminal || err != nil {
				continue
			}
			joined := ""
			for _, frag := range fragments {
				joined += frag
			}
			out[f.Name] = joined
		default:
			sink := d.singles[f.Name]
			v, err, terminal := sink.Peek()
			if !terminal || err != nil {
				continue
			}
			if f.Value == KindNested {
				if child, ok := v.(*Demux); ok {
					out[f.Name] = child.Snapshot()
					continue
				}
			}
			out[f.Name] = v
		}
	}
	return out
}

func (d *Demux) feedOne(ch rune) error {
	if d.poisoned {
		return d.poisonErr
	}
	for {
		consumed, err := d.step(ch)
		if err == nil {
			err = d.fieldErr
		}
		if err != nil {
			return d.poison(err)
		}
		if consumed {
			return nil
		}
	}
}

// step processes ch against the current state. consumed=false means ch
// was not part of the current token and must be reprocessed against the
// state step just transitioned to.
func (d *Demux) step(ch rune) (consumed bool, err error) {
	switch d.state {
	case stBeforeObject:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		if ch != '{' {
			return false, ErrMalformedInput
		}
		d.state = stAfterOpenBrace
		return true, nil

	case stAfterOpenBrace:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		if ch == '}' {
			d.state = stDone
			return true, nil
		}
		if ch == '"' {
			d.keyDecoder = stringDecoder{}
			d.keyBuf = d.keyBuf[:0]
			d.state = stInKey
			return true, nil
		}
		return false, ErrMalformedInput

	case stAfterComma:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		if ch == '"' {
			d.keyDecoder = stringDecoder{}
			d.keyBuf = d.keyBuf[:0]
			d.state = stInKey
			return true, nil
		}
		return false, ErrMalformedInput

	case stInKey:
		out, have, closed, err := d.keyDecoder.feed(ch)
		if err != nil {
			return true, err
		}
		if have {
			d.keyBuf = append(d.keyBuf, out)
		}
		if closed {
			name := string(d.keyBuf)
			field, ok := d.schema.Lookup(name)
			if !ok {
				if d.unknownMode == UnknownFieldStrict {
					return true, fmt.Errorf("%w: %q", ErrUnknownField, name)
				}
				d.currentField = nil
			} else {
				if d.fieldAlreadyTerminal(field) {
					return true, fmt.Errorf("%w: field %q already resolved, duplicate key in object", ErrAlreadyTerminal, name)
				}
				fcopy := field
				d.currentField = &fcopy
			}
			d.state = stAfterKey
		}
		return true, nil

	case stAfterKey:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		if ch != ':' {
			return false, ErrMalformedInput
		}
		d.state = stExpectValue
		return true, nil

	case stExpectValue:
		return d.stepExpectValue(ch)

	case stInValueString:
		out, have, closed, err := d.valDecoder.feed(ch)
		if err != nil {
			return true, err
		}
		if have {
			d.valBuf = append(d.valBuf, out)
		}
		if closed {
			d.resolveStringValue(string(d.valBuf))
			d.state = stAfterValue
		}
		return true, nil

	case stInValueStreamString:
		out, have, closed, err := d.valDecoder.feed(ch)
		if err != nil {
			return true, err
		}
		if have {
			d.streams[d.currentField.Name].Push(string(out))
		}
		if closed {
			d.streams[d.currentField.Name].Close()
			d.state = stAfterValue
		}
		return true, nil

	case stInValueNumber:
		extends, err := d.numSc.feed(ch)
		if err != nil {
			return true, err
		}
		if !extends {
			d.resolveNumberValue(string(d.numBuf))
			d.state = stAfterValue
			return false, nil
		}
		d.numBuf = append(d.numBuf, ch)
		return true, nil

	case stInValueLiteral:
		if byte(ch) != d.litWant[d.litGot] {
			return false, ErrMalformedInput
		}
		d.litGot++
		if d.litGot == len(d.litWant) {
			d.resolveLiteralValue(d.litWant)
			d.state = stAfterValue
		}
		return true, nil

	case stInValueNested:
		if err := d.nestedChild.feedOne(ch); err != nil {
			return true, err
		}
		if d.nestedChild.IsDone() {
			d.nestedChild = nil
			d.state = stAfterValue
		}
		return true, nil

	case stInValueSkip:
		consumed, done, err := d.skipper.feed(ch)
		if err != nil {
			return true, err
		}
		if done {
			d.skipper = nil
			d.state = stAfterValue
		}
		return consumed, nil

	case stAfterValue:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		switch ch {
		case ',':
			d.state = stAfterComma
			return true, nil
		case '}':
			d.state = stDone
			return true, nil
		}
		return false, ErrMalformedInput

	case stDone:
		if isJSONWhitespace(ch) {
			return true, nil
		}
		return false, ErrExtraneousInput
	}
	return false, ErrMalformedInput
}

func (d *Demux) stepExpectValue(ch rune) (consumed bool, err error) {
	if isJSONWhitespace(ch) {
		return true, nil
	}

	if d.currentField == nil {
		d.skipper = &valueSkipper{}
		d.state = stInValueSkip
		return d.step(ch)
	}

	field := d.currentField

	switch {
	case ch == '"':
		d.valDecoder = stringDecoder{}
		if field.Sink == Stream {
			d.state = stInValueStreamString
		} else {
			d.valBuf = d.valBuf[:0]
			d.state = stInValueString
		}
		return true, nil

	case ch == '-' || isDigit(ch):
		d.numSc = numberScanner{}
		d.numBuf = d.numBuf[:0]
		if _, err := d.numSc.feed(ch); err != nil {
			return true, err
		}
		d.numBuf = append(d.numBuf, ch)
		d.state = stInValueNumber
		return true, nil

	case ch == 't' || ch == 'f' || ch == 'n':
		switch ch {
		case 't':
			d.litWant = "true"
		case 'f':
			d.litWant = "false"
		case 'n':
			d.litWant = "null"
		}
		d.litGot = 1
		d.state = stInValueLiteral
		return true, nil

	case ch == '{':
		if field.Value != KindNested {
			d.failField(field, fmt.Errorf("%w: field %q declared %s, got object", ErrTypeMismatch, field.Name, field.Value))
			d.skipper = &valueSkipper{}
			d.state = stInValueSkip
			return d.step(ch)
		}
		child := New(field.Nested, WithUnknownFieldMode(d.unknownMode))
		d.singles[field.Name].Resolve(child)
		d.nestedChild = child
		d.state = stInValueNested
		if err := child.feedOne(ch); err != nil {
			return true, err
		}
		return true, nil
	}

	return false, ErrMalformedInput
}

func (d *Demux) resolveStringValue(s string) {
	field := d.currentField
	v, err := coerceStringToken(*field, s)
	if err != nil {
		d.failField(field, err)
		return
	}
	d.singles[field.Name].Resolve(v)
}

func (d *Demux) resolveNumberValue(raw string) {
	field := d.currentField
	v, err := coerceNumberToken(*field, raw)
	if err != nil {
		d.failField(field, err)
		return
	}
	d.singles[field.Name].Resolve(v)
}

func (d *Demux) resolveLiteralValue(literal string) {
	field := d.currentField
	v, err := coerceLiteralToken(*field, literal)
	if err != nil {
		d.failField(field, err)
		return
	}
	d.singles[field.Name].Resolve(v)
}

// failField fails whichever sink kind field declares and records err, so
// that feedOne returns it from the current Feed call and poisons the
// Demux. Used for coercion errors (type mismatch, invalid enum value,
// numeric overflow), where the object's value kind (Single vs Stream) may
// not be the one the mismatch was detected against.
func (d *Demux) failField(field *Field, err error) {
	d.fieldErr = err
	if field.Sink == Stream {
		if s, ok := d.streams[field.Name]; ok {
			s.Fail(err)
		}
		return
	}
	if s, ok := d.singles[field.Name]; ok {
		s.Fail(err)
	}
}
