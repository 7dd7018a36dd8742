// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func simpleSchema() *Schema {
	return NewSchema(
		Field{Name: "name", Sink: Single, Value: KindString},
		Field{Name: "age", Sink: Single, Value: KindInteger},
		Field{Name: "score", Sink: Single, Value: KindFloat},
		Field{Name: "active", Sink: Single, Value: KindBoolean},
		Field{Name: "nickname", Sink: Single, Value: KindNull},
		Field{Name: "role", Sink: Single, Value: KindEnumerated, Members: []string{"admin", "user"}},
		Field{Name: "bio", Sink: Stream, Value: KindString},
	)
}

func awaitValue(t *testing.T, sink *SingleSink) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return sink.Await(ctx)
}

func TestScalarFieldsResolveToTypedValues(t *testing.T) {
	d := New(simpleSchema())
	input := `{"name":"Ada","age":36,"score":9.5,"active":true,"nickname":null,"role":"admin","bio":"hi"}`
	if err := d.Feed(input); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !d.IsDone() {
		t.Fatalf("expected demux done")
	}

	cases := []struct {
		field string
		want  any
	}{
		{"name", "Ada"},
		{"age", int64(36)},
		{"score", 9.5},
		{"active", true},
		{"nickname", nil},
		{"role", "admin"},
	}
	for _, tc := range cases {
		sink, ok := d.Single(tc.field)
		if !ok {
			t.Fatalf("field %q not found", tc.field)
		}
		got, err := awaitValue(t, sink)
		if err != nil {
			t.Fatalf("field %q: await error: %v", tc.field, err)
		}
		if got != tc.want {
			t.Fatalf("field %q: got %v, want %v", tc.field, got, tc.want)
		}
	}

	streamSink, _ := d.Stream("bio")
	fragments, terminal, err := streamSink.Snapshot()
	if !terminal || err != nil {
		t.Fatalf("bio: terminal=%v err=%v", terminal, err)
	}
	if strings.Join(fragments, "") != "hi" {
		t.Fatalf("bio: got %q", strings.Join(fragments, ""))
	}
}

func TestChunkBoundariesDoNotAffectResult(t *testing.T) {
	input := `{"name":"Ada","age":36,"score":9.5,"active":true,"nickname":null,"role":"admin","bio":"hello"}`

	whole := New(simpleSchema())
	if err := whole.Feed(input); err != nil {
		t.Fatalf("whole feed: %v", err)
	}

	chunked := New(simpleSchema())
	for _, ch := range input {
		if err := chunked.Feed(string(ch)); err != nil {
			t.Fatalf("chunked feed: %v", err)
		}
	}

	wantName, _ := whole.Single("name")
	gotName, _ := chunked.Single("name")
	wv, _, _ := wantName.Peek()
	gv, _, _ := gotName.Peek()
	if wv != gv {
		t.Fatalf("chunked result diverged: whole=%v chunked=%v", wv, gv)
	}
}

func TestEarlyExposureBeforeObjectCloses(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{"name":"Ada",`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	sink, _ := d.Single("name")
	v, _, terminal := sink.Peek()
	if !terminal || v != "Ada" {
		t.Fatalf("expected name resolved early, got terminal=%v v=%v", terminal, v)
	}
	if d.IsDone() {
		t.Fatalf("object should not be done yet")
	}
}

func TestStreamFragmentReplayForLateSubscriber(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{"bio":"ab`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	sink, _ := d.Stream("bio")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- sink.Iterate(ctx, func(fragment string) error {
			seen = append(seen, fragment)
			if len(seen) == 3 {
				return errStopIteration
			}
			return nil
		})
	}()

	if err := d.Feed(`c","name":"Ada"}`); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	err := <-done
	if !errors.Is(err, errStopIteration) {
		t.Fatalf("iterate error: %v", err)
	}
	if strings.Join(seen, "") != "abc" {
		t.Fatalf("got fragments %v", seen)
	}
}

var errStopIteration = errors.New("stop")

func TestUnknownFieldStrictFailsWholeObject(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"name":"Ada","extra":1}`)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("got %v, want ErrUnknownField", err)
	}
	sink, _ := d.Single("age")
	_, err, terminal := sink.Peek()
	if !terminal || !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected age sink failed with ErrUnknownField, got terminal=%v err=%v", terminal, err)
	}
}

func TestUnknownFieldIgnoreSkipsValue(t *testing.T) {
	d := New(simpleSchema(), WithUnknownFieldMode(UnknownFieldIgnore))
	err := d.Feed(`{"extra":{"a":[1,2,"x\"y"],"b":true},"name":"Ada"}`)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	sink, _ := d.Single("name")
	v, err, terminal := sink.Peek()
	if !terminal || err != nil || v != "Ada" {
		t.Fatalf("name: v=%v err=%v terminal=%v", v, err, terminal)
	}
}

func TestTypeMismatchFailsFieldAndPoisonsDemux(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"name":123,"age":36}`)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("got %v, want ErrTypeMismatch", err)
	}
	nameSink, _ := d.Single("name")
	_, err, terminal := nameSink.Peek()
	if !terminal || !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("name: terminal=%v err=%v", terminal, err)
	}
	ageSink, _ := d.Single("age")
	v, err, terminal := ageSink.Peek()
	if !terminal || !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("age: expected failed by poisoning, v=%v err=%v terminal=%v", v, err, terminal)
	}
}

func TestInvalidEnumValue(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"role":"superuser"}`)
	if !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("got %v, want ErrInvalidEnumValue", err)
	}
	sink, _ := d.Single("role")
	_, err, terminal := sink.Peek()
	if !terminal || !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("terminal=%v err=%v", terminal, err)
	}
}

func TestExtraneousInputAfterClose(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{}`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	err := d.Feed(`x`)
	if !errors.Is(err, ErrExtraneousInput) {
		t.Fatalf("got %v, want ErrExtraneousInput", err)
	}
}

func TestEscapeSequencesDecode(t *testing.T) {
	d := New(simpleSchema())
	input := `{"name":"line1\nline2\ttabAé"}`
	if err := d.Feed(input); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	sink, _ := d.Single("name")
	v, err, terminal := sink.Peek()
	if !terminal || err != nil {
		t.Fatalf("terminal=%v err=%v", terminal, err)
	}
	want := "line1\nline2\ttabAé"
	if v != want {
		t.Fatalf("got %q, want %q", v, want)
	}
}

func TestSurrogatePairDecodesToSingleRune(t *testing.T) {
	d := New(simpleSchema())
	// U+1F600 GRINNING FACE encoded as a UTF-16 surrogate pair.
	input := "{\"name\":\"\\uD83D\\uDE00\"}"
	if err := d.Feed(input); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	sink, _ := d.Single("name")
	v, err, terminal := sink.Peek()
	if !terminal || err != nil {
		t.Fatalf("terminal=%v err=%v", terminal, err)
	}
	if v != "\U0001F600" {
		t.Fatalf("got %q", v)
	}
}

func TestNestedObjectExposesSubDemuxEarly(t *testing.T) {
	inner := NewSchema(
		Field{Name: "city", Sink: Single, Value: KindString},
	)
	outer := NewSchema(
		Field{Name: "address", Sink: Single, Value: KindNested, Nested: inner},
		Field{Name: "name", Sink: Single, Value: KindString},
	)
	d := New(outer)
	if err := d.Feed(`{"address":{"city":"Porto`); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	addrSink, _ := d.Single("address")
	v, _, terminal := addrSink.Peek()
	if !terminal {
		t.Fatalf("expected address resolved (sub-demux exposed) before nested object closes")
	}
	child, ok := v.(*Demux)
	if !ok {
		t.Fatalf("expected *Demux, got %T", v)
	}
	citySink, _ := child.Single("city")
	if _, _, terminal := citySink.Peek(); terminal {
		t.Fatalf("city should not be resolved yet")
	}

	if err := d.Feed(`"},"name":"Ada"}`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	cv, cerr, cterminal := citySink.Peek()
	if !cterminal || cerr != nil || cv != "Porto" {
		t.Fatalf("city: v=%v err=%v terminal=%v", cv, cerr, cterminal)
	}
	if !d.IsDone() {
		t.Fatalf("expected outer object done")
	}
}

func TestAbortFailsAllPendingSinks(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{"name":"Ada",`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	myErr := errors.New("connection lost")
	d.Abort(myErr)

	ageSink, _ := d.Single("age")
	_, err, terminal := ageSink.Peek()
	if !terminal || !errors.Is(err, myErr) {
		t.Fatalf("age: terminal=%v err=%v", terminal, err)
	}

	nameSink, _ := d.Single("name")
	v, err, terminal := nameSink.Peek()
	if !terminal || err != nil || v != "Ada" {
		t.Fatalf("name should remain resolved after abort: v=%v err=%v terminal=%v", v, err, terminal)
	}
}

func TestDuplicateKeyIsAlreadyTerminalError(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"name":"Ada","name":"Grace"}`)
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("got %v, want ErrAlreadyTerminal", err)
	}
}

func TestFloatShapedTokenOnIntegerFieldIsTypeMismatch(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"age":36.5}`)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("got %v, want ErrTypeMismatch", err)
	}
	if errors.Is(err, ErrNumericOverflow) {
		t.Fatalf("got ErrNumericOverflow, want ErrTypeMismatch only")
	}
}

func TestIntegerOverflowIsNumericOverflow(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"age":99999999999999999999}`)
	if !errors.Is(err, ErrNumericOverflow) {
		t.Fatalf("got %v, want ErrNumericOverflow", err)
	}
}

func TestSecondResolvePanics(t *testing.T) {
	s := NewSingleSink()
	s.Resolve("first")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on second Resolve")
		}
	}()
	s.Resolve("second")
}

func TestSecondStreamClosePanics(t *testing.T) {
	s := NewStreamSink()
	s.Close()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on second Close")
		}
	}()
	s.Close()
}

func TestNumberGrammarRejectsLeadingZero(t *testing.T) {
	d := New(simpleSchema())
	err := d.Feed(`{"age":01}`)
	if err == nil {
		t.Fatalf("expected malformed input error for leading zero")
	}
}

func TestNegativeAndExponentNumbers(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{"age":-42,"score":1.5e3}`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	ageSink, _ := d.Single("age")
	v, err, terminal := ageSink.Peek()
	if !terminal || err != nil || v != int64(-42) {
		t.Fatalf("age: v=%v err=%v terminal=%v", v, err, terminal)
	}
	scoreSink, _ := d.Single("score")
	sv, serr, sterminal := scoreSink.Peek()
	if !sterminal || serr != nil || sv != 1500.0 {
		t.Fatalf("score: v=%v err=%v terminal=%v", sv, serr, sterminal)
	}
}

func TestSnapshotOmitsPendingAndFailedFields(t *testing.T) {
	d := New(simpleSchema())
	if err := d.Feed(`{"name":"Ada",`); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	snap := d.Snapshot()
	if snap["name"] != "Ada" {
		t.Fatalf("expected name in snapshot, got %v", snap)
	}
	if _, ok := snap["age"]; ok {
		t.Fatalf("expected age omitted (pending), got %v", snap["age"])
	}
	if err := d.Feed(`"role":"bogus"`); !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("got %v, want ErrInvalidEnumValue", err)
	}
	snap = d.Snapshot()
	if _, ok := snap["role"]; ok {
		t.Fatalf("expected role omitted (failed), got %v", snap["role"])
	}
}
