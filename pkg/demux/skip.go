// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

// valueSkipper consumes one well-formed JSON value without interpreting
// it, used to discard the value of an unknown field when a Demux is
// configured with UnknownFieldIgnore. It tracks string and container
// nesting precisely enough to find the value's end; it does not fully
// validate grammar inside skipped containers (e.g. comma placement).
type valueSkipper struct {
	state int // 0 init, 1 string, 2 number, 3 literal, 4 container

	strDec stringDecoder
	numSc  numberScanner

	litWant string
	litGot  int

	depth           int
	inStr           bool
	containerStrDec stringDecoder
}

// feed reports whether ch was consumed by the skipped value, and whether
// the value is now complete. consumed=false with done=true means ch
// terminates the value (a number's terminator) and must be reprocessed by
// the caller's outer state.
func (vs *valueSkipper) feed(ch rune) (consumed bool, done bool, err error) {
	switch vs.state {
	case 0:
		switch {
		case ch == '"':
			vs.state = 1
			vs.strDec = stringDecoder{}
			return true, false, nil
		case ch == '-' || isDigit(ch):
			vs.state = 2
			vs.numSc = numberScanner{}
			if _, err := vs.numSc.feed(ch); err != nil {
				return true, false, err
			}
			return true, false, nil
		case ch == 't':
			vs.state = 3
			vs.litWant = "true"
			vs.litGot = 1
			return true, false, nil
		case ch == 'f':
			vs.state = 3
			vs.litWant = "false"
			vs.litGot = 1
			return true, false, nil
		case ch == 'n':
			vs.state = 3
			vs.litWant = "null"
			vs.litGot = 1
			return true, false, nil
		case ch == '{' || ch == '[':
			vs.state = 4
			vs.depth = 1
			return true, false, nil
		}
		return false, false, ErrMalformedInput
	case 1:
		_, _, closed, err := vs.strDec.feed(ch)
		if err != nil {
			return true, false, err
		}
		return true, closed, nil
	case 2:
		extends, err := vs.numSc.feed(ch)
		if err != nil {
			return true, false, err
		}
		if !extends {
			return false, true, nil
		}
		return true, false, nil
	case 3:
		if byte(ch) != vs.litWant[vs.litGot] {
			return false, false, ErrMalformedInput
		}
		vs.litGot++
		return true, vs.litGot == len(vs.litWant), nil
	case 4:
		if vs.inStr {
			_, _, closed, err := vs.containerStrDec.feed(ch)
			if err != nil {
				return true, false, err
			}
			if closed {
				vs.inStr = false
			}
			return true, false, nil
		}
		switch ch {
		case '"':
			vs.inStr = true
			vs.containerStrDec = stringDecoder{}
			return true, false, nil
		case '{', '[':
			vs.depth++
			return true, false, nil
		case '}', ']':
			vs.depth--
			return true, vs.depth == 0, nil
		default:
			return true, false, nil
		}
	}
	return false, false, ErrMalformedInput
}
