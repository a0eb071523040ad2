// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procps

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrDecode matches every *DecodeError.
var ErrDecode = errors.New("procps: decode failed")

// DecodeError reports a string buffer from the source that is not a terminated UTF-8
// string. It means the binding and the library disagree on a record layout.
type DecodeError struct {
	Field  string
	Index  int
	Reason string
	Raw    []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("procps: decoding %s[%d]: %s (%q)", e.Field, e.Index, e.Reason, e.Raw)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// DecodeName converts a fixed-size NUL-terminated name buffer into an owned string.
// The buffer must contain a terminator and the bytes before it must be valid UTF-8.
func DecodeName(field string, index int, buf []byte) (string, error) {
	end := bytes.IndexByte(buf, 0)
	if end < 0 {
		return "", &DecodeError{
			Field:  field,
			Index:  index,
			Reason: fmt.Sprintf("no terminator within %d bytes", len(buf)),
			Raw:    bytes.Clone(buf),
		}
	}
	if !utf8.Valid(buf[:end]) {
		return "", &DecodeError{
			Field:  field,
			Index:  index,
			Reason: "invalid UTF-8",
			Raw:    bytes.Clone(buf[:end]),
		}
	}
	return string(buf[:end]), nil
}

// DecodePair turns a two-slot output buffer into an optional value. The first slot that
// is non-nil and non-zero supplies the value. When no slot carries a non-zero value but
// at least one slot is non-nil the counter is present and zero. When both slots are nil
// the counter is unsupported and nil is returned.
//
// A present zero and an unsupported counter whose source wrote zero into a live slot
// cannot be told apart; the null slot is the only absence signal.
func DecodePair[T Counter](p Pair[T]) *T {
	present := false
	for _, slot := range p {
		if slot == nil {
			continue
		}
		present = true
		if *slot != 0 {
			v := *slot
			return &v
		}
	}
	if !present {
		return nil
	}
	var zero T
	return &zero
}

// DecodeScalar copies a single output slot. A nil slot is unsupported.
func DecodeScalar[T Counter](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NewPair returns a pair whose slots point into scratch, ready to be passed to a Source.
func NewPair[T Counter](scratch *[2]T) Pair[T] {
	return Pair[T]{&scratch[0], &scratch[1]}
}

// PutString copies s into a fixed-size name buffer, truncating to leave room for the
// terminator. It is the inverse of DecodeName for sources that build records in Go.
func PutString(buf []byte, s string) {
	clear(buf)
	if len(buf) == 0 {
		return
	}
	copy(buf[:len(buf)-1], s)
}
