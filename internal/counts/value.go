// Package counts aggregates per-content-type record counts into an ordered
// name→count mapping.
package counts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindImmediate Kind = iota
	KindText
	KindDeferred
)

// Producer lazily yields a count. It may return an integer type or any other
// value, which is rendered with fmt's %v verb.
type Producer func(ctx context.Context) (any, error)

// Value is a count entry: an integer known now, a string received from the
// wire, or a deferred producer still to be invoked.
type Value struct {
	kind     Kind
	n        int64
	text     string
	producer Producer
}

// Immediate wraps a known count.
func Immediate(n int64) Value { return Value{kind: KindImmediate, n: n} }

// Text wraps a non-numeric value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Deferred wraps a producer that is invoked on Resolve.
func Deferred(p Producer) Value { return Value{kind: KindDeferred, producer: p} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Int returns the count for an Immediate value.
func (v Value) Int() (int64, bool) {
	return v.n, v.kind == KindImmediate
}

// Resolve collapses a Deferred value by invoking its producer. Integer results
// become Immediate values, anything else becomes Text. Other kinds are
// returned unchanged.
func (v Value) Resolve(ctx context.Context) (Value, error) {
	if v.kind != KindDeferred {
		return v, nil
	}
	if v.producer == nil {
		return Value{}, fmt.Errorf("deferred value has no producer")
	}
	out, err := v.producer(ctx)
	if err != nil {
		return Value{}, err
	}
	switch n := out.(type) {
	case int:
		return Immediate(int64(n)), nil
	case int32:
		return Immediate(int64(n)), nil
	case int64:
		return Immediate(n), nil
	case uint32:
		return Immediate(int64(n)), nil
	case string:
		return Text(n), nil
	default:
		return Text(fmt.Sprintf("%v", out)), nil
	}
}

// String renders a resolved value. Deferred values render as a placeholder;
// call Resolve first.
func (v Value) String() string {
	switch v.kind {
	case KindImmediate:
		return strconv.FormatInt(v.n, 10)
	case KindText:
		return v.text
	default:
		return "<deferred>"
	}
}

// MarshalJSON writes numbers and strings. Deferred values cannot cross the
// wire and must be resolved first.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindImmediate:
		return []byte(strconv.FormatInt(v.n, 10)), nil
	case KindText:
		return json.Marshal(v.text)
	default:
		return nil, fmt.Errorf("cannot encode unresolved deferred value")
	}
}

// UnmarshalJSON accepts integers and strings. Any other JSON value is kept as
// its text form.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*v = Immediate(n)
		return nil
	}
	*v = Text(string(data))
	return nil
}
