package counts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Entry is one name/value pair of a Result.
type Entry struct {
	Name  string
	Value Value
}

// Result is an insertion-ordered mapping from display name to count value.
// Setting an existing name replaces its value but keeps its position.
type Result struct {
	names  []string
	values map[string]Value
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{values: make(map[string]Value)}
}

// Set stores v under name.
func (r *Result) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value stored under name.
func (r *Result) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of entries. A nil Result is empty.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Entries returns the entries in insertion order.
func (r *Result) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, Entry{Name: name, Value: r.values[name]})
	}
	return out
}

// Collapse resolves every deferred value, running at most limit producers at
// once (limit <= 0 means no limit). The first failure cancels the remaining
// producers and is returned; the Result is left untouched in that case.
func (r *Result) Collapse(ctx context.Context, limit int) error {
	entries := r.Entries()
	resolved := make([]Value, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, e := range entries {
		if e.Value.Kind() != KindDeferred {
			resolved[i] = e.Value
			continue
		}
		g.Go(func() error {
			v, err := e.Value.Resolve(gctx)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", e.Name, err)
			}
			resolved[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, e := range entries {
		r.values[e.Name] = resolved[i]
	}
	return nil
}

// MarshalJSON writes a JSON object with keys in insertion order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order. Any other valid
// JSON value (null, a scalar, an array) decodes to an empty Result.
func (r *Result) UnmarshalJSON(data []byte) error {
	*r = Result{values: make(map[string]Value)}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON body")
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding %q: %w", name, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("decoding %q: %w", name, err)
		}
		r.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
