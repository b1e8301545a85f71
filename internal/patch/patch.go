// Package patch implements the JSON-Patch dialect used to mutate page
// documents: add, remove and replace addressed by slash-delimited paths,
// plus the inverse computation used for undo.
package patch

import (
	"encoding/json"
	"fmt"
)

type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Patch is one atomic instruction. OldValue records the value at Path before
// the patch was applied and is required for inversion of remove and replace.
type Patch struct {
	Op       Op     `json:"op"`
	Path     string `json:"path"`
	Value    any    `json:"value,omitempty"`
	OldValue any    `json:"oldValue,omitempty"`
}

func (o Op) Valid() bool {
	switch o {
	case OpAdd, OpRemove, OpReplace:
		return true
	default:
		return false
	}
}

// MarshalJSON always writes value for add and replace, so a null value
// survives a round trip through UnmarshalJSON.
func (p Patch) MarshalJSON() ([]byte, error) {
	if p.Op == OpAdd || p.Op == OpReplace {
		type withValue struct {
			Op       Op     `json:"op"`
			Path     string `json:"path"`
			Value    any    `json:"value"`
			OldValue any    `json:"oldValue,omitempty"`
		}
		return json.Marshal(withValue(p))
	}
	type plain Patch
	return json.Marshal(plain(p))
}

// UnmarshalJSON rejects add and replace patches that carry no value key.
// An explicit null is accepted.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op       Op              `json:"op"`
		Path     string          `json:"path"`
		Value    json.RawMessage `json:"value"`
		OldValue json.RawMessage `json:"oldValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	next := Patch{Op: raw.Op, Path: raw.Path}
	if _, ok := fields["value"]; ok {
		if err := json.Unmarshal(raw.Value, &next.Value); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
	} else if raw.Op == OpAdd || raw.Op == OpReplace {
		return fmt.Errorf("%w: %s %s requires a value", ErrInvalidOp, raw.Op, raw.Path)
	}
	if _, ok := fields["oldValue"]; ok {
		if err := json.Unmarshal(raw.OldValue, &next.OldValue); err != nil {
			return fmt.Errorf("decode oldValue: %w", err)
		}
	}
	*p = next
	return nil
}

// Validate checks the op and path of every patch without touching a document.
func Validate(patches []Patch) error {
	for i, p := range patches {
		if !p.Op.Valid() {
			return &Error{Index: i, Op: p.Op, Path: p.Path, Err: fmt.Errorf("%w: %q", ErrInvalidOp, p.Op)}
		}
		if _, err := ParsePath(p.Path); err != nil {
			return &Error{Index: i, Op: p.Op, Path: p.Path, Err: err}
		}
	}
	return nil
}

// Invert returns the batch that undoes patches: the order is reversed and
// each op is swapped for its inverse. Results are only correct when every
// remove and replace carries the OldValue captured before it was applied.
func Invert(patches []Patch) []Patch {
	out := make([]Patch, 0, len(patches))
	for i := len(patches) - 1; i >= 0; i-- {
		p := patches[i]
		switch p.Op {
		case OpAdd:
			out = append(out, Patch{Op: OpRemove, Path: p.Path, OldValue: p.Value})
		case OpRemove:
			out = append(out, Patch{Op: OpAdd, Path: p.Path, Value: p.OldValue})
		default:
			out = append(out, Patch{Op: OpReplace, Path: p.Path, Value: p.OldValue, OldValue: p.Value})
		}
	}
	return out
}
