package patch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AppendSegment is the final path segment that appends to an array.
const AppendSegment = "-"

// ParsePath splits a pointer such as "/layers/L1/objectIds/0" into its
// segments. The path must start with "/" and name at least one segment.
func ParsePath(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPath, path)
	}
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" {
			continue
		}
		segments = append(segments, unescape(segment))
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %q has no segments", ErrInvalidPath, path)
	}
	return segments, nil
}

// Escape encodes a key for use as one path segment.
func Escape(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
}

func unescape(segment string) string {
	if !strings.Contains(segment, "~") {
		return segment
	}
	return strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~")
}

// Apply mutates root in place. The batch is applied to a working copy first
// and root is only rewritten once every patch succeeded, so a failing batch
// leaves root untouched.
func Apply(root map[string]any, patches []Patch) error {
	if root == nil {
		return fmt.Errorf("%w: nil document", ErrStructural)
	}
	next, err := ApplyClone(root, patches)
	if err != nil {
		return err
	}
	for key := range root {
		delete(root, key)
	}
	for key, value := range next {
		root[key] = value
	}
	return nil
}

// ApplyClone applies patches to a deep copy of root and returns the copy.
// root is never modified. A nil root is treated as an empty document.
func ApplyClone(root map[string]any, patches []Patch) (map[string]any, error) {
	work := map[string]any{}
	if root != nil {
		normalized, err := Normalize(root)
		if err != nil {
			return nil, err
		}
		tree, ok := normalized.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: document is not an object", ErrStructural)
		}
		work = tree
	}
	for i, p := range patches {
		if err := applyOne(work, p); err != nil {
			return nil, &Error{Index: i, Op: p.Op, Path: p.Path, Err: err}
		}
	}
	return work, nil
}

// Normalize converts value into the generic JSON tree form (maps, []any,
// float64, string, bool, nil). The result never aliases value.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out, nil
}

// Get returns the value at path without creating anything.
func Get(root map[string]any, path string) (any, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	var current any = root
	for _, segment := range segments {
		switch container := current.(type) {
		case map[string]any:
			child, ok := container[segment]
			if !ok {
				return nil, structural("key %q not found", segment)
			}
			current = child
		case []any:
			index, err := arrayIndex(segment, len(container)-1)
			if err != nil {
				return nil, err
			}
			current = container[index]
		default:
			return nil, structural("cannot descend into %T at %q", current, segment)
		}
	}
	return current, nil
}

func applyOne(root map[string]any, p Patch) error {
	if !p.Op.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOp, p.Op)
	}
	segments, err := ParsePath(p.Path)
	if err != nil {
		return err
	}

	var value any
	if p.Op != OpRemove {
		if value, err = Normalize(p.Value); err != nil {
			return err
		}
	}

	var parent any = root
	setParent := func(any) {}
	for _, segment := range segments[:len(segments)-1] {
		child, setChild, err := descend(parent, segment)
		if err != nil {
			return err
		}
		parent, setParent = child, setChild
	}

	key := segments[len(segments)-1]
	switch container := parent.(type) {
	case map[string]any:
		return applyToObject(container, p.Op, key, value)
	case []any:
		next, err := applyToArray(container, p.Op, key, value)
		if err != nil {
			return err
		}
		setParent(next)
		return nil
	default:
		return structural("parent of %q is %T, not a container", key, parent)
	}
}

// descend steps one segment down. Missing or null object members are
// created as empty objects; arrays require an in-range index.
func descend(parent any, segment string) (any, func(any), error) {
	switch container := parent.(type) {
	case map[string]any:
		child, ok := container[segment]
		if !ok || child == nil {
			child = map[string]any{}
			container[segment] = child
		}
		return child, func(v any) { container[segment] = v }, nil
	case []any:
		index, err := arrayIndex(segment, len(container)-1)
		if err != nil {
			return nil, nil, err
		}
		return container[index], func(v any) { container[index] = v }, nil
	default:
		return nil, nil, structural("cannot descend into %T at %q", parent, segment)
	}
}

func applyToObject(object map[string]any, op Op, key string, value any) error {
	_, exists := object[key]
	switch op {
	case OpAdd:
		object[key] = value
	case OpReplace:
		if !exists {
			return structural("key %q not found", key)
		}
		object[key] = value
	case OpRemove:
		if !exists {
			return structural("key %q not found", key)
		}
		delete(object, key)
	}
	return nil
}

func applyToArray(array []any, op Op, key string, value any) ([]any, error) {
	switch op {
	case OpAdd:
		index := len(array)
		if key != AppendSegment {
			var err error
			if index, err = arrayIndex(key, len(array)); err != nil {
				return nil, err
			}
		}
		next := make([]any, 0, len(array)+1)
		next = append(next, array[:index]...)
		next = append(next, value)
		return append(next, array[index:]...), nil
	case OpRemove:
		index, err := arrayIndex(key, len(array)-1)
		if err != nil {
			return nil, err
		}
		next := make([]any, 0, len(array)-1)
		next = append(next, array[:index]...)
		return append(next, array[index+1:]...), nil
	default:
		index, err := arrayIndex(key, len(array)-1)
		if err != nil {
			return nil, err
		}
		array[index] = value
		return array, nil
	}
}

// arrayIndex parses a canonical non-negative decimal index no larger than max.
func arrayIndex(segment string, max int) (int, error) {
	index, err := strconv.Atoi(segment)
	if err != nil || index < 0 || strconv.Itoa(index) != segment {
		return 0, structural("%q is not an array index", segment)
	}
	if index > max {
		return 0, structural("index %d out of range", index)
	}
	return index, nil
}
