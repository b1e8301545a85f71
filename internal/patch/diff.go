package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wI2L/jsondiff"
)

// Diff computes the batch that turns from into to. The result only uses
// add, remove and replace, and carries old values so it can be inverted.
func Diff(from, to map[string]any) ([]Patch, error) {
	source, err := Normalize(from)
	if err != nil {
		return nil, err
	}
	target, err := Normalize(to)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = map[string]any{}
	}
	if target == nil {
		target = map[string]any{}
	}

	operations, err := jsondiff.Compare(source, target)
	if err != nil {
		return nil, fmt.Errorf("compare documents: %w", err)
	}

	patches := make([]Patch, 0, len(operations))
	for _, operation := range operations {
		op := Op(operation.Type)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: diff produced %q", ErrInvalidOp, operation.Type)
		}
		next := Patch{Op: op, Path: string(operation.Path)}
		if op != OpRemove {
			next.Value = operation.Value
		}
		patches = append(patches, next)
	}

	root, _ := source.(map[string]any)
	return CaptureOldValues(root, patches)
}

// CaptureOldValues returns a copy of patches where every remove and replace
// without an OldValue records the value it overwrites, and every array append
// ("-") is pinned to the index it lands on so the batch can be inverted. The
// batch is simulated on a copy of root; root itself is not modified.
func CaptureOldValues(root map[string]any, patches []Patch) ([]Patch, error) {
	work, err := ApplyClone(root, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Patch, len(patches))
	for i, p := range patches {
		if p.Op == OpAdd && strings.HasSuffix(p.Path, "/"+AppendSegment) {
			parentPath := strings.TrimSuffix(p.Path, "/"+AppendSegment)
			if parent, err := Get(work, parentPath); err == nil {
				if array, ok := parent.([]any); ok {
					p.Path = parentPath + "/" + strconv.Itoa(len(array))
				}
			}
		}
		if p.Op != OpAdd && p.OldValue == nil {
			if current, err := Get(work, p.Path); err == nil {
				p.OldValue = current
			}
		}
		if err := applyOne(work, p); err != nil {
			return nil, &Error{Index: i, Op: p.Op, Path: p.Path, Err: err}
		}
		out[i] = p
	}
	return out, nil
}
