// Package command turns editing intents into patch batches against a
// domain.Doc and keeps them on an undo/redo history.
package command

import (
	"errors"
	"fmt"

	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Command is one named editing operation. Do applies the command to doc and
// returns the forward batch with old values filled in. Undo reverts a batch
// that Do produced.
type Command interface {
	Name() string
	Do(doc *domain.Doc) ([]patch.Patch, error)
	Undo(doc *domain.Doc, patches []patch.Patch) error
}

// UndoPatches applies the inverse of patches. Commands without special undo
// needs delegate to it.
func UndoPatches(doc *domain.Doc, patches []patch.Patch) error {
	return doc.Apply(patch.Invert(patches))
}

// InsertShape puts Shape at the back of the layer addressed by LayerPath
// (e.g. "/layers/{id}").
type InsertShape struct {
	LayerPath string
	Shape     domain.Shape
}

func (c InsertShape) Name() string { return "InsertShape" }

func (c InsertShape) Do(doc *domain.Doc) ([]patch.Patch, error) {
	if c.Shape.ID == "" || c.Shape.Props == nil {
		return nil, fmt.Errorf("%w: shape needs an id and a kind", ErrInvalidInput)
	}
	if c.LayerPath == "" {
		return nil, fmt.Errorf("%w: layer path is required", ErrInvalidInput)
	}
	patches := []patch.Patch{
		{Op: patch.OpAdd, Path: c.LayerPath + "/objectIds/0", Value: c.Shape.ID},
		{Op: patch.OpAdd, Path: shapePath(c.Shape.ID), Value: c.Shape},
	}
	if err := doc.Apply(patches); err != nil {
		return nil, err
	}
	return patches, nil
}

func (c InsertShape) Undo(doc *domain.Doc, patches []patch.Patch) error {
	return UndoPatches(doc, patches)
}

// UpdateShape shallow-merges Fields into the shape's JSON form. The id and
// kind cannot be changed.
type UpdateShape struct {
	ShapeID ids.ShapeID
	Fields  map[string]any
}

func (c UpdateShape) Name() string { return "UpdateShape" }

func (c UpdateShape) Do(doc *domain.Doc) ([]patch.Patch, error) {
	current, ok := doc.Shapes[c.ShapeID]
	if !ok {
		return nil, fmt.Errorf("shape %s: %w", c.ShapeID, ErrNotFound)
	}
	merged, err := current.Merge(c.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	patches := []patch.Patch{
		{Op: patch.OpReplace, Path: shapePath(c.ShapeID), Value: merged, OldValue: current},
	}
	if err := doc.Apply(patches); err != nil {
		return nil, err
	}
	return patches, nil
}

func (c UpdateShape) Undo(doc *domain.Doc, patches []patch.Patch) error {
	return UndoPatches(doc, patches)
}

// DeleteShape removes the shape and its slot in the layer. Index must be the
// shape's current position in the layer; it is not searched for.
type DeleteShape struct {
	ShapeID ids.ShapeID
	LayerID ids.LayerID
	Index   int
}

func (c DeleteShape) Name() string { return "DeleteShape" }

func (c DeleteShape) Do(doc *domain.Doc) ([]patch.Patch, error) {
	current, ok := doc.Shapes[c.ShapeID]
	if !ok {
		return nil, fmt.Errorf("shape %s: %w", c.ShapeID, ErrNotFound)
	}
	patches := []patch.Patch{
		{Op: patch.OpRemove, Path: fmt.Sprintf("/layers/%s/objectIds/%d", c.LayerID, c.Index), OldValue: c.ShapeID},
		{Op: patch.OpRemove, Path: shapePath(c.ShapeID), OldValue: current},
	}
	if layer, ok := doc.Layers[c.LayerID]; ok && c.Index >= 0 && c.Index < len(layer.ObjectIDs) && layer.ObjectIDs[c.Index] != c.ShapeID {
		return nil, &patch.Error{
			Index: 0,
			Op:    patch.OpRemove,
			Path:  patches[0].Path,
			Err:   fmt.Errorf("%w: slot holds %s, not %s", patch.ErrStructural, layer.ObjectIDs[c.Index], c.ShapeID),
		}
	}
	if err := doc.Apply(patches); err != nil {
		return nil, err
	}
	return patches, nil
}

func (c DeleteShape) Undo(doc *domain.Doc, patches []patch.Patch) error {
	return UndoPatches(doc, patches)
}

func shapePath(id ids.ShapeID) string {
	return "/shapes/" + string(id)
}
