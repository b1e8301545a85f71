package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
)

// Doc is the in-memory document commands operate on. Its JSON form is the
// tree that patch paths address: /board, /pages/{id}, /layers/{id},
// /shapes/{id}, /comments/{id}, /currentPageId.
type Doc struct {
	Board         Board                     `json:"board"`
	Pages         map[ids.PageID]Page       `json:"pages"`
	Layers        map[ids.LayerID]Layer     `json:"layers"`
	Shapes        map[ids.ShapeID]Shape     `json:"shapes"`
	Comments      map[ids.CommentID]Comment `json:"comments"`
	CurrentPageID *ids.PageID               `json:"currentPageId"`
}

func NewDoc(board Board) *Doc {
	doc := &Doc{Board: board}
	doc.ensureMaps()
	return doc
}

// AssembleDoc lifts the layers and shapes out of each page's content into one
// Doc. Page content is not kept on the pages themselves.
func AssembleDoc(board Board, pages []Page, comments []Comment, current *ids.PageID) (*Doc, error) {
	doc := NewDoc(board)
	for _, page := range pages {
		content, err := DecodeContent(page.Content)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", page.ID, err)
		}
		for id, layer := range content.Layers {
			doc.Layers[id] = layer
		}
		for id, shape := range content.Shapes {
			doc.Shapes[id] = shape
		}
		page.Content = nil
		doc.Pages[page.ID] = page
	}
	for _, comment := range comments {
		doc.Comments[comment.ID] = comment
	}
	doc.CurrentPageID = current
	return doc, nil
}

func (d *Doc) ensureMaps() {
	if d.Pages == nil {
		d.Pages = map[ids.PageID]Page{}
	}
	if d.Layers == nil {
		d.Layers = map[ids.LayerID]Layer{}
	}
	if d.Shapes == nil {
		d.Shapes = map[ids.ShapeID]Shape{}
	}
	if d.Comments == nil {
		d.Comments = map[ids.CommentID]Comment{}
	}
}

// Tree returns the generic JSON tree of the document.
func (d *Doc) Tree() (map[string]any, error) {
	tree, err := patch.Normalize(d)
	if err != nil {
		return nil, fmt.Errorf("encode doc: %w", err)
	}
	return tree.(map[string]any), nil
}

// Apply applies patches to the document in order. The patched tree must
// decode into the document model without losing anything, and no shape may
// change kind. On any error the document is left as it was.
func (d *Doc) Apply(patches []patch.Patch) error {
	tree, err := d.Tree()
	if err != nil {
		return err
	}
	if err := patch.Apply(tree, patches); err != nil {
		return err
	}

	var next Doc
	if err := decodeTree(tree, &next); err != nil {
		return patch.Reject(patches, "", fmt.Errorf("decode doc: %w", err))
	}
	if err := CheckShapeKinds(d.Shapes, next.Shapes); err != nil {
		return rejectContent(patches, err)
	}
	decoded, err := next.Tree()
	if err != nil {
		return patch.Reject(patches, "", err)
	}
	if !reflect.DeepEqual(decoded, tree) {
		return patch.Reject(patches, firstDifference(tree, decoded), errors.New("value is not part of the document model"))
	}
	next.ensureMaps()
	*d = next
	return nil
}

func rejectContent(patches []patch.Patch, err error) error {
	var contentErr *ContentError
	if errors.As(err, &contentErr) {
		return patch.Reject(patches, contentErr.Path, err)
	}
	return patch.Reject(patches, "", err)
}

// firstDifference returns the path of the first change between two trees,
// or "" when it cannot be told.
func firstDifference(from, to map[string]any) string {
	changes, err := patch.Diff(from, to)
	if err != nil || len(changes) == 0 {
		return ""
	}
	return changes[0].Path
}

// Clone returns a deep copy of the document.
func (d *Doc) Clone() (*Doc, error) {
	tree, err := d.Tree()
	if err != nil {
		return nil, err
	}
	var out Doc
	if err := decodeTree(tree, &out); err != nil {
		return nil, fmt.Errorf("decode doc: %w", err)
	}
	out.ensureMaps()
	return &out, nil
}

// ShapeLayer finds the layer holding shapeID and its index within it.
func (d *Doc) ShapeLayer(shapeID ids.ShapeID) (ids.LayerID, int, bool) {
	if shape, ok := d.Shapes[shapeID]; ok {
		if layer, ok := d.Layers[shape.LayerID]; ok {
			if index := layer.IndexOf(shapeID); index >= 0 {
				return layer.ID, index, true
			}
		}
	}
	for id, layer := range d.Layers {
		if index := layer.IndexOf(shapeID); index >= 0 {
			return id, index, true
		}
	}
	return "", -1, false
}

func decodeTree(tree any, out any) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
