package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
)

const (
	DefaultPageWidth  = 1920
	DefaultPageHeight = 1080
	DefaultPageName   = "Page 1"
	DefaultLayerName  = "Layer 1"
	InitialVersion    = 1
)

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Page is a canvas on a board. Version is the optimistic-concurrency token for
// Content and grows by exactly one per committed patch batch.
type Page struct {
	ID        ids.PageID     `json:"id"`
	BoardID   ids.BoardID    `json:"boardId"`
	Name      string         `json:"name"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	LayerIDs  []ids.LayerID  `json:"layers"`
	Viewport  Viewport       `json:"viewport"`
	Version   int            `json:"version"`
	Content   map[string]any `json:"content,omitempty"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`
}

type PageOptions struct {
	Name   string
	Width  int
	Height int
}

// NewPage builds a page with one empty layer already present in its content.
func NewPage(boardID ids.BoardID, opts PageOptions, now time.Time) (Page, error) {
	page := Page{
		ID:        ids.New[ids.PageID](),
		BoardID:   boardID,
		Name:      opts.Name,
		Width:     opts.Width,
		Height:    opts.Height,
		Viewport:  Viewport{Zoom: 1},
		Version:   InitialVersion,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	if page.Name == "" {
		page.Name = DefaultPageName
	}
	if page.Width <= 0 {
		page.Width = DefaultPageWidth
	}
	if page.Height <= 0 {
		page.Height = DefaultPageHeight
	}

	layer := NewLayer(page.ID, DefaultLayerName, now)
	page.LayerIDs = []ids.LayerID{layer.ID}
	content, err := EncodeContent(PageContent{
		Layers: map[ids.LayerID]Layer{layer.ID: layer},
		Shapes: map[ids.ShapeID]Shape{},
	})
	if err != nil {
		return Page{}, err
	}
	page.Content = content
	return page, nil
}

func (p Page) Touch(now time.Time) Page {
	p.UpdatedAt = now.UnixMilli()
	return p
}

// PageUpdate lists the metadata fields of a page. Content and version are
// only changed through patch batches.
type PageUpdate struct {
	Name     *string   `json:"name"`
	Width    *int      `json:"width"`
	Height   *int      `json:"height"`
	Viewport *Viewport `json:"viewport"`
}

func (p Page) WithUpdate(update PageUpdate, now time.Time) Page {
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Width != nil {
		p.Width = *update.Width
	}
	if update.Height != nil {
		p.Height = *update.Height
	}
	if update.Viewport != nil {
		p.Viewport = *update.Viewport
	}
	return p.Touch(now)
}

// PageContent is the typed view of a page's content body.
type PageContent struct {
	Layers map[ids.LayerID]Layer `json:"layers"`
	Shapes map[ids.ShapeID]Shape `json:"shapes"`
}

func EncodeContent(content PageContent) (map[string]any, error) {
	tree, err := patch.Normalize(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return tree.(map[string]any), nil
}

// DecodeContent reads a content body. Every shape must have a known kind.
func DecodeContent(tree map[string]any) (PageContent, error) {
	var content PageContent
	if err := decodeTree(tree, &content); err != nil {
		return PageContent{}, fmt.Errorf("decode content: %w", err)
	}
	if content.Layers == nil {
		content.Layers = map[ids.LayerID]Layer{}
	}
	if content.Shapes == nil {
		content.Shapes = map[ids.ShapeID]Shape{}
	}
	return content, nil
}

// ContentError locates the part of a document that breaks the page model.
type ContentError struct {
	Path   string
	Reason string
}

func (e *ContentError) Error() string {
	return e.Path + ": " + e.Reason
}

// ValidateContent decodes a content body layer by layer and shape by shape,
// and checks that every layer entry names a shape of the same body.
func ValidateContent(tree map[string]any) (PageContent, error) {
	content := PageContent{Layers: map[ids.LayerID]Layer{}, Shapes: map[ids.ShapeID]Shape{}}

	layers, err := contentSection(tree, "layers")
	if err != nil {
		return PageContent{}, err
	}
	shapes, err := contentSection(tree, "shapes")
	if err != nil {
		return PageContent{}, err
	}

	for _, key := range slices.Sorted(maps.Keys(shapes)) {
		var shape Shape
		if err := decodeTree(shapes[key], &shape); err != nil {
			return PageContent{}, &ContentError{Path: "/shapes/" + patch.Escape(key), Reason: err.Error()}
		}
		content.Shapes[ids.ShapeID(key)] = shape
	}
	for _, key := range slices.Sorted(maps.Keys(layers)) {
		var layer Layer
		if err := decodeTree(layers[key], &layer); err != nil {
			return PageContent{}, &ContentError{Path: "/layers/" + patch.Escape(key), Reason: err.Error()}
		}
		for i, shapeID := range layer.ObjectIDs {
			if _, ok := content.Shapes[shapeID]; !ok {
				return PageContent{}, &ContentError{
					Path:   fmt.Sprintf("/layers/%s/objectIds/%d", patch.Escape(key), i),
					Reason: fmt.Sprintf("no shape %q", shapeID),
				}
			}
		}
		content.Layers[ids.LayerID(key)] = layer
	}
	return content, nil
}

func contentSection(tree map[string]any, name string) (map[string]any, error) {
	raw, ok := tree[name]
	if !ok {
		return nil, nil
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, &ContentError{Path: "/" + name, Reason: "must be an object"}
	}
	return section, nil
}

// CheckShapeKinds rejects any shape present in both maps whose kind differs.
// A shape's kind is fixed when it is created.
func CheckShapeKinds(before, after map[ids.ShapeID]Shape) error {
	for _, id := range slices.Sorted(maps.Keys(after)) {
		prev, ok := before[id]
		if !ok {
			continue
		}
		if prev.Kind() != after[id].Kind() {
			return &ContentError{
				Path:   "/shapes/" + patch.Escape(string(id)) + "/kind",
				Reason: fmt.Sprintf("kind cannot change from %s to %s", prev.Kind(), after[id].Kind()),
			}
		}
	}
	return nil
}

// ContentShapeIDs lists the shape keys of a content body without decoding the
// shapes themselves.
func ContentShapeIDs(tree map[string]any) map[ids.ShapeID]bool {
	out := map[ids.ShapeID]bool{}
	shapes, _ := tree["shapes"].(map[string]any)
	for key := range shapes {
		out[ids.ShapeID(key)] = true
	}
	return out
}

// ContentText collects the text of every text-bearing shape in a content
// body, ordered by shape id. Shapes that fail to decode are skipped.
func ContentText(tree map[string]any) []string {
	shapes, _ := tree["shapes"].(map[string]any)
	keys := slices.Sorted(maps.Keys(shapes))
	var out []string
	for _, key := range keys {
		var shape Shape
		if err := decodeTree(shapes[key], &shape); err != nil {
			continue
		}
		if text := Text(shape); text != "" {
			out = append(out, text)
		}
	}
	return out
}
