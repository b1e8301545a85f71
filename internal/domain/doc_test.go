package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDoc(t *testing.T) (*Doc, Page) {
	t.Helper()
	board := NewBoard("Roadmap", "user-1", testNow)
	page, err := NewPage(board.ID, PageOptions{}, testNow)
	require.NoError(t, err)
	board.PageIDs = append(board.PageIDs, page.ID)
	doc, err := AssembleDoc(board, []Page{page}, nil, &page.ID)
	require.NoError(t, err)
	return doc, page
}

func TestNewPageHasDefaultLayer(t *testing.T) {
	page, err := NewPage("board-1", PageOptions{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, DefaultPageWidth, page.Width)
	assert.Equal(t, DefaultPageHeight, page.Height)
	assert.Equal(t, 1.0, page.Viewport.Zoom)
	assert.Equal(t, InitialVersion, page.Version)
	require.Len(t, page.LayerIDs, 1)

	content, err := DecodeContent(page.Content)
	require.NoError(t, err)
	layer, ok := content.Layers[page.LayerIDs[0]]
	require.True(t, ok)
	assert.Equal(t, DefaultLayerName, layer.Name)
	assert.Equal(t, page.ID, layer.PageID)
	assert.Empty(t, content.Shapes)
}

func TestNewPagesGetDistinctLayerIDs(t *testing.T) {
	a, err := NewPage("board-1", PageOptions{}, testNow)
	require.NoError(t, err)
	b, err := NewPage("board-1", PageOptions{}, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, a.LayerIDs[0], b.LayerIDs[0])
}

func TestAssembleDocLiftsContent(t *testing.T) {
	doc, page := newTestDoc(t)

	assert.Len(t, doc.Pages, 1)
	assert.Nil(t, doc.Pages[page.ID].Content)
	assert.Contains(t, doc.Layers, page.LayerIDs[0])
	assert.NotNil(t, doc.Shapes)
	assert.NotNil(t, doc.Comments)
	require.NotNil(t, doc.CurrentPageID)
	assert.Equal(t, page.ID, *doc.CurrentPageID)
}

func TestDocApplyRoundTripsTypedShapes(t *testing.T) {
	doc, page := newTestDoc(t)
	layerID := page.LayerIDs[0]
	shape := NewText(layerID, Frame{}, "hello")

	err := doc.Apply([]patch.Patch{
		{Op: patch.OpAdd, Path: "/layers/" + string(layerID) + "/objectIds/0", Value: shape.ID},
		{Op: patch.OpAdd, Path: "/shapes/" + string(shape.ID), Value: shape},
	})
	require.NoError(t, err)

	assert.Equal(t, shape, doc.Shapes[shape.ID])
	assert.Equal(t, []ids.ShapeID{shape.ID}, doc.Layers[layerID].ObjectIDs)
}

func TestDocApplyLeavesDocUntouchedOnError(t *testing.T) {
	doc, _ := newTestDoc(t)
	before, err := doc.Clone()
	require.NoError(t, err)

	err = doc.Apply([]patch.Patch{
		{Op: patch.OpReplace, Path: "/board/title", Value: "Renamed"},
		{Op: patch.OpRemove, Path: "/shapes/missing"},
	})
	require.Error(t, err)
	assert.Equal(t, before, doc)
}

func TestDocApplyRejectsUnknownShapeKind(t *testing.T) {
	doc, _ := newTestDoc(t)
	err := doc.Apply([]patch.Patch{
		{Op: patch.OpAdd, Path: "/shapes/s1", Value: map[string]any{"id": "s1", "kind": "blob"}},
	})
	assert.ErrorIs(t, err, ErrInvalidShape)
	assert.Empty(t, doc.Shapes)
}

func TestShapeLayer(t *testing.T) {
	doc, page := newTestDoc(t)
	layerID := page.LayerIDs[0]
	first := NewRect(layerID, Frame{})
	second := NewRect(layerID, Frame{})
	layer := doc.Layers[layerID]
	layer.ObjectIDs = []ids.ShapeID{first.ID, second.ID}
	doc.Layers[layerID] = layer
	doc.Shapes[first.ID] = first
	doc.Shapes[second.ID] = second

	gotLayer, index, ok := doc.ShapeLayer(second.ID)
	require.True(t, ok)
	assert.Equal(t, layerID, gotLayer)
	assert.Equal(t, 1, index)

	_, _, ok = doc.ShapeLayer("missing")
	assert.False(t, ok)
}

func TestContentHelpers(t *testing.T) {
	sticky := NewSticky("l", Frame{}, "ship it")
	tree, err := EncodeContent(PageContent{
		Layers: map[ids.LayerID]Layer{},
		Shapes: map[ids.ShapeID]Shape{sticky.ID: sticky},
	})
	require.NoError(t, err)
	tree["shapes"].(map[string]any)["broken"] = map[string]any{"kind": "nope"}

	assert.Equal(t, []string{"ship it"}, ContentText(tree))
	assert.Equal(t, map[ids.ShapeID]bool{sticky.ID: true, "broken": true}, ContentShapeIDs(tree))
}

func TestBoardWithUpdate(t *testing.T) {
	board := NewBoard("Roadmap", "owner", testNow)
	assert.Equal(t, DefaultBoardSettings(), board.Settings)

	title := "Plan"
	later := testNow.Add(time.Minute)
	next := board.WithUpdate(BoardUpdate{
		Title:           &title,
		CollaboratorIDs: []ids.UserID{"u2", "u1", "u2"},
	}, later)

	assert.Equal(t, "Plan", next.Title)
	assert.Equal(t, []ids.UserID{"u1", "u2"}, next.CollaboratorIDs)
	assert.Equal(t, later.UnixMilli(), next.UpdatedAt)
	assert.Equal(t, "Roadmap", board.Title)
}

func TestBoardSamePages(t *testing.T) {
	board := NewBoard("b", "o", testNow)
	board.PageIDs = []ids.PageID{"p1", "p2"}
	assert.True(t, board.SamePages([]ids.PageID{"p2", "p1"}))
	assert.False(t, board.SamePages([]ids.PageID{"p1"}))
	assert.False(t, board.SamePages([]ids.PageID{"p1", "p3"}))
}

func TestCommentResolve(t *testing.T) {
	comment := NewComment("p", "s", "u", "looks off", testNow)
	resolved := comment.Resolve()
	assert.True(t, resolved.Resolved)
	assert.False(t, comment.Resolved)
}

func TestDocApplyRejectsFieldsOutsideTheModel(t *testing.T) {
	doc, page := newTestDoc(t)
	shape := NewRect(page.LayerIDs[0], Frame{})
	require.NoError(t, doc.Apply([]patch.Patch{
		{Op: patch.OpAdd, Path: "/layers/" + string(page.LayerIDs[0]) + "/objectIds/0", Value: shape.ID},
		{Op: patch.OpAdd, Path: "/shapes/" + string(shape.ID), Value: shape},
	}))
	before, err := doc.Clone()
	require.NoError(t, err)

	err = doc.Apply([]patch.Patch{
		{Op: patch.OpReplace, Path: "/board/title", Value: "Renamed"},
		{Op: patch.OpAdd, Path: "/shapes/" + string(shape.ID) + "/label", Value: "hi"},
	})
	var patchErr *patch.Error
	require.ErrorAs(t, err, &patchErr)
	assert.ErrorIs(t, err, patch.ErrStructural)
	assert.Equal(t, 1, patchErr.Index)
	assert.Equal(t, before, doc)
}

func TestDocApplyRoundTripsEveryAcceptedBatch(t *testing.T) {
	doc, page := newTestDoc(t)
	before, err := doc.Tree()
	require.NoError(t, err)
	shape := NewSticky(page.LayerIDs[0], Frame{W: 10, H: 10}, "note")
	batch := []patch.Patch{
		{Op: patch.OpAdd, Path: "/layers/" + string(page.LayerIDs[0]) + "/objectIds/0", Value: shape.ID},
		{Op: patch.OpAdd, Path: "/shapes/" + string(shape.ID), Value: shape},
		{Op: patch.OpReplace, Path: "/board/title", Value: "Renamed", OldValue: doc.Board.Title},
	}

	require.NoError(t, doc.Apply(batch))
	require.NoError(t, doc.Apply(patch.Invert(batch)))
	after, err := doc.Tree()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDocApplyKeepsShapeKinds(t *testing.T) {
	cases := map[string]func(id ids.ShapeID) patch.Patch{
		"kind field": func(id ids.ShapeID) patch.Patch {
			return patch.Patch{Op: patch.OpReplace, Path: "/shapes/" + string(id) + "/kind", Value: "ellipse"}
		},
		"whole shape": func(id ids.ShapeID) patch.Patch {
			replacement := NewEllipse("", Frame{})
			replacement.ID = id
			return patch.Patch{Op: patch.OpReplace, Path: "/shapes/" + string(id), Value: replacement}
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			doc, page := newTestDoc(t)
			shape := NewRect(page.LayerIDs[0], Frame{})
			require.NoError(t, doc.Apply([]patch.Patch{
				{Op: patch.OpAdd, Path: "/layers/" + string(page.LayerIDs[0]) + "/objectIds/0", Value: shape.ID},
				{Op: patch.OpAdd, Path: "/shapes/" + string(shape.ID), Value: shape},
			}))

			err := doc.Apply([]patch.Patch{build(shape.ID)})
			assert.ErrorIs(t, err, patch.ErrStructural)
			assert.Equal(t, KindRect, doc.Shapes[shape.ID].Kind())
		})
	}
}

func TestValidateContent(t *testing.T) {
	page, err := NewPage("board-1", PageOptions{}, testNow)
	require.NoError(t, err)
	layerKey := string(page.LayerIDs[0])

	_, err = ValidateContent(page.Content)
	require.NoError(t, err)

	cases := map[string]struct {
		mutate func(tree map[string]any)
		path   string
	}{
		"shapes not an object": {func(tree map[string]any) { tree["shapes"] = "garbage" }, "/shapes"},
		"layer entries not an array": {func(tree map[string]any) {
			tree["layers"].(map[string]any)[layerKey].(map[string]any)["objectIds"] = map[string]any{"0": "s1"}
		}, "/layers/" + layerKey},
		"layer entry without shape": {func(tree map[string]any) {
			tree["layers"].(map[string]any)[layerKey].(map[string]any)["objectIds"] = []any{"ghost"}
		}, "/layers/" + layerKey + "/objectIds/0"},
		"shape of unknown kind": {func(tree map[string]any) {
			tree["shapes"].(map[string]any)["s1"] = map[string]any{"id": "s1", "kind": "blob"}
		}, "/shapes/s1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tree, err := patch.ApplyClone(page.Content, nil)
			require.NoError(t, err)
			tc.mutate(tree)

			_, err = ValidateContent(tree)
			var contentErr *ContentError
			require.ErrorAs(t, err, &contentErr)
			assert.Equal(t, tc.path, contentErr.Path)
		})
	}
}
