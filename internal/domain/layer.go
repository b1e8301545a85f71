package domain

import (
	"slices"
	"time"

	"whiteboard/api/internal/ids"
)

// Layer orders shapes within a page; ObjectIDs runs back to front.
type Layer struct {
	ID        ids.LayerID   `json:"id"`
	PageID    ids.PageID    `json:"pageId"`
	Name      string        `json:"name"`
	Visible   bool          `json:"visible"`
	Locked    bool          `json:"locked"`
	ObjectIDs []ids.ShapeID `json:"objectIds"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

func NewLayer(pageID ids.PageID, name string, now time.Time) Layer {
	if name == "" {
		name = DefaultLayerName
	}
	return Layer{
		ID:        ids.New[ids.LayerID](),
		PageID:    pageID,
		Name:      name,
		Visible:   true,
		ObjectIDs: []ids.ShapeID{},
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
}

func (l Layer) Touch(now time.Time) Layer {
	l.UpdatedAt = now.UnixMilli()
	return l
}

// IndexOf returns the z-position of shapeID in the layer, or -1.
func (l Layer) IndexOf(shapeID ids.ShapeID) int {
	return slices.Index(l.ObjectIDs, shapeID)
}
