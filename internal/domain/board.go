// Package domain holds the whiteboard entity model: boards, pages, layers,
// shapes, comments, and the in-memory Doc that commands edit.
package domain

import (
	"slices"
	"time"

	"whiteboard/api/internal/ids"
)

type Background struct {
	Color    string `json:"color,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Snapping struct {
	Pixel  int  `json:"pixel"`
	Points bool `json:"points"`
}

type BoardSettings struct {
	GridEnabled bool       `json:"gridEnabled"`
	SnapToGrid  bool       `json:"snapToGrid"`
	Background  Background `json:"background"`
	Snapping    Snapping   `json:"snapping"`
}

func DefaultBoardSettings() BoardSettings {
	return BoardSettings{
		GridEnabled: true,
		SnapToGrid:  true,
		Background:  Background{Color: "#ffffff"},
		Snapping:    Snapping{Pixel: 10, Points: true},
	}
}

type Board struct {
	ID              ids.BoardID   `json:"id"`
	Title           string        `json:"title"`
	OwnerID         ids.UserID    `json:"ownerId"`
	PageIDs         []ids.PageID  `json:"pages"`
	CollaboratorIDs []ids.UserID  `json:"collaboratorIds"`
	Settings        BoardSettings `json:"settings"`
	CreatedAt       int64         `json:"createdAt"`
	UpdatedAt       int64         `json:"updatedAt"`
}

func NewBoard(title string, ownerID ids.UserID, now time.Time) Board {
	ms := now.UnixMilli()
	return Board{
		ID:              ids.New[ids.BoardID](),
		Title:           title,
		OwnerID:         ownerID,
		PageIDs:         []ids.PageID{},
		CollaboratorIDs: []ids.UserID{},
		Settings:        DefaultBoardSettings(),
		CreatedAt:       ms,
		UpdatedAt:       ms,
	}
}

// BoardUpdate lists the mutable board fields. Nil fields are left unchanged.
type BoardUpdate struct {
	Title           *string        `json:"title"`
	PageIDs         []ids.PageID   `json:"pages"`
	CollaboratorIDs []ids.UserID   `json:"collaboratorIds"`
	Settings        *BoardSettings `json:"settings"`
}

func (b Board) WithUpdate(update BoardUpdate, now time.Time) Board {
	next := b
	if update.Title != nil {
		next.Title = *update.Title
	}
	if update.PageIDs != nil {
		next.PageIDs = slices.Clone(update.PageIDs)
	}
	if update.CollaboratorIDs != nil {
		next.CollaboratorIDs = CollaboratorSet(update.CollaboratorIDs)
	}
	if update.Settings != nil {
		next.Settings = *update.Settings
	}
	next.UpdatedAt = now.UnixMilli()
	return next
}

// CollaboratorSet sorts and deduplicates user ids.
func CollaboratorSet(userIDs []ids.UserID) []ids.UserID {
	set := slices.Clone(userIDs)
	slices.Sort(set)
	set = slices.Compact(set)
	if set == nil {
		set = []ids.UserID{}
	}
	return set
}

// SamePages reports whether order is a permutation of the board's pages.
func (b Board) SamePages(order []ids.PageID) bool {
	if len(order) != len(b.PageIDs) {
		return false
	}
	a, c := slices.Clone(b.PageIDs), slices.Clone(order)
	slices.Sort(a)
	slices.Sort(c)
	return slices.Equal(a, c)
}
