package domain

import (
	"time"

	"whiteboard/api/internal/ids"
)

// Comment is attached to a shape. Deleting the shape leaves the comment in
// place; Orphaned is computed when comments are listed.
type Comment struct {
	ID        ids.CommentID `json:"id"`
	PageID    ids.PageID    `json:"pageId"`
	TargetID  ids.ShapeID   `json:"targetId"`
	AuthorID  ids.UserID    `json:"authorId"`
	Text      string        `json:"text"`
	Resolved  bool          `json:"resolved"`
	Orphaned  bool          `json:"orphaned,omitempty"`
	CreatedAt int64         `json:"createdAt"`
}

func NewComment(pageID ids.PageID, targetID ids.ShapeID, authorID ids.UserID, text string, now time.Time) Comment {
	return Comment{
		ID:        ids.New[ids.CommentID](),
		PageID:    pageID,
		TargetID:  targetID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now.UnixMilli(),
	}
}

func (c Comment) Resolve() Comment {
	c.Resolved = true
	return c
}
