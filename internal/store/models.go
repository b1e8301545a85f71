package store

import (
	"encoding/json"
	"time"

	"whiteboard/api/internal/ids"
)

type User struct {
	ID        ids.UserID `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type Asset struct {
	ID          ids.AssetID `json:"id"`
	BoardID     ids.BoardID `json:"boardId"`
	ObjectKey   string      `json:"objectKey"`
	URL         string      `json:"url"`
	Kind        string      `json:"kind"`
	ContentType string      `json:"contentType"`
	Bytes       int64       `json:"bytes"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// PageState is the concurrency-controlled part of a page.
type PageState struct {
	ID      ids.PageID     `json:"id"`
	Version int            `json:"version"`
	Content map[string]any `json:"content"`
}

// Operation is one committed patch batch. Patches holds the batch exactly as
// it was submitted.
type Operation struct {
	ID        int64           `json:"id"`
	PageID    ids.PageID      `json:"pageId"`
	AuthorID  *string         `json:"authorId"`
	Version   int             `json:"version"`
	Patches   json.RawMessage `json:"patches"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CommitInput is a patch batch whose resulting content has already been
// computed against BaseVersion.
type CommitInput struct {
	PageID      ids.PageID
	BaseVersion int
	AuthorID    *string
	Patches     json.RawMessage
	Content     map[string]any
	SearchText  string
}
