// Package events fans committed patch batches out to page subscribers,
// either inside one process or across processes through Redis pub/sub.
package events

import (
	"context"
	"encoding/json"

	"whiteboard/api/internal/ids"
)

// Event announces one committed batch. Version is the page version the batch
// produced.
type Event struct {
	PageID      ids.PageID      `json:"pageId"`
	Version     int             `json:"version"`
	AuthorID    *string         `json:"authorId,omitempty"`
	Patches     json.RawMessage `json:"patches"`
	CommittedAt int64           `json:"committedAt"`
}

// Broker publishes events and hands out per-page subscriptions. The returned
// cancel func releases the subscription and closes its channel.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, pageID ids.PageID) (<-chan Event, func(), error)
	Close() error
}

const subscriberBuffer = 16
