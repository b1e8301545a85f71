package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/ids"
)

// Local delivers events to subscribers in this process. A subscriber whose
// buffer is full misses the event; it can catch up from the operation log.
type Local struct {
	mu          sync.RWMutex
	subscribers map[ids.PageID]map[chan Event]struct{}
	log         logrus.FieldLogger
}

func NewLocal(log logrus.FieldLogger) *Local {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Local{
		subscribers: make(map[ids.PageID]map[chan Event]struct{}),
		log:         log,
	}
}

func (b *Local) Subscribe(_ context.Context, pageID ids.PageID) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if _, ok := b.subscribers[pageID]; !ok {
		b.subscribers[pageID] = make(map[chan Event]struct{})
	}
	b.subscribers[pageID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subscribers[pageID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subscribers, pageID)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (b *Local) Publish(_ context.Context, event Event) error {
	b.deliver(event)
	return nil
}

func (b *Local) deliver(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers[event.PageID] {
		select {
		case ch <- event:
		default:
			if b.log != nil {
				b.log.WithFields(logrus.Fields{
					"page_id": event.PageID,
					"version": event.Version,
				}).Warn("events: dropping event for slow subscriber")
			}
		}
	}
}

func (b *Local) subscriberCount(pageID ids.PageID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[pageID])
}

func (b *Local) Close() error {
	return nil
}
