package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/ids"
)

// Redis publishes events on one channel per page so every API process sees
// every commit.
type Redis struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(redisURL string, log logrus.FieldLogger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client, log), nil
}

func NewRedisWithClient(client *redis.Client, log logrus.FieldLogger) *Redis {
	return &Redis{client: client, prefix: "page-events:", log: log}
}

func (b *Redis) channel(pageID ids.PageID) string {
	return b.prefix + string(pageID)
}

func (b *Redis) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(event.PageID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning, so
// events published afterwards are not missed.
func (b *Redis) Subscribe(ctx context.Context, pageID ids.PageID) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel(pageID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe page events: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.warn(pageID, "events: discarding malformed event", err)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				default:
					b.warn(pageID, "events: dropping event for slow subscriber", nil)
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

func (b *Redis) warn(pageID ids.PageID, message string, err error) {
	if b.log == nil {
		return
	}
	entry := b.log.WithField("page_id", pageID)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(message)
}

func (b *Redis) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Redis) Close() error {
	return b.client.Close()
}
