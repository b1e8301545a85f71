package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) *Redis {
	t.Helper()
	s := miniredis.RunT(t)
	broker, err := NewRedis("redis://"+s.Addr(), nil)
	if err != nil {
		t.Fatalf("failed to create redis broker: %v", err)
	}
	t.Cleanup(func() { _ = broker.Close() })
	return broker
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis("not a url", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRedisPublishSubscribe(t *testing.T) {
	broker := setupTestRedis(t)
	ctx := context.Background()
	if err := broker.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	events, cancel, err := broker.Subscribe(ctx, "page-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	author := "user-1"
	sent := Event{
		PageID:      "page-1",
		Version:     7,
		AuthorID:    &author,
		Patches:     json.RawMessage(`[{"op":"remove","path":"/shapes/s1"}]`),
		CommittedAt: 1700000000000,
	}
	if err := broker.Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Version != 7 || got.PageID != "page-1" {
			t.Fatalf("unexpected event %+v", got)
		}
		if got.AuthorID == nil || *got.AuthorID != author {
			t.Fatalf("expected author %q, got %v", author, got.AuthorID)
		}
		if string(got.Patches) != string(sent.Patches) {
			t.Fatalf("expected patches %s, got %s", sent.Patches, got.Patches)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisCancelClosesChannel(t *testing.T) {
	broker := setupTestRedis(t)
	events, cancel, err := broker.Subscribe(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close")
	}
}
