package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakePublisher struct {
	name   string
	events []Event
	err    error
	closed bool
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(_ context.Context, event Event) error {
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestDispatcherBroadcasts(t *testing.T) {
	a := &fakePublisher{name: "a"}
	b := &fakePublisher{name: "b"}
	d := NewDispatcher(a, nil, b)

	event := Event{Kind: KindConfirmed, Chain: "mainnet", TxHash: "0xabc"}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both publishers notified, got %d/%d", len(a.events), len(b.events))
	}
	if a.events[0].OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be stamped")
	}
}

func TestDispatcherCollectsErrors(t *testing.T) {
	failure := errors.New("broker down")
	a := &fakePublisher{name: "a", err: failure}
	b := &fakePublisher{name: "b"}
	d := NewDispatcher(a, b)

	err := d.Publish(context.Background(), Event{Kind: KindFailed, TxHash: "0xdead"})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !errors.Is(err, failure) {
		t.Fatalf("expected wrapped publisher error, got %v", err)
	}
	if !strings.Contains(err.Error(), "publisher a") {
		t.Fatalf("expected publisher name in error, got %v", err)
	}
	// 单个目的地失败不应阻止其他目的地收到事件。
	if len(b.events) != 1 {
		t.Fatalf("expected healthy publisher to still receive event, got %d", len(b.events))
	}
}

func TestDispatcherClose(t *testing.T) {
	a := &fakePublisher{name: "a"}
	b := &fakePublisher{name: "b"}
	d := NewDispatcher(a, b)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("expected all publishers closed")
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	if err := d.Publish(context.Background(), Event{Kind: KindSubmitted}); err != nil {
		t.Fatalf("nil dispatcher Publish should be a no-op, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("nil dispatcher Close should be a no-op, got %v", err)
	}
}
