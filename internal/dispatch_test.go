package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type chanBroadcaster struct {
	out  chan recordedEvent
	fail bool
}

func (b *chanBroadcaster) Broadcast(event string, payload any) error {
	b.out <- recordedEvent{event: event, payload: payload}
	if b.fail {
		return errors.New("subscriber gone")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch <-chan recordedEvent) recordedEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for broadcast")
		return recordedEvent{}
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	out := &chanBroadcaster{out: make(chan recordedEvent, 16)}
	d := NewDispatcher(out, 16, discardLogger())
	for i := 0; i < 5; i++ {
		d.Notify(EventVisibilityChanged, VisibilityPayload{Locked: i%2 == 0})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < 5; i++ {
		e := receive(t, out.out)
		if p := e.payload.(VisibilityPayload); p.Locked != (i%2 == 0) {
			t.Fatalf("broadcast %d out of order", i)
		}
	}
}

func TestDispatcherNotifyNeverBlocks(t *testing.T) {
	out := &chanBroadcaster{out: make(chan recordedEvent, 4)}
	d := NewDispatcher(out, 1, discardLogger())

	done := make(chan struct{})
	go func() {
		d.Notify("a", nil)
		d.Notify("b", nil)
		d.Notify("c", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a full queue")
	}
	if len(d.queue) != 1 {
		t.Fatalf("expected one queued notification, got %d", len(d.queue))
	}
	if n := <-d.queue; n.event != "c" {
		t.Fatalf("expected the newest notification to be kept, got %q", n.event)
	}
}

// gatedBroadcaster blocks its first delivery until release is closed.
type gatedBroadcaster struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	calls     int
	delivered []bool
}

func (b *gatedBroadcaster) Broadcast(_ string, payload any) error {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		close(b.started)
		<-b.release
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, payload.(VisibilityPayload).Locked)
	return nil
}

func (b *gatedBroadcaster) last() (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.delivered) == 0 {
		return false, 0
	}
	return b.delivered[len(b.delivered)-1], len(b.delivered)
}

func TestDispatcherDeliversLatestStateWhenQueueOverflows(t *testing.T) {
	out := &gatedBroadcaster{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(out, 1, discardLogger())
	gate := NewVisibilityGate(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	gate.Toggle()
	select {
	case <-out.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first broadcast never started")
	}
	gate.Toggle()
	gate.Toggle()
	close(out.release)

	want := gate.Status()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, n := out.last()
		if n >= 2 && got == want && len(d.queue) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscribers left at locked=%v while gate is %v (%d deliveries)", got, want, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherSurvivesBroadcastErrors(t *testing.T) {
	out := &chanBroadcaster{out: make(chan recordedEvent, 4), fail: true}
	d := NewDispatcher(out, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify("first", nil)
	receive(t, out.out)
	d.Notify("second", nil)
	if e := receive(t, out.out); e.event != "second" {
		t.Fatalf("expected second broadcast, got %q", e.event)
	}
}
