package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tabula/internal/domain"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	gate   chan struct{}
	err    error
}

func (f *fakePublisher) PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) published() []domain.SessionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SessionEvent(nil), f.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(status domain.SessionStatus) domain.SessionEvent {
	return domain.SessionEvent{
		SessionID:     uuid.New(),
		Status:        status,
		StatusMessage: "msg",
		At:            time.Now().UTC(),
	}
}

// --- Topology Tests ---

func TestRoutingKeyFor(t *testing.T) {
	tests := map[domain.SessionStatus]RoutingKey{
		domain.SessionStatusIdle:    "session.idle",
		domain.SessionStatusReady:   "session.ready",
		domain.SessionStatusErrored: "session.errored",
	}
	for status, want := range tests {
		if got := RoutingKeyFor(status); got != want {
			t.Errorf("%s: expected %s, got %s", status, want, got)
		}
	}
}

// --- Message Tests ---

func TestDecodeSessionEvent(t *testing.T) {
	in := event(domain.SessionStatusErrored)
	in.Failure = domain.FailureRejected

	msg, err := NewMessage(MessageTypeSessionTransition, NewSessionEventPayload(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		t.Errorf("message id should be a uuid: %v", err)
	}
	body, _ := json.Marshal(msg)

	got, err := DecodeSessionEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := got.Event()
	if out.SessionID != in.SessionID || out.Status != in.Status || out.Failure != in.Failure {
		t.Errorf("expected %+v, got %+v", in, out)
	}
	if !out.At.Equal(in.At) {
		t.Errorf("timestamp mismatch: %s vs %s", in.At, out.At)
	}
}

func TestDecodeSessionEvent_Errors(t *testing.T) {
	if _, err := DecodeSessionEvent([]byte("{")); err == nil {
		t.Error("expected error for malformed json")
	}

	msg, _ := NewMessage("run.pending", map[string]string{"run_id": "x"})
	body, _ := json.Marshal(msg)
	if _, err := DecodeSessionEvent(body); err == nil {
		t.Error("expected error for foreign message type")
	}
}

// --- EventForwarder Tests ---

func TestEventForwarder_PublishesInOrder(t *testing.T) {
	pub := &fakePublisher{}
	fwd := NewEventForwarder(pub, ForwarderConfig{Logger: quietLogger()})

	statuses := []domain.SessionStatus{
		domain.SessionStatusSubmitting,
		domain.SessionStatusSubmitted,
		domain.SessionStatusRunning,
		domain.SessionStatusReady,
	}
	for _, s := range statuses {
		fwd.OnTransition(event(s))
	}
	fwd.Close()

	got := pub.published()
	if len(got) != len(statuses) {
		t.Fatalf("expected %d events, got %d", len(statuses), len(got))
	}
	for i, s := range statuses {
		if got[i].Status != s {
			t.Errorf("event %d: expected %s, got %s", i, s, got[i].Status)
		}
	}
}

func TestEventForwarder_DropsWhenFull(t *testing.T) {
	pub := &fakePublisher{gate: make(chan struct{})}
	fwd := NewEventForwarder(pub, ForwarderConfig{Buffer: 1, Logger: quietLogger()})

	// Первое событие забирает горутина и блокируется на gate,
	// второе занимает буфер, остальные отбрасываются.
	for i := 0; i < 10; i++ {
		fwd.OnTransition(event(domain.SessionStatusRunning))
		time.Sleep(time.Millisecond)
	}

	close(pub.gate)
	fwd.Close()

	got := len(pub.published())
	if got >= 10 || got == 0 {
		t.Errorf("expected some events dropped, published %d", got)
	}
}

func TestEventForwarder_PublishErrorDoesNotStop(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	fwd := NewEventForwarder(pub, ForwarderConfig{Logger: quietLogger()})

	fwd.OnTransition(event(domain.SessionStatusIdle))
	fwd.OnTransition(event(domain.SessionStatusSubmitting))
	fwd.Close()

	if got := len(pub.published()); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}

	// после Close события игнорируются
	fwd.OnTransition(event(domain.SessionStatusIdle))
	fwd.Close()
}
