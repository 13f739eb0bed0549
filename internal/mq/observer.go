package mq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Tabula/internal/domain"
)

// SessionEventPublisher — то, что умеет отправить событие сессии.
//
// Реализация: *Publisher.
type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error
}

// EventForwarder — наблюдатель оркестратора, пересылающий события в брокер.
//
// OnTransition вызывается под блокировкой оркестратора, поэтому только
// кладёт событие в буфер. Публикует отдельная горутина. При переполнении
// буфера событие отбрасывается с предупреждением.
type EventForwarder struct {
	publisher SessionEventPublisher
	timeout   time.Duration
	logger    *slog.Logger

	events chan domain.SessionEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// ForwarderConfig — настройки EventForwarder.
type ForwarderConfig struct {
	// Buffer — ёмкость очереди событий (default: 64).
	Buffer int

	// PublishTimeout — таймаут одной публикации (default: 5s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// NewEventForwarder создаёт пересыльщик и запускает горутину публикации.
func NewEventForwarder(publisher SessionEventPublisher, cfg ForwarderConfig) *EventForwarder {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &EventForwarder{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		events:    make(chan domain.SessionEvent, buffer),
		done:      make(chan struct{}),
	}
	go f.loop()
	return f
}

// OnTransition ставит событие в очередь на публикацию.
func (f *EventForwarder) OnTransition(event domain.SessionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	select {
	case f.events <- event:
	default:
		f.logger.Warn("session event dropped, publish buffer full",
			"session_id", event.SessionID,
			"status", event.Status,
		)
	}
}

// Close дожидается публикации оставшихся событий.
func (f *EventForwarder) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.events)
	f.mu.Unlock()

	<-f.done
}

func (f *EventForwarder) loop() {
	defer close(f.done)

	for event := range f.events {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		err := f.publisher.PublishSessionEvent(ctx, event)
		cancel()

		if err != nil {
			f.logger.Warn("failed to publish session event",
				"session_id", event.SessionID,
				"status", event.Status,
				"error", err,
			)
		}
	}
}
