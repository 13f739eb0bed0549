package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SessionEventHandler обрабатывает одно событие сессии.
// Ошибка приводит к nack без повторной постановки в очередь.
type SessionEventHandler func(ctx context.Context, event SessionEventPayload) error

// Consumer читает события сессии из очереди.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  SessionEventHandler
	prefetch int
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — очередь (default: sessions.events).
	Queue Queue

	Handler SessionEventHandler

	// Prefetch — сколько сообщений брокер отдаёт без ack (default: 16).
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	queue := cfg.Queue
	if queue == "" {
		queue = QueueSessionEvents
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 16
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run читает очередь до отмены ctx. После разрыва соединения
// ждёт переподключения и подписывается заново.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "queue", c.queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", c.queue)
			if err := c.drain(ctx, deliveries); ctx.Err() != nil {
				return ctx.Err()
			} else if err != nil {
				c.logger.Warn("deliveries closed, waiting for reconnect", "queue", c.queue)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue),
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает и подтверждает одно сообщение.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	event, err := DecodeSessionEvent(raw.Body)
	if err != nil {
		c.logger.Error("malformed session event", "queue", c.queue, "error", err)
		_ = raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("session event handler failed",
			"session_id", event.SessionID,
			"status", event.Status,
			"error", err,
		)
		_ = raw.Nack(false, false)
		return
	}
	_ = raw.Ack(false)
}

// DecodeSessionEvent разбирает тело сообщения session.transition.
func DecodeSessionEvent(body []byte) (SessionEventPayload, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return SessionEventPayload{}, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type != MessageTypeSessionTransition {
		return SessionEventPayload{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}

	var payload SessionEventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return SessionEventPayload{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}
