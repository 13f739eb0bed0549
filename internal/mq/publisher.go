package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Tabula/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// MessageTypeSessionTransition — смена статуса или сообщения сессии.
const MessageTypeSessionTransition MessageType = "session.transition"

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// SessionEventPayload — payload session.transition.
type SessionEventPayload struct {
	SessionID     uuid.UUID            `json:"session_id"`
	Status        domain.SessionStatus `json:"status"`
	StatusMessage string               `json:"status_message"`
	Failure       domain.FailureKind   `json:"failure,omitempty"`
	At            time.Time            `json:"at"`
}

// NewSessionEventPayload переводит событие домена в payload.
func NewSessionEventPayload(event domain.SessionEvent) SessionEventPayload {
	return SessionEventPayload{
		SessionID:     event.SessionID,
		Status:        event.Status,
		StatusMessage: event.StatusMessage,
		Failure:       event.Failure,
		At:            event.At,
	}
}

// Event обратное преобразование.
func (p SessionEventPayload) Event() domain.SessionEvent {
	return domain.SessionEvent{
		SessionID:     p.SessionID,
		Status:        p.Status,
		StatusMessage: p.StatusMessage,
		Failure:       p.Failure,
		At:            p.At,
	}
}

// NewMessage собирает конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish отправляет сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Transient,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishSessionEvent публикует событие сессии в tabula.sessions.
func (p *Publisher) PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	msg, err := NewMessage(MessageTypeSessionTransition, NewSessionEventPayload(event))
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeSessions, RoutingKeyFor(event.Status), msg)
}
