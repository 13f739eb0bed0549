package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Tabula/internal/domain"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	// ExchangeSessions — topic-обменник событий сессии.
	ExchangeSessions Exchange = "tabula.sessions"

	// QueueSessionEvents — общая очередь событий для команды events.
	QueueSessionEvents Queue = "sessions.events"

	// BindingAllSessions — подписка на все статусы.
	BindingAllSessions RoutingKey = "session.#"
)

// RoutingKeyFor возвращает ключ для статуса: session.<status>.
func RoutingKeyFor(status domain.SessionStatus) RoutingKey {
	return RoutingKey("session." + strings.ToLower(string(status)))
}

// SetupTopology объявляет обменник и очередь событий. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeSessions), // name
			amqp.ExchangeTopic,       // type
			true,                     // durable
			false,                    // auto-deleted
			false,                    // internal
			false,                    // no-wait
			nil,                      // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeSessions, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueSessionEvents), // name
			true,                       // durable
			false,                      // delete when unused
			false,                      // exclusive
			false,                      // no-wait
			amqp.Table{amqp.QueueMessageTTLArg: int32(24 * 60 * 60 * 1000)},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueSessionEvents, err)
		}

		err = ch.QueueBind(
			string(QueueSessionEvents),
			string(BindingAllSessions),
			string(ExchangeSessions),
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", QueueSessionEvents, ExchangeSessions, err)
		}
		return nil
	})
}
