// Package mq публикует события сессии анализа в RabbitMQ и читает их обратно.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — exchange tabula.sessions и очередь sessions.events
//   - publisher.go  — публикация session.transition
//   - observer.go   — асинхронный мост от наблюдателя оркестратора к Publisher
//   - consumer.go   — чтение событий (команда events)
//
// Routing key события: "session.<status>" в нижнем регистре,
// например session.ready или session.errored.
package mq
