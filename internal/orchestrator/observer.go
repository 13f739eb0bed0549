package orchestrator

import (
	"log/slog"

	"github.com/shaiso/Tabula/internal/domain"
)

// Observer получает событие о каждом переходе сессии.
//
// OnTransition вызывается синхронно под блокировкой оркестратора,
// до возврата из метода перехода. Наблюдатель не должен вызывать
// методы Orchestrator и не должен надолго блокироваться.
type Observer interface {
	OnTransition(event domain.SessionEvent)
}

// ObserverFunc — адаптер функции к Observer.
type ObserverFunc func(event domain.SessionEvent)

// OnTransition вызывает f(event).
func (f ObserverFunc) OnTransition(event domain.SessionEvent) {
	f(event)
}

// LogObserver пишет переходы в лог на уровне DEBUG.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(event domain.SessionEvent) {
		logger.Debug("session transition",
			"session_id", event.SessionID,
			"status", event.Status,
			"message", event.StatusMessage,
			"failure", event.Failure,
		)
	})
}
