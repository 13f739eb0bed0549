package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrMissingInput — Submit вызван без одного из файлов. Запрос не отправлялся.
	ErrMissingInput = errors.New("both input files are required")

	// ErrInvalidTransition — переход недопустим в текущем статусе.
	ErrInvalidTransition = errors.New("transition not allowed in current status")

	// ErrInFlight — такой же переход уже выполняется.
	ErrInFlight = errors.New("transition already in flight")

	// ErrSessionReset — сессия была сброшена, пока выполнялся запрос.
	// Результат запроса отброшен.
	ErrSessionReset = errors.New("session was reset during request")

	// ErrNoAnalyzer — оркестратор создан без клиента сервиса.
	ErrNoAnalyzer = errors.New("analyzer is not configured")
)
