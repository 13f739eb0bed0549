package remote

import (
	"errors"
	"fmt"
)

// Ошибки клиента.
var (
	// ErrTransport — запрос не дошёл до сервиса или ответ не прочитан.
	ErrTransport = errors.New("transport failure")

	// ErrRejected — сервис ответил не-2xx кодом.
	ErrRejected = errors.New("request rejected by service")

	// ErrTimeout — запрос не уложился в таймаут. Всегда вместе с ErrTransport.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidPayload — для роли передан чужой файл.
	ErrInvalidPayload = errors.New("invalid payload")
)

// StatusError — сервис вернул не-2xx ответ.
type StatusError struct {
	// Endpoint — путь запроса (/upload или /analyze).
	Endpoint string

	// StatusCode — HTTP-код ответа.
	StatusCode int

	// Body — начало тела ответа для диагностики.
	Body string
}

// Error реализует интерфейс error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Is позволяет проверять errors.Is(err, ErrRejected).
func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}
