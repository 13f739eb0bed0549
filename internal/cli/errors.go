package cli

import "errors"

var (
	// ErrNotConfigured — для команды не задана нужная интеграция.
	ErrNotConfigured = errors.New("not configured")

	// ErrCycleFailed — цикл анализа завершился в ERRORED.
	ErrCycleFailed = errors.New("analysis cycle failed")

	// ErrInvalidInputFlag — входные файлы заданы неверно.
	ErrInvalidInputFlag = errors.New("invalid input")
)
