package repo

import "errors"

var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrNotFinished — сессия ещё не завершила цикл, записывать нечего.
	ErrNotFinished = errors.New("session not finished")
)
