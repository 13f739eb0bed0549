// Package scheduler повторяет полный цикл анализа по cron-расписанию.
//
// Используется командой watch: на каждом срабатывании оркестратор
// сбрасывает сессию и заново выполняет выбор файлов, Submit и Run.
package scheduler
