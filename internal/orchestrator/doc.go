// Package orchestrator управляет циклом загрузки и анализа.
//
// Orchestrator отвечает за:
//   - Хранение единственной WorkflowSession
//   - Проверку предусловий переходов (SelectInput, Submit, Run, Reset)
//   - Отправку файлов и запуск вычисления через Analyzer
//   - Разбор ответа в domain.Table через пакет tabular
//   - Синхронное уведомление наблюдателей о каждом переходе
//
// Сетевые ошибки не выходят за пределы сессии как паника: они переводят
// сессию в ERRORED и возвращаются вызывающему как обёрнутые ошибки.
package orchestrator
