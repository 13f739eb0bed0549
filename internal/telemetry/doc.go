// Package telemetry обеспечивает наблюдаемость Tabula.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики сессий и запросов к сервису
//
// CLI — короткоживущий процесс, поэтому метрики не отдаются по /metrics,
// а отправляются в Pushgateway после завершения команды.
package telemetry
