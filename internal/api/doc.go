// Package api — HTTP-сервер состояния для долгоживущих команд (watch).
//
// Структура:
//   - server.go     — маршруты и запуск с graceful shutdown
//   - middleware.go — logging и recovery
//   - response.go   — JSON-ответы и ошибки
//
// Endpoints (только чтение):
//
//	GET /healthz         — liveness
//	GET /metrics         — Prometheus
//	GET /session         — статус текущей сессии
//	GET /session/result  — таблица результата (404, если сессия не в READY)
package api
