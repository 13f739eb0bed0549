// Package cli реализует команды tabula.
//
// # Команды
//
//   - analyze — выбор двух файлов, Submit и Run, печать таблицы результата
//   - decode  — разбор локального файла тем же декодером
//   - watch   — analyze по cron-расписанию
//   - history — журнал анализов (PostgreSQL, DB_URL)
//   - events  — поток событий сессий (RabbitMQ, RABBITMQ_URL)
//
// # Окружение
//
// Каждая команда получает envFn — замыкание, которое после разбора
// PersistentFlags собирает Env: конфигурацию, логгер, метрики и Output.
//
// # Вывод
//
// Данные пишутся в stdout (таблица через text/tabwriter или JSON с --json),
// статусы сессии и сообщения в stderr. Это позволяет использовать pipe:
//
//	tabula analyze --primary x.csv --adjacency e.csv --json | jq .rows
package cli
