// Package repo хранит журнал завершённых циклов анализа в PostgreSQL (pgx).
//
// Журнал опционален: без DB_URL CLI работает без него.
// Схема создаётся EnsureSchema при первом подключении.
package repo
