// Package config собирает настройки Tabula из переменных окружения.
//
// Переменные:
//   - TABULA_SERVICE_URL      — адрес сервиса анализа (default: http://localhost:3000)
//   - TABULA_UPLOAD_PATH      — путь приёма файлов (default: /upload)
//   - TABULA_ANALYZE_PATH     — путь запуска вычисления (default: /analyze)
//   - TABULA_REQUEST_TIMEOUT  — таймаут одного запроса, time.Duration (default: 60s)
//   - TABULA_PUSHGATEWAY_URL  — Pushgateway для метрик CLI (опционально)
//   - DB_URL                  — PostgreSQL для журнала анализов (опционально)
//   - RABBITMQ_URL            — RabbitMQ для событий сессии (опционально)
//   - LOG_LEVEL, LOG_FORMAT   — настройки логгера
//
// Флаги CLI переопределяют значения из окружения.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shaiso/Tabula/internal/remote"
	"github.com/shaiso/Tabula/internal/telemetry"
)

// Имена переменных окружения.
const (
	EnvServiceURL     = "TABULA_SERVICE_URL"
	EnvUploadPath     = "TABULA_UPLOAD_PATH"
	EnvAnalyzePath    = "TABULA_ANALYZE_PATH"
	EnvRequestTimeout = "TABULA_REQUEST_TIMEOUT"
	EnvPushgatewayURL = "TABULA_PUSHGATEWAY_URL"
	EnvDatabaseURL    = "DB_URL"
	EnvRabbitMQURL    = "RABBITMQ_URL"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

var (
	// ErrInvalidServiceURL — адрес сервиса не является http(s) URL.
	ErrInvalidServiceURL = errors.New("invalid service url")

	// ErrInvalidTimeout — таймаут не разбирается или не положителен.
	ErrInvalidTimeout = errors.New("invalid request timeout")
)

// Config — настройки процесса.
type Config struct {
	ServiceURL     string
	UploadPath     string
	AnalyzePath    string
	RequestTimeout time.Duration

	PushgatewayURL string
	DatabaseURL    string
	RabbitMQURL    string

	Log telemetry.LogConfig
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		ServiceURL:     remote.DefaultBaseURL,
		UploadPath:     remote.DefaultUploadPath,
		AnalyzePath:    remote.DefaultAnalyzePath,
		RequestTimeout: remote.DefaultTimeout,
		Log:            telemetry.LogConfig{Level: "INFO", Format: "json"},
	}
}

// Load читает конфигурацию из окружения процесса.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom читает конфигурацию через getenv. Пустые значения не меняют default.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Default()

	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.ServiceURL, EnvServiceURL)
	set(&cfg.UploadPath, EnvUploadPath)
	set(&cfg.AnalyzePath, EnvAnalyzePath)
	set(&cfg.PushgatewayURL, EnvPushgatewayURL)
	set(&cfg.DatabaseURL, EnvDatabaseURL)
	set(&cfg.RabbitMQURL, EnvRabbitMQURL)
	set(&cfg.Log.Level, EnvLogLevel)
	set(&cfg.Log.Format, EnvLogFormat)

	if v := strings.TrimSpace(getenv(EnvRequestTimeout)); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return Config{}, err
		}
		cfg.RequestTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseTimeout разбирает длительность ("30s", "2m"). Голое число — секунды.
func ParseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		var secs int
		if _, scanErr := fmt.Sscanf(s, "%d", &secs); scanErr != nil || fmt.Sprint(secs) != s {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, s)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTimeout, s)
	}
	return d, nil
}

// Validate проверяет значения, которые нельзя исправить default'ом.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidServiceURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServiceURL, c.ServiceURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.RequestTimeout)
	}
	return nil
}

// RemoteConfig переносит настройки сервиса в remote.Config.
func (c Config) RemoteConfig() remote.Config {
	return remote.Config{
		BaseURL:     c.ServiceURL,
		UploadPath:  c.UploadPath,
		AnalyzePath: c.AnalyzePath,
		Timeout:     c.RequestTimeout,
	}
}
