package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrNoSchedule — Watcher создан без расписания.
	ErrNoSchedule = errors.New("scheduler: no schedule")

	// ErrUnknownTimeZone — зона не найдена в базе IANA.
	ErrUnknownTimeZone = errors.New("scheduler: unknown time zone")
)

// Job — один повтор цикла анализа.
type Job func(ctx context.Context) error

// Watcher повторяет Job по расписанию.
//
// Запуски не перекрываются: если Job длился дольше интервала,
// следующий запуск считается от момента завершения.
type Watcher struct {
	schedule cron.Schedule
	job      Job
	maxRuns  int
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация Watcher.
type Config struct {
	// Schedule — расписание (см. ParseSchedule).
	Schedule cron.Schedule

	Job Job

	// MaxRuns — сколько запусков выполнить; 0 — без ограничения.
	MaxRuns int

	Logger *slog.Logger
}

// Stats — итог работы Watcher.
type Stats struct {
	Runs     int
	Failures int
}

// New создаёт Watcher.
func New(cfg Config) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		schedule: cfg.Schedule,
		job:      cfg.Job,
		maxRuns:  cfg.MaxRuns,
		logger:   logger,
		now:      time.Now,
	}
}

// Run выполняет Job по расписанию до отмены ctx или исчерпания MaxRuns.
// Ошибка одного запуска не останавливает Watcher.
func (w *Watcher) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if w.schedule == nil || w.job == nil {
		return stats, ErrNoSchedule
	}

	for w.maxRuns == 0 || stats.Runs < w.maxRuns {
		next := w.schedule.Next(w.now())
		w.logger.Debug("next analysis scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return stats, ctx.Err()
		case <-timer.C:
		}

		if err := w.Tick(ctx); err != nil {
			stats.Failures++
		}
		stats.Runs++
	}

	w.logger.Info("watcher finished", "runs", stats.Runs, "failures", stats.Failures)
	return stats, nil
}

// Tick выполняет Job один раз и логирует результат.
func (w *Watcher) Tick(ctx context.Context) error {
	start := w.now()
	err := w.job(ctx)

	if err != nil {
		w.logger.Error("scheduled analysis failed",
			"duration", time.Since(start),
			"error", err,
		)
		return err
	}

	w.logger.Info("scheduled analysis completed", "duration", time.Since(start))
	return nil
}
