package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — пятипольные выражения и дескрипторы (@hourly, @every 5m).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule разбирает cron-выражение. tz — имя зоны IANA и имеет
// приоритет над префиксом CRON_TZ=. Пустая tz оставляет зону выражения
// (по умолчанию локальную).
func ParseSchedule(expr, tz string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	if tz == "" {
		return schedule, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownTimeZone, tz, err)
	}
	if spec, ok := schedule.(*cron.SpecSchedule); ok {
		spec.Location = loc
	}
	return schedule, nil
}

// NextRun возвращает ближайший запуск после from в UTC.
func NextRun(expr, tz string, from time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(expr, tz)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from).UTC(), nil
}
