package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob — имя job в Pushgateway.
const PushJob = "tabula"

// Push отправляет метрики из gatherer в Pushgateway.
func Push(ctx context.Context, url string, gatherer prometheus.Gatherer, command string) error {
	pusher := push.New(url, PushJob).
		Gatherer(gatherer).
		Grouping("command", command)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
