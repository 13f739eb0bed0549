package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Tabula/internal/config"
	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/mq"
	"github.com/shaiso/Tabula/internal/orchestrator"
	"github.com/shaiso/Tabula/internal/remote"
	"github.com/shaiso/Tabula/internal/repo"
	"github.com/shaiso/Tabula/internal/telemetry"
)

// Env — зависимости команды, собранные после разбора флагов.
type Env struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics
	Out      *Output
}

// NewEnv создаёт окружение с собственным реестром метрик.
func NewEnv(cfg config.Config, logger *slog.Logger, out *Output) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	return &Env{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  telemetry.NewMetrics(reg),
		Out:      out,
	}
}

// Analyzer создаёт клиент сервиса анализа.
func (e *Env) Analyzer() *remote.Client {
	rc := e.Config.RemoteConfig()
	rc.Metrics = e.Metrics
	rc.Logger = e.Logger
	return remote.NewClient(rc)
}

// Orchestrator создаёт оркестратор с выводом статусов в stderr и в лог.
// observers подписываются после них.
func (e *Env) Orchestrator(autoRun bool, observers ...orchestrator.Observer) *orchestrator.Orchestrator {
	orch := orchestrator.New(orchestrator.Config{
		Analyzer: e.Analyzer(),
		Observers: []orchestrator.Observer{
			e.Out.StatusObserver(),
			orchestrator.LogObserver(e.Logger),
		},
		AutoRun: autoRun,
		Metrics: e.Metrics,
		Logger:  e.Logger,
	})
	for _, obs := range observers {
		orch.Subscribe(obs)
	}
	return orch
}

// OpenJournal подключает журнал анализов. Без DB_URL возвращает ErrNotConfigured.
func (e *Env) OpenJournal(ctx context.Context) (*repo.AnalysisRepo, func(), error) {
	if e.Config.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("journal: %w: set %s", ErrNotConfigured, config.EnvDatabaseURL)
	}

	pool, err := repo.NewPool(ctx, e.Config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("journal: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("journal: %w", err)
	}
	return repo.NewAnalysisRepo(pool), pool.Close, nil
}

// OpenBroker подключает RabbitMQ и объявляет топологию.
// Без RABBITMQ_URL возвращает ErrNotConfigured.
func (e *Env) OpenBroker(ctx context.Context) (*mq.Connection, error) {
	if e.Config.RabbitMQURL == "" {
		return nil, fmt.Errorf("broker: %w: set %s", ErrNotConfigured, config.EnvRabbitMQURL)
	}

	conn, err := mq.NewConnection(e.Config.RabbitMQURL, e.Logger)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: %w", err)
	}
	return conn, nil
}

// Integrations — необязательные подключения команды analyze/watch.
type Integrations struct {
	Journal   *repo.AnalysisRepo
	Forwarder *mq.EventForwarder

	closers []func()
}

// Observers возвращает наблюдателей, которых нужно подписать.
func (i *Integrations) Observers() []orchestrator.Observer {
	if i.Forwarder == nil {
		return nil
	}
	return []orchestrator.Observer{i.Forwarder}
}

// Close закрывает подключения в обратном порядке.
func (i *Integrations) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

// OpenIntegrations подключает журнал и брокер, если они настроены.
// Ошибка подключения не фатальна: команда работает без интеграции.
func (e *Env) OpenIntegrations(ctx context.Context) *Integrations {
	integ := &Integrations{}

	if e.Config.DatabaseURL != "" {
		journal, closeFn, err := e.OpenJournal(ctx)
		if err != nil {
			e.Logger.Warn("journal unavailable, results will not be recorded", "error", err)
		} else {
			integ.Journal = journal
			integ.closers = append(integ.closers, closeFn)
		}
	}

	if e.Config.RabbitMQURL != "" {
		conn, err := e.OpenBroker(ctx)
		if err != nil {
			e.Logger.Warn("broker unavailable, session events will not be published", "error", err)
		} else {
			fwd := mq.NewEventForwarder(mq.NewPublisher(conn, e.Logger), mq.ForwarderConfig{Logger: e.Logger})
			integ.Forwarder = fwd
			integ.closers = append(integ.closers, func() { conn.Close() }, fwd.Close)
		}
	}
	return integ
}

// Record пишет итог сессии в журнал, если он подключён.
func (i *Integrations) Record(ctx context.Context, logger *slog.Logger, session domain.WorkflowSession) {
	if i.Journal == nil {
		return
	}

	rec, err := repo.NewAnalysisRecord(session)
	if err != nil {
		logger.Debug("session not recorded", "session_id", session.ID, "reason", err)
		return
	}
	if err := i.Journal.Record(ctx, rec); err != nil {
		logger.Warn("failed to record analysis", "session_id", session.ID, "error", err)
		return
	}
	logger.Debug("analysis recorded", "id", rec.ID, "session_id", session.ID)
}

// PushMetrics отправляет метрики в Pushgateway, если он настроен.
func (e *Env) PushMetrics(command string) {
	if e.Config.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Push(ctx, e.Config.PushgatewayURL, e.Registry, command); err != nil {
		e.Logger.Warn("failed to push metrics", "error", err)
	}
}

// readPayload читает файл для роли. "-" означает stdin.
func readPayload(role domain.Role, path string) (domain.InputPayload, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.InputPayload{}, fmt.Errorf("read %s file: %w", role, err)
	}
	payload, err := domain.NewInputPayload(role, path, data)
	if err != nil {
		return domain.InputPayload{}, err
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		payload = payload.WithContentType(ct)
	}
	return payload, nil
}
