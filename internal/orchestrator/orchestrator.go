package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/remote"
	"github.com/shaiso/Tabula/internal/tabular"
	"github.com/shaiso/Tabula/internal/telemetry"
)

// Сообщения для пользователя.
const (
	MsgSelectInputs   = "Select both files."
	MsgInputReplaced  = "Input replaced, submit again."
	MsgMissingInputs  = "Please select both files."
	MsgUploading      = "Uploading files..."
	MsgUploaded       = "Files uploaded successfully!"
	MsgUploadFailed   = "Error uploading files."
	MsgRunning        = "Running the model..."
	MsgRunComplete    = "Model run complete. Data loaded!"
	MsgRunFailed      = "Error running the model."
	MsgFileSelectedAs = "File selected as %s."
)

// Analyzer — клиент сервиса анализа.
//
// Реализация: remote.Client.
type Analyzer interface {
	// Upload отправляет оба файла на сервис.
	Upload(ctx context.Context, primary, adjacency domain.InputPayload) error

	// Analyze запускает вычисление и возвращает текст результата.
	Analyze(ctx context.Context) (string, error)
}

// Orchestrator — конечный автомат цикла загрузки и анализа.
//
// Одновременно существует одна сессия. Мьютекс отпускается на время
// сетевого запроса, поэтому Status() в это время видит SUBMITTING/RUNNING,
// а повторный вызов того же перехода получает ErrInFlight.
type Orchestrator struct {
	analyzer Analyzer

	session *domain.WorkflowSession
	mu      sync.Mutex

	observers []Observer
	autoRun   bool

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Analyzer — клиент сервиса (обязателен для Submit/Run).
	Analyzer Analyzer

	// Observers — наблюдатели, подписанные с момента создания.
	Observers []Observer

	// AutoRun — запускать Run сразу после успешного Submit.
	AutoRun bool

	// Metrics — коллекторы Prometheus (опционально).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт Orchestrator с новой сессией в статусе IDLE.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		analyzer:  cfg.Analyzer,
		session:   domain.NewWorkflowSession(),
		observers: append([]Observer(nil), cfg.Observers...),
		autoRun:   cfg.AutoRun,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
	o.session.StatusMessage = MsgSelectInputs
	return o
}

// Subscribe добавляет наблюдателя.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

// Session возвращает копию текущей сессии.
func (o *Orchestrator) Session() domain.WorkflowSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Snapshot()
}

// Status возвращает текущий статус и сообщение.
func (o *Orchestrator) Status() (domain.SessionStatus, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Status, o.session.StatusMessage
}

// Result возвращает таблицу результата, если сессия в статусе READY.
func (o *Orchestrator) Result() (*domain.Table, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Status != domain.SessionStatusReady || o.session.ResultTable == nil {
		return nil, false
	}
	return o.session.ResultTable, true
}

// SelectInput выбирает файл для роли. Сетевых запросов нет.
//
// Разрешено в IDLE, SUBMITTED и ERRORED. В SUBMITTED замена файла
// делает принятую загрузку неактуальной и возвращает сессию в IDLE.
func (o *Orchestrator) SelectInput(role domain.Role, payload domain.InputPayload) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	payload.Role = role

	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	switch s.Status {
	case domain.SessionStatusIdle, domain.SessionStatusErrored:
		s.SetInput(payload)
		if s.Status == domain.SessionStatusIdle {
			s.StatusMessage = fmt.Sprintf(MsgFileSelectedAs, payload.CanonicalFilename())
		}
	case domain.SessionStatusSubmitted:
		s.SetInput(payload)
		s.MarkIdle(MsgInputReplaced)
	default:
		return fmt.Errorf("%w: select input in %s", ErrInvalidTransition, s.Status)
	}

	o.sessionLogger().Debug("input selected",
		"role", role,
		"original_name", payload.OriginalName,
		"size", payload.Size(),
	)
	o.publishLocked()
	return nil
}

// Submit отправляет оба файла на сервис.
//
// Предусловия: выбраны обе роли, статус IDLE или ERRORED.
// Без файлов возвращает ErrMissingInput, не обращаясь к сети.
// При ошибке сервиса сессия переходит в ERRORED; автоматических повторов нет.
func (o *Orchestrator) Submit(ctx context.Context) error {
	o.mu.Lock()
	s := o.session

	switch s.Status {
	case domain.SessionStatusSubmitting:
		o.mu.Unlock()
		return ErrInFlight
	case domain.SessionStatusIdle, domain.SessionStatusErrored:
	default:
		o.mu.Unlock()
		return fmt.Errorf("%w: submit in %s", ErrInvalidTransition, s.Status)
	}

	if !s.HasAllInputs() {
		missing := s.MissingRoles()
		s.StatusMessage = MsgMissingInputs
		o.metrics.ObserveFailure(domain.StepSubmit, string(domain.FailureMissingInput))
		o.publishLocked()
		o.mu.Unlock()
		return fmt.Errorf("%w: missing %v", ErrMissingInput, missing)
	}
	if o.analyzer == nil {
		o.mu.Unlock()
		return ErrNoAnalyzer
	}

	primary := s.Inputs[domain.RolePrimary]
	adjacency := s.Inputs[domain.RoleAdjacency]
	s.MarkSubmitting(MsgUploading)
	o.publishLocked()
	logger := o.sessionLogger()
	o.mu.Unlock()

	logger.Info("submitting inputs",
		"primary_size", primary.Size(),
		"adjacency_size", adjacency.Size(),
	)
	err := o.analyzer.Upload(ctx, primary, adjacency)

	o.mu.Lock()
	if o.session != s {
		o.mu.Unlock()
		logger.Warn("session reset during submit, discarding result")
		return ErrSessionReset
	}

	if err != nil {
		kind := classify(err)
		s.MarkErrored(domain.StepSubmit, kind, MsgUploadFailed)
		o.metrics.ObserveFailure(domain.StepSubmit, string(kind))
		o.publishLocked()
		o.mu.Unlock()

		logger.Error("submit failed", "failure", kind, "error", err)
		return fmt.Errorf("submit: %w", err)
	}

	s.MarkSubmitted(MsgUploaded)
	o.publishLocked()
	o.mu.Unlock()

	logger.Info("inputs submitted")

	if o.autoRun {
		return o.Run(ctx)
	}
	return nil
}

// Run запускает вычисление и разбирает результат.
//
// Разрешено в SUBMITTED, а также в ERRORED, если ошибка случилась на шаге
// run и загруженные файлы не менялись: повторная загрузка не нужна.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	s := o.session

	switch {
	case s.Status == domain.SessionStatusRunning:
		o.mu.Unlock()
		return ErrInFlight
	case s.Status == domain.SessionStatusSubmitted, s.CanRetryRun():
	default:
		o.mu.Unlock()
		return fmt.Errorf("%w: run in %s", ErrInvalidTransition, s.Status)
	}
	if o.analyzer == nil {
		o.mu.Unlock()
		return ErrNoAnalyzer
	}

	s.MarkRunning(MsgRunning)
	o.publishLocked()
	logger := o.sessionLogger()
	o.mu.Unlock()

	logger.Info("running analysis")
	text, err := o.analyzer.Analyze(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != s {
		logger.Warn("session reset during run, discarding result")
		return ErrSessionReset
	}

	if err != nil {
		kind := classify(err)
		s.MarkErrored(domain.StepRun, kind, MsgRunFailed)
		o.metrics.ObserveFailure(domain.StepRun, string(kind))
		o.publishLocked()

		logger.Error("run failed", "failure", kind, "error", err)
		return fmt.Errorf("run: %w", err)
	}

	table := tabular.Decode(text)
	if stats := tabular.Stats(table); stats.Degraded() {
		logger.Warn("result decoded with incomplete rows",
			"rows", stats.Rows,
			"short_rows", stats.ShortRows,
			"duplicate_keys", stats.DuplicateKeys,
		)
	}

	s.MarkReady(MsgRunComplete, &table)
	o.metrics.ObserveDecodedRows(len(table.Rows))
	o.publishLocked()

	logger.Info("analysis complete",
		"columns", len(table.Columns),
		"rows", len(table.Rows),
	)
	return nil
}

// Reset заменяет сессию новой в статусе IDLE. Разрешено в любом статусе.
//
// Запрос, начатый до Reset, не отменяется, но его результат отбрасывается.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev := o.session.ID
	o.session = domain.NewWorkflowSession()
	o.session.StatusMessage = MsgSelectInputs

	o.logger.Debug("session reset",
		"previous_session_id", prev,
		"session_id", o.session.ID,
	)
	o.publishLocked()
}

// RunCycle выполняет полный цикл: выбор обоих файлов, Submit и Run.
// Возвращает таблицу результата.
func (o *Orchestrator) RunCycle(ctx context.Context, primary, adjacency domain.InputPayload) (*domain.Table, error) {
	if err := o.SelectInput(domain.RolePrimary, primary); err != nil {
		return nil, err
	}
	if err := o.SelectInput(domain.RoleAdjacency, adjacency); err != nil {
		return nil, err
	}
	if err := o.Submit(ctx); err != nil {
		return nil, err
	}

	// С AutoRun вычисление уже запущено из Submit
	if status, _ := o.Status(); status == domain.SessionStatusSubmitted {
		if err := o.Run(ctx); err != nil {
			return nil, err
		}
	}

	table, ok := o.Result()
	if !ok {
		return nil, fmt.Errorf("%w: no result after run", ErrInvalidTransition)
	}
	return table, nil
}

// publishLocked уведомляет наблюдателей. Вызывается под o.mu.
func (o *Orchestrator) publishLocked() {
	event := o.session.Event()
	o.metrics.ObserveTransition(event.Status.String())

	for _, obs := range o.observers {
		obs.OnTransition(event)
	}
}

// sessionLogger возвращает логгер с session_id. Вызывается под o.mu.
func (o *Orchestrator) sessionLogger() *slog.Logger {
	return telemetry.WithSessionID(o.logger, o.session.ID.String())
}

// classify определяет причину ошибки сервиса.
func classify(err error) domain.FailureKind {
	switch {
	case errors.Is(err, remote.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	case errors.Is(err, remote.ErrRejected):
		return domain.FailureRejected
	default:
		return domain.FailureTransport
	}
}
