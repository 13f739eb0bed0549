package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Tabula/internal/domain"
)

// SessionSource — источник снимка текущей сессии.
//
// Реализация: *orchestrator.Orchestrator.
type SessionSource interface {
	Session() domain.WorkflowSession
}

// SessionView — состояние сессии без содержимого файлов.
type SessionView struct {
	ID            uuid.UUID              `json:"id"`
	Status        domain.SessionStatus   `json:"status"`
	StatusMessage string                 `json:"status_message"`
	Busy          bool                   `json:"busy"`
	Terminal      bool                   `json:"terminal"`
	Failure       domain.FailureKind     `json:"failure,omitempty"`
	FailedStep    string                 `json:"failed_step,omitempty"`
	Inputs        map[domain.Role]string `json:"inputs"`
	Uploaded      bool                   `json:"uploaded"`
	Columns       []string               `json:"columns,omitempty"`
	RowCount      int                    `json:"row_count"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewSessionView строит SessionView из снимка.
func NewSessionView(s domain.WorkflowSession) SessionView {
	view := SessionView{
		ID:            s.ID,
		Status:        s.Status,
		StatusMessage: s.StatusMessage,
		Busy:          s.Status.IsBusy(),
		Terminal:      s.Status.IsTerminal(),
		Failure:       s.Failure,
		FailedStep:    s.FailedStep,
		Inputs:        make(map[domain.Role]string, len(s.Inputs)),
		Uploaded:      s.Uploaded,
		UpdatedAt:     s.UpdatedAt,
	}
	for role, p := range s.Inputs {
		view.Inputs[role] = p.OriginalName
	}
	if s.ResultTable != nil {
		view.Columns = s.ResultTable.Headers()
		view.RowCount = len(s.ResultTable.Rows)
	}
	return view
}

// resultView — таблица результата.
type resultView struct {
	Columns []string     `json:"columns"`
	Rows    []domain.Row `json:"rows"`
}

// Handler — маршруты сервера состояния.
type Handler struct {
	source   SessionSource
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewHandler создаёт Handler. gatherer может быть nil — тогда /metrics не регистрируется.
func NewHandler(source SessionSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, gatherer: gatherer, logger: logger}
}

// Routes возвращает http.Handler со всеми маршрутами и middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /session", h.getSession)
	mux.HandleFunc("GET /session/result", h.getResult)

	return Chain(Logging(h.logger), Recovery())(mux)
}

func (h *Handler) getSession(w http.ResponseWriter, _ *http.Request) {
	Success(w, NewSessionView(h.source.Session()))
}

func (h *Handler) getResult(w http.ResponseWriter, _ *http.Request) {
	s := h.source.Session()
	if s.Status != domain.SessionStatusReady || s.ResultTable == nil {
		Error(w, http.StatusNotFound, ErrCodeNoResult,
			fmt.Sprintf("session is %s, result is available in READY", s.Status))
		return
	}
	Success(w, resultView{Columns: s.ResultTable.Headers(), Rows: s.ResultTable.Rows})
}

// Serve слушает addr до отмены ctx, затем останавливает сервер
// с таймаутом 5s.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, handler, logger)
}

// ServeListener — Serve поверх готового listener.
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	logger.Info("status server stopped")
	return nil
}
