package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowSession — состояние одного цикла загрузки и анализа.
//
// Сессия живёт только в памяти. Одновременно существует одна сессия;
// новый цикл начинается с новой сессии (новый ID).
type WorkflowSession struct {
	// ID — уникальный идентификатор сессии.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус.
	Status SessionStatus `json:"status"`

	// StatusMessage — сообщение для пользователя (последняя запись выигрывает).
	StatusMessage string `json:"status_message"`

	// Inputs — выбранные файлы по ролям.
	Inputs map[Role]InputPayload `json:"inputs"`

	// ResultTable — результат. Есть только в статусе READY.
	ResultTable *Table `json:"result_table,omitempty"`

	// Failure — причина последней ошибки (для диагностики).
	Failure FailureKind `json:"failure,omitempty"`

	// FailedStep — шаг, на котором произошла ошибка (submit или run).
	FailedStep string `json:"failed_step,omitempty"`

	// Uploaded — текущие Inputs приняты сервисом.
	Uploaded bool `json:"uploaded"`

	// CreatedAt — время создания сессии.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего перехода.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkflowSession создаёт сессию в статусе IDLE.
func NewWorkflowSession() *WorkflowSession {
	now := time.Now()
	return &WorkflowSession{
		ID:        uuid.New(),
		Status:    SessionStatusIdle,
		Inputs:    make(map[Role]InputPayload, 2),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasAllInputs проверяет, что выбраны файлы для всех ролей.
func (s *WorkflowSession) HasAllInputs() bool {
	for _, role := range Roles() {
		if _, ok := s.Inputs[role]; !ok {
			return false
		}
	}
	return true
}

// MissingRoles возвращает роли без выбранного файла.
func (s *WorkflowSession) MissingRoles() []Role {
	var missing []Role
	for _, role := range Roles() {
		if _, ok := s.Inputs[role]; !ok {
			missing = append(missing, role)
		}
	}
	return missing
}

// SetInput записывает файл для роли. Принятая ранее загрузка становится неактуальной.
func (s *WorkflowSession) SetInput(p InputPayload) {
	s.Inputs[p.Role] = p
	s.Uploaded = false
	s.UpdatedAt = time.Now()
}

// MarkIdle возвращает сессию в IDLE, сохраняя выбранные файлы.
func (s *WorkflowSession) MarkIdle(msg string) {
	s.transition(SessionStatusIdle, msg)
}

// MarkSubmitting переводит сессию в SUBMITTING.
func (s *WorkflowSession) MarkSubmitting(msg string) {
	s.transition(SessionStatusSubmitting, msg)
	s.Uploaded = false
}

// MarkSubmitted переводит сессию в SUBMITTED.
func (s *WorkflowSession) MarkSubmitted(msg string) {
	s.transition(SessionStatusSubmitted, msg)
	s.Uploaded = true
}

// MarkRunning переводит сессию в RUNNING.
func (s *WorkflowSession) MarkRunning(msg string) {
	s.transition(SessionStatusRunning, msg)
}

// MarkReady переводит сессию в READY с результатом.
func (s *WorkflowSession) MarkReady(msg string, table *Table) {
	s.transition(SessionStatusReady, msg)
	s.ResultTable = table
}

// MarkErrored переводит сессию в ERRORED.
func (s *WorkflowSession) MarkErrored(step string, kind FailureKind, msg string) {
	s.transition(SessionStatusErrored, msg)
	s.Failure = kind
	s.FailedStep = step
}

// CanRetryRun проверяет, можно ли повторить run без повторной загрузки.
func (s *WorkflowSession) CanRetryRun() bool {
	return s.Status == SessionStatusErrored && s.FailedStep == StepRun && s.Uploaded
}

// Snapshot возвращает копию сессии, безопасную для передачи наружу.
func (s *WorkflowSession) Snapshot() WorkflowSession {
	cp := *s
	cp.Inputs = make(map[Role]InputPayload, len(s.Inputs))
	for role, p := range s.Inputs {
		cp.Inputs[role] = p
	}
	return cp
}

// Event возвращает событие о текущем состоянии сессии.
func (s *WorkflowSession) Event() SessionEvent {
	return SessionEvent{
		SessionID:     s.ID,
		Status:        s.Status,
		StatusMessage: s.StatusMessage,
		Failure:       s.Failure,
		At:            s.UpdatedAt,
	}
}

func (s *WorkflowSession) transition(status SessionStatus, msg string) {
	s.Status = status
	s.StatusMessage = msg
	s.UpdatedAt = time.Now()
	if status != SessionStatusReady {
		s.ResultTable = nil
	}
	if status != SessionStatusErrored {
		s.Failure = FailureNone
		s.FailedStep = ""
	}
}

// SessionEvent — уведомление о переходе сессии.
type SessionEvent struct {
	SessionID     uuid.UUID     `json:"session_id"`
	Status        SessionStatus `json:"status"`
	StatusMessage string        `json:"status_message"`
	Failure       FailureKind   `json:"failure,omitempty"`
	At            time.Time     `json:"at"`
}
