package domain

// SessionStatus — статус цикла загрузки/анализа.
//
// Жизненный цикл:
//
//	IDLE → SUBMITTING → SUBMITTED → RUNNING → READY
//	            ↘ ERRORED               ↘ ERRORED
//
// READY и ERRORED завершают цикл: дальше возможен только Reset
// или повторная попытка перехода, который привёл к ошибке.
type SessionStatus string

const (
	// SessionStatusIdle — сессия создана, файлы выбираются.
	SessionStatusIdle SessionStatus = "IDLE"

	// SessionStatusSubmitting — файлы отправляются на сервис.
	SessionStatusSubmitting SessionStatus = "SUBMITTING"

	// SessionStatusSubmitted — файлы приняты, можно запускать вычисление.
	SessionStatusSubmitted SessionStatus = "SUBMITTED"

	// SessionStatusRunning — вычисление выполняется на сервисе.
	SessionStatusRunning SessionStatus = "RUNNING"

	// SessionStatusReady — результат получен и разобран в таблицу.
	SessionStatusReady SessionStatus = "READY"

	// SessionStatusErrored — загрузка или вычисление завершились ошибкой.
	SessionStatusErrored SessionStatus = "ERRORED"
)

// IsTerminal возвращает true, если статус финальный для цикла.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusReady, SessionStatusErrored:
		return true
	default:
		return false
	}
}

// IsBusy возвращает true, пока выполняется сетевой запрос.
func (s SessionStatus) IsBusy() bool {
	switch s {
	case SessionStatusSubmitting, SessionStatusRunning:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление SessionStatus.
func (s SessionStatus) String() string {
	return string(s)
}

// FailureKind — причина перехода в ERRORED.
//
// Публичный статус не различает транспортные ошибки и отказы сервера,
// но FailureKind сохраняет эту разницу для логов и метрик.
type FailureKind string

const (
	// FailureNone — ошибки не было.
	FailureNone FailureKind = ""

	// FailureMissingInput — submit вызван без одного из файлов.
	FailureMissingInput FailureKind = "MISSING_INPUT"

	// FailureTransport — сетевая ошибка при обращении к сервису.
	FailureTransport FailureKind = "TRANSPORT"

	// FailureRejected — сервис ответил не-2xx кодом.
	FailureRejected FailureKind = "REJECTED"

	// FailureTimeout — запрос не уложился в таймаут.
	FailureTimeout FailureKind = "TIMEOUT"
)

// Шаги цикла, на которых может произойти ошибка.
const (
	StepSubmit = "submit"
	StepRun    = "run"
)
