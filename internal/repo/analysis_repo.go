package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tabula/internal/domain"
)

// AnalysisRecord — строка журнала: итог одного цикла загрузки и анализа.
type AnalysisRecord struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	Status        domain.SessionStatus
	Failure       domain.FailureKind
	FailedStep    string
	StatusMessage string

	PrimaryName   string
	AdjacencyName string

	Columns  []string
	RowCount int

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewAnalysisRecord строит запись из снимка сессии в READY или ERRORED.
func NewAnalysisRecord(session domain.WorkflowSession) (*AnalysisRecord, error) {
	if session.Status != domain.SessionStatusReady && session.Status != domain.SessionStatusErrored {
		return nil, fmt.Errorf("%w: status %s", ErrNotFinished, session.Status)
	}

	rec := &AnalysisRecord{
		ID:            uuid.New(),
		SessionID:     session.ID,
		Status:        session.Status,
		Failure:       session.Failure,
		FailedStep:    session.FailedStep,
		StatusMessage: session.StatusMessage,
		PrimaryName:   session.Inputs[domain.RolePrimary].OriginalName,
		AdjacencyName: session.Inputs[domain.RoleAdjacency].OriginalName,
		Columns:       []string{},
		StartedAt:     session.CreatedAt,
		FinishedAt:    session.UpdatedAt,
	}
	if session.ResultTable != nil {
		rec.Columns = session.ResultTable.Headers()
		rec.RowCount = len(session.ResultTable.Rows)
	}
	return rec, nil
}

// AnalysisRepo — журнал анализов в PostgreSQL.
type AnalysisRepo struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepo создаёт AnalysisRepo.
func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

// Record сохраняет запись.
func (r *AnalysisRepo) Record(ctx context.Context, rec *AnalysisRecord) error {
	query := `
		INSERT INTO analyses (id, session_id, status, failure, failed_step, status_message,
		                      primary_name, adjacency_name, columns, row_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		string(rec.Status),
		nullString(string(rec.Failure)),
		nullString(rec.FailedStep),
		rec.StatusMessage,
		nullString(rec.PrimaryName),
		nullString(rec.AdjacencyName),
		rec.Columns,
		rec.RowCount,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *AnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*AnalysisRecord, error) {
	query := `
		SELECT id, session_id, status, failure, failed_step, status_message,
		       primary_name, adjacency_name, columns, row_count, started_at, finished_at
		FROM analyses
		WHERE id = $1
	`
	return scanAnalysis(r.pool.QueryRow(ctx, query, id))
}

// ListRecent возвращает последние записи, новые первыми.
func (r *AnalysisRepo) ListRecent(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, session_id, status, failure, failed_step, status_message,
		       primary_name, adjacency_name, columns, row_count, started_at, finished_at
		FROM analyses
		ORDER BY finished_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// --- Helpers ---

func scanAnalysis(row pgx.Row) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var status string
	var failure, failedStep, primaryName, adjacencyName *string

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&status,
		&failure,
		&failedStep,
		&rec.StatusMessage,
		&primaryName,
		&adjacencyName,
		&rec.Columns,
		&rec.RowCount,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	rec.Status = domain.SessionStatus(status)
	rec.Failure = domain.FailureKind(deref(failure))
	rec.FailedStep = deref(failedStep)
	rec.PrimaryName = deref(primaryName)
	rec.AdjacencyName = deref(adjacencyName)
	return &rec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
