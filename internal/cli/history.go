package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/repo"
)

// journalReader — чтение журнала анализов. Реализация: repo.AnalysisRepo.
type journalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repo.AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]repo.AnalysisRecord, error)
}

// NewHistoryCmd создаёт команду history: последние записи журнала анализов
// или одна запись по --id.
func NewHistoryCmd(envFn func() (*Env, error)) *cobra.Command {
	var (
		limit int
		id    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analysis cycles from the journal (requires DB_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var recordID uuid.UUID
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid record id %q: %w", id, err)
				}
				recordID = parsed
			}

			env, err := envFn()
			if err != nil {
				return err
			}

			journal, closeFn, err := env.OpenJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if id != "" {
				return showRecord(cmd.Context(), env.Out, journal, recordID)
			}
			return listRecords(cmd.Context(), env.Out, journal, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records")
	cmd.Flags().StringVar(&id, "id", "", "Show a single record by ID")

	return cmd
}

func listRecords(ctx context.Context, out *Output, journal journalReader, limit int) error {
	records, err := journal.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	headers := []string{"ID", "SESSION", "STATUS", "FAILURE", "ROWS", "COLUMNS", "FINISHED"}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ID.String(),
			r.SessionID.String(),
			string(r.Status),
			string(r.Failure),
			strconv.Itoa(r.RowCount),
			strings.Join(r.Columns, ","),
			r.FinishedAt.Format(time.RFC3339),
		}
	}

	out.Print(headers, rows, records)
	return nil
}

// showRecord печатает одну запись как пары поле/значение.
func showRecord(ctx context.Context, out *Output, journal journalReader, id uuid.UUID) error {
	rec, err := journal.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}

	rows := [][]string{
		{"ID", rec.ID.String()},
		{"SESSION", rec.SessionID.String()},
		{"STATUS", string(rec.Status)},
		{"MESSAGE", rec.StatusMessage},
		{"FAILURE", string(rec.Failure)},
		{"FAILED STEP", rec.FailedStep},
		{"PRIMARY", rec.PrimaryName},
		{"ADJACENCY", rec.AdjacencyName},
		{"COLUMNS", strings.Join(rec.Columns, ",")},
		{"ROWS", strconv.Itoa(rec.RowCount)},
		{"STARTED", rec.StartedAt.Format(time.RFC3339)},
		{"FINISHED", rec.FinishedAt.Format(time.RFC3339)},
	}
	out.Print([]string{"FIELD", "VALUE"}, rows, rec)
	return nil
}
