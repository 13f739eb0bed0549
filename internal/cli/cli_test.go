package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/shaiso/Tabula/internal/config"
	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/export"
	"github.com/shaiso/Tabula/internal/repo"
	"github.com/shaiso/Tabula/internal/scheduler"
	"github.com/shaiso/Tabula/internal/tabular"
)

type testEnv struct {
	env    *Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(serviceURL string, jsonMode bool) *testEnv {
	cfg := config.Default()
	if serviceURL != "" {
		cfg.ServiceURL = serviceURL
	}

	var stdout, stderr bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		env:    NewEnv(cfg, logger, NewOutputTo(jsonMode, &stdout, &stderr)),
		stdout: &stdout,
		stderr: &stderr,
	}
}

func (te *testEnv) envFn() (*Env, error) {
	return te.env, nil
}

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// analysisServer — фейковый сервис: /upload принимает, /analyze отвечает result.
func analysisServer(t *testing.T, analyzeStatus int, result string) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var uploads, analyzes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			uploads.Add(1)
		case "/analyze":
			analyzes.Add(1)
			w.WriteHeader(analyzeStatus)
			w.Write([]byte(result))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &uploads, &analyzes
}

// --- Output Tests ---

func TestOutput_PrintResult_Text(t *testing.T) {
	var out bytes.Buffer
	o := NewOutputTo(false, &out, io.Discard)

	table := tabular.Decode("id,name\n1,alpha\n2\n")
	o.PrintResult(&table)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[0], "name") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.TrimSpace(lines[3]) != "2" {
		t.Errorf("absent cell should print empty, got %q", lines[3])
	}
}

func TestOutput_PrintResult_NoData(t *testing.T) {
	for _, raw := range []string{"", "a,b\n"} {
		var out bytes.Buffer
		o := NewOutputTo(false, &out, io.Discard)

		table := tabular.Decode(raw)
		o.PrintResult(&table)

		if strings.TrimSpace(out.String()) != NoData {
			t.Errorf("%q: expected %q, got %q", raw, NoData, out.String())
		}
	}
}

func TestOutput_PrintResult_JSON(t *testing.T) {
	var out bytes.Buffer
	o := NewOutputTo(true, &out, io.Discard)

	table := tabular.Decode("a,b\n1\n")
	o.PrintResult(&table)

	var got struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out.String())
	}
	if len(got.Columns) != 2 || len(got.Rows) != 1 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if _, ok := got.Rows[0]["b"]; ok {
		t.Error("absent cell should not appear in json")
	}
}

func TestOutput_StatusObserver(t *testing.T) {
	var errOut bytes.Buffer
	obs := NewOutputTo(false, io.Discard, &errOut).StatusObserver()

	obs.OnTransition(domain.SessionEvent{Status: domain.SessionStatusIdle, StatusMessage: "Select both files."})
	obs.OnTransition(domain.SessionEvent{Status: domain.SessionStatusIdle, StatusMessage: "Select both files."})
	obs.OnTransition(domain.SessionEvent{Status: domain.SessionStatusSubmitting, StatusMessage: "Uploading files..."})

	want := "[IDLE] Select both files.\n[SUBMITTING] Uploading files...\n"
	if errOut.String() != want {
		t.Errorf("expected %q, got %q", want, errOut.String())
	}
}

// --- decode Tests ---

func TestDecodeCmd(t *testing.T) {
	te := newTestEnv("", false)
	path := writeFile(t, "result.csv", "a,a\n5,9\n")

	if err := execute(NewDecodeCmd(te.envFn), "--stats", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(te.stdout.String(), "9") || strings.Contains(te.stdout.String(), "5") {
		t.Errorf("duplicate header should resolve to last field, got %q", te.stdout.String())
	}
	if !strings.Contains(te.stderr.String(), "duplicate_keys=[a]") {
		t.Errorf("expected stats in stderr, got %q", te.stderr.String())
	}
}

func TestDecodeCmd_Stdin(t *testing.T) {
	te := newTestEnv("", true)

	cmd := NewDecodeCmd(te.envFn)
	cmd.SetIn(strings.NewReader("x\n1\n"))
	if err := execute(cmd, "-"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(te.stdout.String(), `"x": "1"`) {
		t.Errorf("unexpected output %q", te.stdout.String())
	}
}

func TestDecodeCmd_MissingFile(t *testing.T) {
	te := newTestEnv("", false)
	err := execute(NewDecodeCmd(te.envFn), filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

// --- analyze Tests ---

func TestAnalyzeCmd(t *testing.T) {
	server, uploads, analyzes := analysisServer(t, http.StatusOK, "a,b\n1,2\n3,4\n")
	te := newTestEnv(server.URL, false)

	primary := writeFile(t, "features.csv", "f\n1\n")
	adjacency := writeFile(t, "edges.csv", "0,1\n")
	xlsxPath := filepath.Join(t.TempDir(), "out.xlsx")

	err := execute(NewAnalyzeCmd(te.envFn),
		"--primary", primary,
		"--adjacency", adjacency,
		"--xlsx", xlsxPath,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, te.stderr.String())
	}

	if uploads.Load() != 1 || analyzes.Load() != 1 {
		t.Errorf("expected one call per endpoint, got %d/%d", uploads.Load(), analyzes.Load())
	}
	if !strings.Contains(te.stdout.String(), "3  4") {
		t.Errorf("expected result table, got %q", te.stdout.String())
	}
	if !strings.Contains(te.stderr.String(), "[READY] Model run complete. Data loaded!") {
		t.Errorf("expected final status in stderr, got %q", te.stderr.String())
	}

	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("xlsx not written: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.DefaultSheet)
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header and 2 exported rows, got %d", len(rows))
	}
}

func TestAnalyzeCmd_RunRejected(t *testing.T) {
	server, _, _ := analysisServer(t, http.StatusInternalServerError, "boom")
	te := newTestEnv(server.URL, false)

	err := execute(NewAnalyzeCmd(te.envFn),
		"--primary", writeFile(t, "x.csv", "f\n1\n"),
		"--adjacency", writeFile(t, "e.csv", "0,1\n"),
	)
	if !errors.Is(err, ErrCycleFailed) {
		t.Fatalf("expected ErrCycleFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Error running the model.") {
		t.Errorf("error should carry the status message, got %v", err)
	}
	if te.stdout.Len() != 0 {
		t.Errorf("no table should be printed, got %q", te.stdout.String())
	}
}

func TestAnalyzeCmd_NoRun(t *testing.T) {
	server, uploads, analyzes := analysisServer(t, http.StatusOK, "a\n1\n")
	te := newTestEnv(server.URL, false)

	err := execute(NewAnalyzeCmd(te.envFn),
		"--primary", writeFile(t, "x.csv", "f\n1\n"),
		"--adjacency", writeFile(t, "e.csv", "0,1\n"),
		"--no-run",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploads.Load() != 1 || analyzes.Load() != 0 {
		t.Errorf("expected upload only, got %d/%d", uploads.Load(), analyzes.Load())
	}
	if !strings.Contains(te.stderr.String(), "[SUBMITTED] Files uploaded successfully!") {
		t.Errorf("unexpected stderr %q", te.stderr.String())
	}
}

func TestAnalyzeCmd_MissingFlag(t *testing.T) {
	te := newTestEnv("", false)
	err := execute(NewAnalyzeCmd(te.envFn), "--primary", "x.csv")
	if !errors.Is(err, ErrInvalidInputFlag) {
		t.Errorf("expected ErrInvalidInputFlag for missing adjacency, got %v", err)
	}
}

func TestAnalyzeCmd_InputByRole(t *testing.T) {
	server, uploads, analyzes := analysisServer(t, http.StatusOK, "a\n1\n")
	te := newTestEnv(server.URL, false)

	err := execute(NewAnalyzeCmd(te.envFn),
		"--input", "Adjacency="+writeFile(t, "e.csv", "0,1\n"),
		"--input", "primary="+writeFile(t, "x.csv", "f\n1\n"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploads.Load() != 1 || analyzes.Load() != 1 {
		t.Errorf("expected one full cycle, got %d/%d", uploads.Load(), analyzes.Load())
	}
}

func TestAnalyzeOpts_Paths(t *testing.T) {
	tests := []struct {
		name    string
		opts    analyzeOpts
		want    map[domain.Role]string
		wantErr error
	}{
		{
			name: "flags",
			opts: analyzeOpts{primary: "x.csv", adjacency: "e.csv"},
			want: map[domain.Role]string{domain.RolePrimary: "x.csv", domain.RoleAdjacency: "e.csv"},
		},
		{
			name: "input overrides flag",
			opts: analyzeOpts{primary: "x.csv", inputs: []string{"adjacency=e.csv", " PRIMARY =y.csv"}},
			want: map[domain.Role]string{domain.RolePrimary: "y.csv", domain.RoleAdjacency: "e.csv"},
		},
		{
			name:    "unknown role",
			opts:    analyzeOpts{primary: "x.csv", inputs: []string{"labels=l.csv"}},
			wantErr: domain.ErrUnknownRole,
		},
		{
			name:    "no separator",
			opts:    analyzeOpts{inputs: []string{"primary"}},
			wantErr: ErrInvalidInputFlag,
		},
		{
			name:    "missing role",
			opts:    analyzeOpts{inputs: []string{"primary=x.csv"}},
			wantErr: ErrInvalidInputFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.paths()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for role, path := range tt.want {
				if got[role] != path {
					t.Errorf("%s: expected %s, got %s", role, path, got[role])
				}
			}
		})
	}
}

// --- watch Tests ---

func TestWatchCmd_Count(t *testing.T) {
	server, uploads, analyzes := analysisServer(t, http.StatusOK, "a\n1\n")
	te := newTestEnv(server.URL, false)

	err := execute(NewWatchCmd(te.envFn),
		"--primary", writeFile(t, "x.csv", "f\n1\n"),
		"--adjacency", writeFile(t, "e.csv", "0,1\n"),
		"--cron", "@every 1s",
		"--count", "2",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploads.Load() != 2 || analyzes.Load() != 2 {
		t.Errorf("expected 2 full cycles, got %d/%d", uploads.Load(), analyzes.Load())
	}
	if !strings.Contains(te.stderr.String(), "2 runs, 0 failed") {
		t.Errorf("unexpected summary %q", te.stderr.String())
	}
	if !strings.Contains(te.stderr.String(), "Next run at ") {
		t.Errorf("expected first run time, got %q", te.stderr.String())
	}
}

func TestWatchCmd_InvalidCron(t *testing.T) {
	te := newTestEnv("", false)
	err := execute(NewWatchCmd(te.envFn),
		"--primary", "x.csv",
		"--adjacency", "e.csv",
		"--cron", "every minute",
	)
	if err == nil || !strings.Contains(err.Error(), "cron") {
		t.Errorf("expected cron parse error, got %v", err)
	}
}

func TestWatchCmd_UnknownTimeZone(t *testing.T) {
	te := newTestEnv("", false)
	err := execute(NewWatchCmd(te.envFn),
		"--primary", "x.csv",
		"--adjacency", "e.csv",
		"--cron", "0 12 * * *",
		"--tz", "Europe/Mosow",
	)
	if !errors.Is(err, scheduler.ErrUnknownTimeZone) {
		t.Errorf("expected ErrUnknownTimeZone, got %v", err)
	}
}

// --- Integration gating Tests ---

func TestHistoryCmd_NotConfigured(t *testing.T) {
	te := newTestEnv("", false)
	if err := execute(NewHistoryCmd(te.envFn)); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHistoryCmd_InvalidID(t *testing.T) {
	te := newTestEnv("", false)
	err := execute(NewHistoryCmd(te.envFn), "--id", "not-a-uuid")
	if err == nil || !strings.Contains(err.Error(), "invalid record id") {
		t.Errorf("expected invalid id error, got %v", err)
	}
}

// fakeJournal — журнал в памяти.
type fakeJournal struct {
	records []repo.AnalysisRecord
}

func (f *fakeJournal) GetByID(_ context.Context, id uuid.UUID) (*repo.AnalysisRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeJournal) ListRecent(_ context.Context, limit int) ([]repo.AnalysisRecord, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func journalWithRecord() (*fakeJournal, repo.AnalysisRecord) {
	rec := repo.AnalysisRecord{
		ID:            uuid.New(),
		SessionID:     uuid.New(),
		Status:        domain.SessionStatusErrored,
		Failure:       domain.FailureTimeout,
		FailedStep:    domain.StepRun,
		StatusMessage: "Error running the model.",
		PrimaryName:   "features.csv",
		AdjacencyName: "graph.csv",
		FinishedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	return &fakeJournal{records: []repo.AnalysisRecord{rec}}, rec
}

func TestShowRecord(t *testing.T) {
	journal, rec := journalWithRecord()
	var stdout bytes.Buffer
	out := NewOutputTo(false, &stdout, io.Discard)

	if err := showRecord(context.Background(), out, journal, rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{rec.ID.String(), "TIMEOUT", "Error running the model.", "graph.csv", "2026-03-10T12:00:00Z"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, stdout.String())
		}
	}
}

func TestShowRecord_NotFound(t *testing.T) {
	journal, _ := journalWithRecord()
	out := NewOutputTo(false, io.Discard, io.Discard)

	err := showRecord(context.Background(), out, journal, uuid.New())
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListRecords_JSON(t *testing.T) {
	journal, rec := journalWithRecord()
	var stdout bytes.Buffer
	out := NewOutputTo(true, &stdout, io.Discard)

	if err := listRecords(context.Background(), out, journal, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []repo.AnalysisRecord
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("unexpected records %+v", got)
	}
}

func TestEventsCmd_NotConfigured(t *testing.T) {
	te := newTestEnv("", false)
	if err := execute(NewEventsCmd(te.envFn)); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
