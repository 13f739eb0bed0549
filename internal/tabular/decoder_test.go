package tabular

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shaiso/Tabula/internal/domain"
)

func TestDecode_Empty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "only newlines", raw: "\n\n\n"},
		{name: "whitespace lines", raw: "  \n\t\n \r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Decode(tt.raw)
			if table.Columns == nil || table.Rows == nil {
				t.Fatal("columns and rows should be non-nil empty slices")
			}
			if len(table.Columns) != 0 {
				t.Errorf("expected 0 columns, got %d", len(table.Columns))
			}
			if len(table.Rows) != 0 {
				t.Errorf("expected 0 rows, got %d", len(table.Rows))
			}
		})
	}
}

func TestDecode_WellFormed(t *testing.T) {
	table := Decode("a,b\n1,2\n3,4\n")

	if len(table.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(table.Columns))
	}
	for i, want := range []string{"a", "b"} {
		col := table.Columns[i]
		if col.Key != want || col.DisplayName != want || col.Index != i {
			t.Errorf("column %d: got %+v", i, col)
		}
	}

	want := []domain.Row{
		{"a": "1", "b": "2"},
		{"a": "3", "b": "4"},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(table.Rows))
	}
	for i := range want {
		if !rowsEqual(table.Rows[i], want[i]) {
			t.Errorf("row %d: expected %v, got %v", i, want[i], table.Rows[i])
		}
	}
}

func TestDecode_ShapeMatchesInput(t *testing.T) {
	const n, m = 5, 7

	var sb strings.Builder
	header := make([]string, n)
	for j := range header {
		header[j] = fmt.Sprintf("col%d", j)
	}
	sb.WriteString(strings.Join(header, ",") + "\n")
	for i := 0; i < m; i++ {
		fields := make([]string, n)
		for j := range fields {
			fields[j] = fmt.Sprintf(" v%d_%d ", i, j)
		}
		sb.WriteString(strings.Join(fields, ",") + "\n")
	}

	table := Decode(sb.String())
	if len(table.Columns) != n {
		t.Fatalf("expected %d columns, got %d", n, len(table.Columns))
	}
	if len(table.Rows) != m {
		t.Fatalf("expected %d rows, got %d", m, len(table.Rows))
	}
	for i, row := range table.Rows {
		for j, col := range table.Columns {
			want := fmt.Sprintf("v%d_%d", i, j)
			if row[col.Key] != want {
				t.Errorf("row %d col %s: expected %q, got %q", i, col.Key, want, row[col.Key])
			}
		}
	}
}

func TestDecode_TrimsHeaderAndValues(t *testing.T) {
	table := Decode("  id , score \r\n 1 ,  0.5\r\n")

	if table.Columns[0].Key != "id" || table.Columns[1].Key != "score" {
		t.Fatalf("header should be trimmed, got %+v", table.Columns)
	}
	if table.Rows[0]["id"] != "1" || table.Rows[0]["score"] != "0.5" {
		t.Errorf("values should be trimmed, got %v", table.Rows[0])
	}
}

func TestDecode_SkipsBlankLinesBetweenRows(t *testing.T) {
	table := Decode("\n\na,b\n\n1,2\n   \n3,4")

	if len(table.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(table.Columns))
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[1]["a"] != "3" {
		t.Errorf("expected last row without trailing newline, got %v", table.Rows[1])
	}
}

func TestDecode_ShortRow(t *testing.T) {
	table := Decode("a,b,c\n1\n")

	row := table.Rows[0]
	if v, ok := row.Get("a"); !ok || v != "1" {
		t.Errorf("expected a=1, got %q (present=%v)", v, ok)
	}
	for _, key := range []string{"b", "c"} {
		if _, ok := row.Get(key); ok {
			t.Errorf("key %s should be absent, not empty", key)
		}
	}
}

func TestDecode_EmptyFieldIsPresent(t *testing.T) {
	table := Decode("a,b\n1,\n")

	v, ok := table.Rows[0].Get("b")
	if !ok {
		t.Fatal("empty trailing field should be present")
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}
}

func TestDecode_ExtraFieldsDropped(t *testing.T) {
	table := Decode("a,b\n1,2,3,4\n")

	row := table.Rows[0]
	if len(row) != 2 {
		t.Fatalf("expected 2 cells, got %d: %v", len(row), row)
	}
	for _, v := range row {
		if v == "3" || v == "4" {
			t.Errorf("extra field leaked into row: %v", row)
		}
	}
	if len(table.Columns) != 2 {
		t.Errorf("extra fields should not add columns, got %d", len(table.Columns))
	}
}

func TestDecode_DuplicateHeaderLastWins(t *testing.T) {
	table := Decode("a,a\n5,9\n7,8\n")

	if len(table.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(table.Columns))
	}
	if table.Columns[0].Key != "a" || table.Columns[1].Key != "a" {
		t.Fatalf("both columns should share key a, got %+v", table.Columns)
	}
	if table.Columns[0].Index != 0 || table.Columns[1].Index != 1 {
		t.Errorf("duplicate columns should keep their positions, got %+v", table.Columns)
	}

	for i, want := range []string{"9", "8"} {
		if got := table.Rows[i]["a"]; got != want {
			t.Errorf("row %d: expected a=%s (last field wins), got %s", i, want, got)
		}
	}
}

func TestDecode_DuplicateHeaderShortRow(t *testing.T) {
	table := Decode("a,b,a\n1,2\n1,2,3\n")

	if v, ok := table.Rows[0].Get("a"); ok {
		t.Errorf("missing rightmost duplicate should leave a absent, got %q", v)
	}
	if v, ok := table.Rows[0].Get("b"); !ok || v != "2" {
		t.Errorf("expected b=2, got %q (present=%v)", v, ok)
	}
	if got := table.Rows[1]["a"]; got != "3" {
		t.Errorf("complete row should take the rightmost value, got %q", got)
	}
}

func TestDecode_QuotesAreNotInterpreted(t *testing.T) {
	table := Decode("name,city\n\"Doe, John\",Paris\n")

	if got := table.Rows[0]["name"]; got != `"Doe` {
		t.Errorf("quotes should not be parsed, got %q", got)
	}
	if got := table.Rows[0]["city"]; got != `John"` {
		t.Errorf("expected naive split, got %q", got)
	}
}

func TestDecodeReader(t *testing.T) {
	table, err := DecodeReader(strings.NewReader("x\n1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0]["x"] != "1" {
		t.Errorf("unexpected table: %+v", table)
	}
}

func TestDecodeReader_ReadError(t *testing.T) {
	readErr := errors.New("boom")
	_, err := DecodeReader(iotest.ErrReader(readErr))
	if !errors.Is(err, readErr) {
		t.Errorf("expected wrapped read error, got %v", err)
	}
}

// --- Stats Tests ---

func TestStats(t *testing.T) {
	table := Decode("a,b,a\n1,2,3\n4\n")

	stats := Stats(table)
	if stats.Columns != 3 || stats.Rows != 2 {
		t.Errorf("unexpected shape: %+v", stats)
	}
	if stats.ShortRows != 1 || stats.CompleteRows != 1 {
		t.Errorf("expected 1 short and 1 complete row, got %+v", stats)
	}
	if len(stats.DuplicateKeys) != 1 || stats.DuplicateKeys[0] != "a" {
		t.Errorf("expected duplicate key a, got %v", stats.DuplicateKeys)
	}
	if !stats.Degraded() {
		t.Error("stats should be degraded")
	}
}

func TestStats_Clean(t *testing.T) {
	stats := Stats(Decode("a,b\n1,2\n"))
	if stats.Degraded() {
		t.Errorf("clean table should not be degraded: %+v", stats)
	}
}

func rowsEqual(a, b domain.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
