package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/orchestrator"
)

// NoData — вывод для пустого результата.
const NoData = "no data"

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными writers.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// tableJSON — JSON-представление результата. Отсутствующие ячейки
// не попадают в объект строки.
type tableJSON struct {
	Columns []string     `json:"columns"`
	Rows    []domain.Row `json:"rows"`
}

// PrintResult выводит таблицу результата. Пустая таблица в текстовом
// режиме печатается как "no data".
func (o *Output) PrintResult(table *domain.Table) {
	if table == nil {
		table = &domain.Table{Columns: []domain.ColumnSpec{}, Rows: []domain.Row{}}
	}

	if o.jsonMode {
		o.JSON(tableJSON{Columns: table.Headers(), Rows: table.Rows})
		return
	}
	if table.IsEmpty() {
		fmt.Fprintln(o.w, NoData)
		return
	}
	o.Table(table.Headers(), table.Records())
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", max(len(h), 1))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// JSONLine выводит одну компактную JSON-строку (для потоков событий).
func (o *Output) JSONLine(v any) {
	json.NewEncoder(o.w).Encode(v)
}

// Success выводит сообщение в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// StatusObserver печатает сообщения сессии в stderr по мере переходов.
// Повтор того же статуса с тем же сообщением не печатается.
func (o *Output) StatusObserver() orchestrator.Observer {
	var last domain.SessionEvent
	return orchestrator.ObserverFunc(func(event domain.SessionEvent) {
		if event.Status == last.Status && event.StatusMessage == last.StatusMessage {
			return
		}
		last = event
		fmt.Fprintf(o.errW, "[%s] %s\n", event.Status, event.StatusMessage)
	})
}
