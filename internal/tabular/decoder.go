package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/shaiso/Tabula/internal/domain"
)

// Separator — разделитель полей.
const Separator = ","

// Decode разбирает текст в таблицу.
//
// Первая непустая строка — заголовок, остальные — данные.
// Пустые (после TrimSpace) строки пропускаются, поэтому CRLF и
// завершающий перевод строки не влияют на результат.
//
// Повторяющиеся заголовки дают отдельные ColumnSpec с одинаковым Key.
// Значение под общим ключом определяет самая правая колонка с этим ключом:
// если в короткой строке её нет, ячейка отсутствует, даже когда левая
// колонка с тем же ключом заполнена.
func Decode(raw string) domain.Table {
	lines := nonBlankLines(raw)
	if len(lines) == 0 {
		return domain.Table{
			Columns: []domain.ColumnSpec{},
			Rows:    []domain.Row{},
		}
	}

	header := strings.Split(lines[0], Separator)
	columns := make([]domain.ColumnSpec, len(header))
	for i, field := range header {
		name := strings.TrimSpace(field)
		columns[i] = domain.ColumnSpec{Key: name, DisplayName: name, Index: i}
	}

	rows := make([]domain.Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, decodeRow(columns, line))
	}

	return domain.Table{Columns: columns, Rows: rows}
}

// DecodeReader читает r до конца и разбирает содержимое.
// Ошибка возможна только при чтении.
func DecodeReader(r io.Reader) (domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read tabular text: %w", err)
	}
	return Decode(string(data)), nil
}

// decodeRow строит Row по колонкам заголовка.
func decodeRow(columns []domain.ColumnSpec, line string) domain.Row {
	fields := strings.Split(line, Separator)
	row := make(domain.Row, len(columns))
	for i, col := range columns {
		if i >= len(fields) {
			delete(row, col.Key)
			continue
		}
		row[col.Key] = strings.TrimSpace(fields[i])
	}
	return row
}

func nonBlankLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// DecodeStats — сводка о полноте строк.
type DecodeStats struct {
	Columns       int
	Rows          int
	CompleteRows  int
	ShortRows     int
	DuplicateKeys []string
}

// Degraded возвращает true, если в таблице есть неполные строки
// или повторяющиеся ключи колонок.
func (s DecodeStats) Degraded() bool {
	return s.ShortRows > 0 || len(s.DuplicateKeys) > 0
}

// Stats считает неполные строки и повторяющиеся ключи.
// Это только диагностика: таблица остаётся валидной.
func Stats(t domain.Table) DecodeStats {
	keys := make(map[string]int, len(t.Columns))
	var dups []string
	for _, c := range t.Columns {
		keys[c.Key]++
		if keys[c.Key] == 2 {
			dups = append(dups, c.Key)
		}
	}

	stats := DecodeStats{
		Columns:       len(t.Columns),
		Rows:          len(t.Rows),
		DuplicateKeys: dups,
	}
	for _, row := range t.Rows {
		if len(row) < len(keys) {
			stats.ShortRows++
		} else {
			stats.CompleteRows++
		}
	}
	return stats
}
