package domain

// ColumnSpec — описание колонки таблицы.
type ColumnSpec struct {
	// Key — ключ значения в Row. Может повторяться.
	Key string `json:"key"`

	// DisplayName — заголовок для отображения.
	DisplayName string `json:"display_name"`

	// Index — позиция колонки в строке заголовка.
	Index int `json:"index"`
}

// Row — строка таблицы: ключ колонки → значение ячейки.
// Отсутствующий ключ означает отсутствующую ячейку (короткая строка).
type Row map[string]string

// Get возвращает значение ячейки и признак её наличия.
func (r Row) Get(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// Table — результат вычисления в табличном виде.
//
// Columns и Rows идут в порядке появления в исходном тексте.
// После построения таблица не изменяется.
type Table struct {
	Columns []ColumnSpec `json:"columns"`
	Rows    []Row        `json:"rows"`
}

// IsEmpty возвращает true, если в таблице нет колонок или строк.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0
}

// Headers возвращает заголовки колонок.
func (t *Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.DisplayName
	}
	return headers
}

// Cells возвращает значения строки в порядке колонок.
// Отсутствующие ячейки заменяются пустой строкой.
func (t *Table) Cells(row Row) []string {
	cells := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cells[i], _ = row.Get(c.Key)
	}
	return cells
}

// Records возвращает все строки в виде [][]string для вывода.
func (t *Table) Records() [][]string {
	records := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		records[i] = t.Cells(row)
	}
	return records
}
