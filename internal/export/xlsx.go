package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/shaiso/Tabula/internal/domain"
)

// DefaultSheet — имя листа с результатом.
const DefaultSheet = "Result"

// Options — настройки экспорта.
type Options struct {
	// Sheet — имя листа (default: Result).
	Sheet string

	// ColumnWidth — ширина колонок; 0 оставляет ширину по умолчанию.
	ColumnWidth float64
}

func (o Options) sheet() string {
	if o.Sheet == "" {
		return DefaultSheet
	}
	return o.Sheet
}

// WriteXLSX пишет таблицу в книгу: первая строка заголовки (жирным,
// закреплена), далее строки в порядке результата. Отсутствующие
// ячейки остаются пустыми.
func WriteXLSX(w io.Writer, table domain.Table, opts Options) error {
	f, err := build(table, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// SaveXLSX сохраняет таблицу в файл path.
func SaveXLSX(path string, table domain.Table, opts Options) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save xlsx %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("save xlsx %s: %w", path, cerr)
		}
	}()

	return WriteXLSX(out, table, opts)
}

func build(table domain.Table, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := opts.sheet()

	// В новой книге единственный лист Sheet1
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if len(table.Columns) == 0 {
		return f, nil
	}

	headers := table.Headers()
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, cells := range table.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleHeader(f, sheet, len(headers), opts.ColumnWidth); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func styleHeader(f *excelize.File, sheet string, columns int, width float64) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("new style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if width > 0 {
		lastCol, err := excelize.ColumnNumberToName(columns)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", lastCol, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}
