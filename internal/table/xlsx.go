package table

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/potential-cli/internal/summary"
)

// XLSX implements summary.Table over one worksheet whose first row holds the
// field names. Blank rows are skipped.
type XLSX struct {
	path  string
	sheet string // empty selects the first sheet
}

// NewXLSX returns an XLSX table for the named sheet of path.
func NewXLSX(path, sheet string) *XLSX {
	return &XLSX{path: path, sheet: sheet}
}

func (x *XLSX) Close() error { return nil }

func (x *XLSX) HasField(_ context.Context, name string) (bool, error) {
	_, sheet, err := x.open()
	if err != nil {
		return false, err
	}
	return indexOf(headerOf(sheet), name) >= 0, nil
}

// AddTextField appends a header cell. Worksheets have no column length or
// alias, so only the name is used.
func (x *XLSX) AddTextField(_ context.Context, field summary.TextField) error {
	f, sheet, err := x.open()
	if err != nil {
		return err
	}
	if len(sheet.Rows) == 0 {
		sheet.AddRow()
	}
	header := sheet.Rows[0]
	cell := cellAt(header, len(headerOf(sheet)))
	cell.SetString(field.Name)

	if err := f.Save(x.path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", x.path)
	}
	return nil
}

func (x *XLSX) ReadNumeric(_ context.Context, fields ...string) ([][]float64, error) {
	_, sheet, err := x.open()
	if err != nil {
		return nil, err
	}
	vals, _, err := x.numeric(sheet, fields)
	return vals, err
}

// OpenUpdate works on the opened workbook; Close saves it.
func (x *XLSX) OpenUpdate(_ context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	f, sheet, err := x.open()
	if err != nil {
		return nil, err
	}
	w := indexOf(headerOf(sheet), writeField)
	if w < 0 {
		return nil, eris.Errorf("xlsx: field %q not found in %s", writeField, x.path)
	}
	vals, dataRows, err := x.numeric(sheet, readFields)
	if err != nil {
		return nil, err
	}

	set := func(i int, text string) error {
		cellAt(dataRows[i], w).SetString(text)
		return nil
	}
	done := func() error {
		return eris.Wrapf(f.Save(x.path), "xlsx: save %s", x.path)
	}
	return newRowCursor(vals, set, done), nil
}

// numeric parses fields from every non-blank data row and returns those rows.
func (x *XLSX) numeric(sheet *xlsx.Sheet, fields []string) ([][]float64, []*xlsx.Row, error) {
	idx, err := indexesOf(headerOf(sheet), fields)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "xlsx: %s", x.path)
	}

	var out [][]float64
	var rows []*xlsx.Row
	for _, row := range dataRows(sheet) {
		vals, err := numericRow(rowToStrings(row), idx, fields, len(out))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "xlsx: %s", x.path)
		}
		out = append(out, vals)
		rows = append(rows, row)
	}
	return out, rows, nil
}

func (x *XLSX) open() (*xlsx.File, *xlsx.Sheet, error) {
	f, err := xlsx.OpenFile(x.path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "xlsx: open file %s", x.path)
	}

	if x.sheet != "" {
		sheet, ok := f.Sheet[x.sheet]
		if !ok {
			return nil, nil, eris.Errorf("xlsx: sheet %q not found", x.sheet)
		}
		return f, sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("xlsx: %s has no sheets", x.path)
	}
	return f, f.Sheets[0], nil
}

func headerOf(sheet *xlsx.Sheet) []string {
	if len(sheet.Rows) == 0 {
		return nil
	}
	cells := rowToStrings(sheet.Rows[0])
	// Trailing blank header cells are padding, not fields.
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func dataRows(sheet *xlsx.Sheet) []*xlsx.Row {
	var rows []*xlsx.Row
	for i, row := range sheet.Rows {
		if i == 0 || row == nil || isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlank(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// cellAt returns the cell at column i, extending the row as needed.
func cellAt(row *xlsx.Row, i int) *xlsx.Cell {
	for len(row.Cells) <= i {
		row.AddCell()
	}
	return row.Cells[i]
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.Value
	}
	return cells
}
