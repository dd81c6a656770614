package table

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/potential-cli/internal/summary"
)

// rowCursor walks a materialized read set. set writes one row, done persists
// and releases the scope.
type rowCursor struct {
	rows [][]float64
	pos  int
	set  func(i int, text string) error
	done func() error

	closed bool
}

func newRowCursor(rows [][]float64, set func(int, string) error, done func() error) *rowCursor {
	return &rowCursor{rows: rows, pos: -1, set: set, done: done}
}

func (c *rowCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *rowCursor) Values() []float64 {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

func (c *rowCursor) Set(text string) error {
	if c.closed {
		return eris.New("table: cursor is closed")
	}
	if c.pos < 0 {
		return eris.New("table: Set called before Next")
	}
	return c.set(c.pos, text)
}

func (c *rowCursor) Err() error { return nil }

func (c *rowCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.done == nil {
		return nil
	}
	return c.done()
}

// parseNumber parses a numeric cell. Blank cells wrap summary.ErrNullValue.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if s == "" {
		return 0, summary.ErrNullValue
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "table: parse number %q", s)
	}
	return v, nil
}

// indexOf returns the index of name in names, case-insensitively, or -1.
func indexOf(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return i
		}
	}
	return -1
}

// indexesOf resolves every field or reports the first missing one.
func indexesOf(names []string, fields []string) ([]int, error) {
	idx := make([]int, len(fields))
	for i, f := range fields {
		idx[i] = indexOf(names, f)
		if idx[i] < 0 {
			return nil, eris.Errorf("table: field %q not found", f)
		}
	}
	return idx, nil
}

// numericRow parses cells at idx. row is 0-based for error messages.
func numericRow(cells []string, idx []int, fields []string, row int) ([]float64, error) {
	out := make([]float64, len(idx))
	for i, j := range idx {
		var raw string
		if j < len(cells) {
			raw = cells[j]
		}
		v, err := parseNumber(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "table: row %d field %s", row, fields[i])
		}
		out[i] = v
	}
	return out, nil
}
