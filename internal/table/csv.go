package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/potential-cli/internal/summary"
)

// CSVOptions configures the CSV table.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
}

// CSV implements summary.Table over a delimited file whose first record is
// the header. Every change rewrites the file atomically.
type CSV struct {
	path string
	opts CSVOptions
}

// NewCSV returns a CSV table for path.
func NewCSV(path string, opts CSVOptions) *CSV {
	return &CSV{path: path, opts: opts}
}

func (c *CSV) Close() error { return nil }

func (c *CSV) HasField(_ context.Context, name string) (bool, error) {
	header, _, err := c.load()
	if err != nil {
		return false, err
	}
	return indexOf(header, name) >= 0, nil
}

// AddTextField appends a column with empty cells. CSV has no field length or
// alias, so only the name is used.
func (c *CSV) AddTextField(_ context.Context, field summary.TextField) error {
	header, records, err := c.load()
	if err != nil {
		return err
	}
	header = append(header, field.Name)
	for i := range records {
		records[i] = pad(records[i], len(header))
	}
	return c.save(header, records)
}

func (c *CSV) ReadNumeric(_ context.Context, fields ...string) ([][]float64, error) {
	header, records, err := c.load()
	if err != nil {
		return nil, err
	}
	return c.numeric(header, records, fields)
}

func (c *CSV) numeric(header []string, records [][]string, fields []string) ([][]float64, error) {
	idx, err := indexesOf(header, fields)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: %s", c.path)
	}
	out := make([][]float64, 0, len(records))
	for r, rec := range records {
		vals, err := numericRow(rec, idx, fields, r)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: %s", c.path)
		}
		out = append(out, vals)
	}
	return out, nil
}

// OpenUpdate works on an in-memory copy of the file; Close writes it back.
func (c *CSV) OpenUpdate(_ context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	header, records, err := c.load()
	if err != nil {
		return nil, err
	}
	w := indexOf(header, writeField)
	if w < 0 {
		return nil, eris.Errorf("csv: field %q not found in %s", writeField, c.path)
	}
	vals, err := c.numeric(header, records, readFields)
	if err != nil {
		return nil, err
	}

	set := func(i int, text string) error {
		records[i] = pad(records[i], len(header))
		records[i][w] = text
		return nil
	}
	done := func() error { return c.save(header, records) }
	return newRowCursor(vals, set, done), nil
}

func (c *CSV) load() ([]string, [][]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "csv: read %s", c.path)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	if c.opts.Delimiter != 0 {
		reader.Comma = c.opts.Delimiter
	}
	reader.LazyQuotes = c.opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "csv: parse %s", c.path)
	}
	if len(all) == 0 {
		return nil, nil, eris.Errorf("csv: %s has no header", c.path)
	}
	header := all[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	return header, all[1:], nil
}

func (c *CSV) save(header []string, records [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if c.opts.Delimiter != 0 {
		writer.Comma = c.opts.Delimiter
	}
	if err := writer.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	if err := writer.WriteAll(records); err != nil {
		return eris.Wrap(err, "csv: write records")
	}
	return writeFileAtomic(c.path, buf.Bytes())
}

func pad(rec []string, n int) []string {
	for len(rec) < n {
		rec = append(rec, "")
	}
	return rec
}

// writeFileAtomic writes data to a sibling temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.New().String()[:8])
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return eris.Wrapf(err, "table: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "table: replace %s", path)
	}
	return nil
}
