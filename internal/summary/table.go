package summary

import (
	"context"

	"github.com/rotisserie/eris"
)

// DefaultFieldLength is the display length of a created summary field.
const DefaultFieldLength = 2500

// DefaultFieldAlias is the alias given to a created summary field on backends
// that support aliases.
const DefaultFieldAlias = "Summary"

// ErrNullValue is returned by backends when a numeric cell is empty or NULL.
var ErrNullValue = eris.New("summary: numeric value is null")

// TextField describes the text column a summary is written into.
type TextField struct {
	Name   string
	Alias  string
	Length int
}

// DefaultTextField returns a TextField with the default alias and length.
func DefaultTextField(name string) TextField {
	return TextField{Name: name, Alias: DefaultFieldAlias, Length: DefaultFieldLength}
}

// Table is the tabular store summaries are read from and written to.
type Table interface {
	// HasField reports whether a column named name exists.
	HasField(ctx context.Context, name string) (bool, error)
	// AddTextField adds a text column. Callers check HasField first.
	AddTextField(ctx context.Context, field TextField) error
	// ReadNumeric returns, for every row, the values of fields in order.
	ReadNumeric(ctx context.Context, fields ...string) ([][]float64, error)
	// OpenUpdate opens a single update scope over every row.
	OpenUpdate(ctx context.Context, readFields []string, writeField string) (UpdateCursor, error)
}

// UpdateCursor iterates the rows of an update scope. Close must always be
// called; it persists rows already Set and releases the scope.
type UpdateCursor interface {
	Next() bool
	// Values returns the read fields of the current row.
	Values() []float64
	// Set writes text into the write field of the current row.
	Set(text string) error
	Err() error
	Close() error
}
