package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/potential-cli/internal/summary"
)

// SQLite implements summary.Table over one table of a SQLite database,
// including GeoPackage feature tables.
type SQLite struct {
	db    *sql.DB
	table string
}

// NewSQLite opens the database at dsn. The file's journal mode is left as
// the owner set it; only per-connection settings are applied, on the single
// connection the table uses.
func NewSQLite(dsn, table string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, table: table}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) HasField(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE lower(name) = lower(?)`,
		s.table, name,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: table info %s", s.table)
	}
	return n > 0, nil
}

// AddTextField adds a VARCHAR column. SQLite has no column comments, so the
// alias is not stored.
func (s *SQLite) AddTextField(ctx context.Context, field summary.TextField) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR(%d)",
		quoteIdent(s.table), quoteIdent(field.Name), field.Length)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "sqlite: add column %s.%s", s.table, field.Name)
	}
	return nil
}

func (s *SQLite) ReadNumeric(ctx context.Context, fields ...string) ([][]float64, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		quoteIdents(fields), quoteIdent(s.table)))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select %s", s.table)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		vals, err := scanNullFloats(rows, fields, len(out), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

// OpenUpdate loads the read fields with their rowids inside a transaction.
// Closing the cursor commits every row already written.
func (s *SQLite) OpenUpdate(ctx context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin update")
	}

	ids, vals, err := s.loadForUpdate(ctx, tx, readFields)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("UPDATE %s SET %s = ? WHERE rowid = ?",
		quoteIdent(s.table), quoteIdent(writeField)))
	if err != nil {
		_ = tx.Rollback()
		return nil, eris.Wrapf(err, "sqlite: prepare update %s", writeField)
	}

	set := func(i int, text string) error {
		if _, err := stmt.ExecContext(ctx, text, ids[i]); err != nil {
			return eris.Wrapf(err, "sqlite: update rowid %d", ids[i])
		}
		return nil
	}
	done := func() error {
		_ = stmt.Close()
		return eris.Wrap(tx.Commit(), "sqlite: commit update")
	}
	return newRowCursor(vals, set, done), nil
}

func (s *SQLite) loadForUpdate(ctx context.Context, tx *sql.Tx, fields []string) ([]int64, [][]float64, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT rowid, %s FROM %s ORDER BY rowid",
		quoteIdents(fields), quoteIdent(s.table)))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: select %s for update", s.table)
	}
	defer rows.Close()

	var ids []int64
	var out [][]float64
	for rows.Next() {
		var id int64
		vals, err := scanNullFloats(rows, fields, len(out), &id)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: iterate rows for update")
	}
	return ids, out, nil
}

// scanNullFloats scans one row of nullable floats, optionally preceded by a
// rowid.
func scanNullFloats(rows *sql.Rows, fields []string, row int, id *int64) ([]float64, error) {
	nulls := make([]sql.NullFloat64, len(fields))
	dest := make([]any, 0, len(fields)+1)
	if id != nil {
		dest = append(dest, id)
	}
	for i := range nulls {
		dest = append(dest, &nulls[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan row %d", row)
	}

	vals := make([]float64, len(fields))
	for i, n := range nulls {
		if !n.Valid {
			return nil, eris.Wrapf(summary.ErrNullValue, "sqlite: row %d field %s", row, fields[i])
		}
		vals[i] = n.Float64
	}
	return vals, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
