package table

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"

	"github.com/sells-group/potential-cli/internal/db"
	"github.com/sells-group/potential-cli/internal/summary"
)

// Postgres implements summary.Table over one PostgreSQL table.
type Postgres struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// NewPostgres wraps pool. closeFn, when non-nil, is called by Close.
func NewPostgres(pool db.Pool, table string, closeFn func()) *Postgres {
	return &Postgres{pool: pool, table: table, closeFn: closeFn}
}

func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func (p *Postgres) HasField(ctx context.Context, name string) (bool, error) {
	schema, table := db.SplitTable(p.table)
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 AND column_name = $3)`,
		schema, table, name,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: lookup column %s.%s", p.table, name)
	}
	return exists, nil
}

// AddTextField adds a varchar column and records the alias as its comment.
func (p *Postgres) AddTextField(ctx context.Context, field summary.TextField) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin add column")
	}

	tbl := db.SanitizeTable(p.table)
	col := pgx.Identifier{field.Name}.Sanitize()

	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s varchar(%d)", tbl, col, field.Length)); err != nil {
		_ = tx.Rollback(ctx)
		return eris.Wrapf(err, "postgres: add column %s.%s", p.table, field.Name)
	}
	if field.Alias != "" {
		if _, err := tx.Exec(ctx, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", tbl, col, db.QuoteLiteral(field.Alias))); err != nil {
			_ = tx.Rollback(ctx)
			return eris.Wrapf(err, "postgres: comment column %s.%s", p.table, field.Name)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit add column")
}

func (p *Postgres) ReadNumeric(ctx context.Context, fields ...string) ([][]float64, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s",
		db.QuoteAndJoin(fields), db.SanitizeTable(p.table)))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select %s", p.table)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		vals, err := scanFloat8s(rows, fields, len(out), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

// OpenUpdate loads the read fields with each row's ctid inside a transaction.
// Closing the cursor commits every row already written.
func (p *Postgres) OpenUpdate(ctx context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin update")
	}

	ctids, vals, err := p.loadForUpdate(ctx, tx, readFields)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	update := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE ctid = $2::tid",
		db.SanitizeTable(p.table), pgx.Identifier{writeField}.Sanitize())

	set := func(i int, text string) error {
		if _, err := tx.Exec(ctx, update, text, ctids[i]); err != nil {
			return eris.Wrapf(err, "postgres: update ctid %s", ctids[i])
		}
		return nil
	}
	done := func() error {
		return eris.Wrap(tx.Commit(ctx), "postgres: commit update")
	}
	return newRowCursor(vals, set, done), nil
}

func (p *Postgres) loadForUpdate(ctx context.Context, tx pgx.Tx, fields []string) ([]string, [][]float64, error) {
	rows, err := tx.Query(ctx, fmt.Sprintf("SELECT ctid::text, %s FROM %s FOR UPDATE",
		db.QuoteAndJoin(fields), db.SanitizeTable(p.table)))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: select %s for update", p.table)
	}
	defer rows.Close()

	var ctids []string
	var out [][]float64
	for rows.Next() {
		var ctid string
		vals, err := scanFloat8s(rows, fields, len(out), &ctid)
		if err != nil {
			return nil, nil, err
		}
		ctids = append(ctids, ctid)
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: iterate rows for update")
	}
	return ctids, out, nil
}

func scanFloat8s(rows pgx.Rows, fields []string, row int, ctid *string) ([]float64, error) {
	nums := make([]pgtype.Float8, len(fields))
	dest := make([]any, 0, len(fields)+1)
	if ctid != nil {
		dest = append(dest, ctid)
	}
	for i := range nums {
		dest = append(dest, &nums[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, eris.Wrapf(err, "postgres: scan row %d", row)
	}

	vals := make([]float64, len(fields))
	for i, n := range nums {
		if !n.Valid {
			return nil, eris.Wrapf(summary.ErrNullValue, "postgres: row %d field %s", row, fields[i])
		}
		vals[i] = n.Float64
	}
	return vals, nil
}
