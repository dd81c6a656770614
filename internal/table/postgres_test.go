package table

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/potential-cli/internal/summary"
)

const (
	pgHasFieldSQL = "SELECT EXISTS (SELECT 1 FROM information_schema.columns"
	pgReadSQL     = `SELECT "gross", "per_capita" FROM "geo"."stores"`
	pgLoadSQL     = `SELECT ctid::text, "gross", "per_capita" FROM "geo"."stores" FOR UPDATE`
	pgUpdateSQL   = `UPDATE "geo"."stores" SET "summary" = $1 WHERE ctid = $2::tid`
)

func newMockPostgres(t *testing.T) (pgxmock.PgxPoolIface, *Postgres) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgres(mock, "geo.stores", nil)
}

func TestPostgres_HasField(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgHasFieldSQL)).
		WithArgs("geo", "stores", "summary").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := p.HasField(context.Background(), "summary")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddTextField(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "geo"."stores" ADD COLUMN "summary" varchar(2500)`)).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectExec(regexp.QuoteMeta(`COMMENT ON COLUMN "geo"."stores"."summary" IS 'Summary'`)).
		WillReturnResult(pgxmock.NewResult("COMMENT", 0))
	mock.ExpectCommit()

	require.NoError(t, p.AddTextField(context.Background(), summary.DefaultTextField("summary")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddTextField_NoAlias(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ADD COLUMN "summary" varchar(80)`)).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectCommit()

	require.NoError(t, p.AddTextField(context.Background(), summary.TextField{Name: "summary", Length: 80}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddTextField_Error(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE").WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	err := p.AddTextField(context.Background(), summary.DefaultTextField("summary"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add column geo.stores.summary")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadNumeric(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgReadSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"gross", "per_capita"}).
			AddRow(1.0, 0.5).
			AddRow(2.0, 1.0))

	got, err := p.ReadNumeric(context.Background(), "gross", "per_capita")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0.5}, {2, 1}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadNumeric_Null(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgReadSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"gross", "per_capita"}).
			AddRow(1.0, nil))

	_, err := p.ReadNumeric(context.Background(), "gross", "per_capita")
	require.Error(t, err)
	assert.True(t, errors.Is(err, summary.ErrNullValue))
}

func TestPostgres_CalculateSummaryField(t *testing.T) {
	mock, p := newMockPostgres(t)
	want := expectedSummaries(t, sampleRows)

	mock.ExpectQuery(regexp.QuoteMeta(pgHasFieldSQL)).
		WithArgs("geo", "stores", "summary").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	read := pgxmock.NewRows([]string{"gross", "per_capita"})
	load := pgxmock.NewRows([]string{"ctid", "gross", "per_capita"})
	for i, r := range sampleRows {
		read.AddRow(r[0], r[1])
		load.AddRow(fmt.Sprintf("(0,%d)", i+1), r[0], r[1])
	}
	mock.ExpectQuery(regexp.QuoteMeta(pgReadSQL)).WillReturnRows(read)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(pgLoadSQL)).WillReturnRows(load)
	for i := range sampleRows {
		mock.ExpectExec(regexp.QuoteMeta(pgUpdateSQL)).
			WithArgs(want[i], fmt.Sprintf("(0,%d)", i+1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}
	mock.ExpectCommit()

	res, err := summary.CalculateSummaryField(context.Background(), p, "gross", "per_capita", summary.DefaultTextField("summary"))
	require.NoError(t, err)
	assert.False(t, res.FieldCreated)
	assert.Equal(t, 4, res.RowsWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PartialUpdateCommitted(t *testing.T) {
	mock, p := newMockPostgres(t)
	want := expectedSummaries(t, sampleRows)

	load := pgxmock.NewRows([]string{"ctid", "gross", "per_capita"})
	for i, r := range sampleRows {
		load.AddRow(fmt.Sprintf("(0,%d)", i+1), r[0], r[1])
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(pgLoadSQL)).WillReturnRows(load)
	mock.ExpectExec(regexp.QuoteMeta(pgUpdateSQL)).
		WithArgs(want[0], "(0,1)").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(pgUpdateSQL)).
		WithArgs(want[1], "(0,2)").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectCommit()

	cur, err := p.OpenUpdate(context.Background(), []string{"gross", "per_capita"}, "summary")
	require.NoError(t, err)

	require.True(t, cur.Next())
	require.NoError(t, cur.Set(want[0]))
	require.True(t, cur.Next())
	assert.Error(t, cur.Set(want[1]))
	require.NoError(t, cur.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OpenUpdate_LoadError(t *testing.T) {
	mock, p := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(pgLoadSQL)).WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	_, err := p.OpenUpdate(context.Background(), []string{"gross", "per_capita"}, "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "for update")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CloseCallsCloseFn(t *testing.T) {
	called := false
	p := NewPostgres(nil, "stores", func() { called = true })
	require.NoError(t, p.Close())
	assert.True(t, called)
}
