package summary

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result reports what CalculateSummaryField did.
type Result struct {
	RunID        string
	FieldCreated bool
	Gross        ColumnStats
	Average      ColumnStats
	RowsWritten  int
}

// CalculateSummaryField ensures field exists on t, computes the population
// standard deviation of the gross and average columns, then writes the full
// summary of every row into field.
//
// Every row is summarized with the same pair of column deviations. Rows that
// were written before a failure keep their new text.
func CalculateSummaryField(ctx context.Context, t Table, grossField, averageField string, field TextField) (*Result, error) {
	if err := validateFields(grossField, averageField, field); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New().String()}
	log := zap.L().With(
		zap.String("component", "summary.calculate"),
		zap.String("run_id", res.RunID),
		zap.String("summary_field", field.Name),
	)

	exists, err := t.HasField(ctx, field.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "summary: check field %s", field.Name)
	}
	if !exists {
		if err := t.AddTextField(ctx, field); err != nil {
			return nil, eris.Wrapf(err, "summary: add field %s", field.Name)
		}
		res.FieldCreated = true
		log.Info("created summary field", zap.Int("length", field.Length))
	}

	gross, average, err := DescribeColumns(ctx, t, grossField, averageField)
	if err != nil {
		return res, err
	}
	res.Gross, res.Average = gross, average

	log.Info("computed column deviations",
		zap.Int("rows", gross.Count),
		zap.Float64("gross_stddev", gross.StdDev),
		zap.Float64("average_stddev", average.StdDev),
	)

	cur, err := t.OpenUpdate(ctx, []string{grossField, averageField}, field.Name)
	if err != nil {
		return res, eris.Wrap(err, "summary: open update")
	}

	n, err := writeSummaries(cur, gross.StdDev, average.StdDev)
	res.RowsWritten = n
	if closeErr := cur.Close(); closeErr != nil && err == nil {
		err = eris.Wrap(closeErr, "summary: close update")
	}
	if err != nil {
		log.Error("summary update failed", zap.Int("rows_written", n), zap.Error(err))
		return res, err
	}

	log.Info("summary field calculated", zap.Int("rows_written", n))
	return res, nil
}

// DescribeColumns reads both columns and returns their statistics.
func DescribeColumns(ctx context.Context, t Table, grossField, averageField string) (ColumnStats, ColumnStats, error) {
	rows, err := t.ReadNumeric(ctx, grossField, averageField)
	if err != nil {
		return ColumnStats{}, ColumnStats{}, eris.Wrapf(err, "summary: read %s, %s", grossField, averageField)
	}

	gross, err := Describe(column(rows, 0))
	if err != nil {
		return ColumnStats{}, ColumnStats{}, eris.Wrapf(err, "summary: describe %s", grossField)
	}
	average, err := Describe(column(rows, 1))
	if err != nil {
		return ColumnStats{}, ColumnStats{}, eris.Wrapf(err, "summary: describe %s", averageField)
	}
	return gross, average, nil
}

func writeSummaries(cur UpdateCursor, grossStdDev, averageStdDev float64) (int, error) {
	n := 0
	for cur.Next() {
		vals := cur.Values()
		if len(vals) < 2 {
			return n, eris.Errorf("summary: row %d has %d values, want 2", n, len(vals))
		}
		text, err := FullSummary(vals[0], grossStdDev, vals[1], averageStdDev)
		if err != nil {
			return n, eris.Wrapf(err, "summary: row %d", n)
		}
		if err := cur.Set(text); err != nil {
			return n, eris.Wrapf(err, "summary: write row %d", n)
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return n, eris.Wrap(err, "summary: iterate rows")
	}
	return n, nil
}

func validateFields(grossField, averageField string, field TextField) error {
	switch {
	case grossField == "":
		return eris.New("summary: gross field is required")
	case averageField == "":
		return eris.New("summary: average field is required")
	case field.Name == "":
		return eris.New("summary: summary field is required")
	case field.Name == grossField || field.Name == averageField:
		return eris.Errorf("summary: summary field %q must differ from the value fields", field.Name)
	case field.Length <= 0:
		return eris.Errorf("summary: summary field length must be positive, got %d", field.Length)
	}
	return nil
}
