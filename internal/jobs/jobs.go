// Package jobs runs summary calculations for a list of tables read from a
// YAML job file.
package jobs

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/potential-cli/internal/summary"
	"github.com/sells-group/potential-cli/internal/table"
)

// Job is one summary calculation.
type Job struct {
	Table        table.Source `yaml:"table"`
	GrossField   string       `yaml:"gross_field"`
	AverageField string       `yaml:"average_field"`
	SummaryField string       `yaml:"summary_field,omitempty"`
	Alias        string       `yaml:"alias,omitempty"`
	Length       int          `yaml:"length,omitempty"`
}

// TextField returns the summary field the job writes.
func (j Job) TextField() summary.TextField {
	return summary.TextField{Name: j.SummaryField, Alias: j.Alias, Length: j.Length}
}

// Outcome is the result of one job.
type Outcome struct {
	Job    Job
	Result *summary.Result
	Err    error
}

// OpenFunc opens the table of a job.
type OpenFunc func(ctx context.Context, src table.Source) (table.Handle, error)

// LoadFile reads a job file. Unset summary field settings take the values of
// defaults. Two jobs may not target the same table.
func LoadFile(path string, defaults summary.TextField) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: read %s", path)
	}
	return Parse(data, defaults)
}

// Parse decodes and validates job file contents.
func Parse(data []byte, defaults summary.TextField) ([]Job, error) {
	var file struct {
		Jobs []Job `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "jobs: parse")
	}
	if len(file.Jobs) == 0 {
		return nil, eris.New("jobs: no jobs defined")
	}

	seen := make(map[string]int, len(file.Jobs))
	for i := range file.Jobs {
		j := &file.Jobs[i]
		if j.SummaryField == "" {
			j.SummaryField = defaults.Name
		}
		if j.Alias == "" {
			j.Alias = defaults.Alias
		}
		if j.Length == 0 {
			j.Length = defaults.Length
		}

		if j.Table.Path == "" && j.Table.DatabaseURL == "" {
			return nil, eris.Errorf("jobs: job %d: table.path or table.database_url is required", i)
		}
		if j.GrossField == "" || j.AverageField == "" {
			return nil, eris.Errorf("jobs: job %d: gross_field and average_field are required", i)
		}
		if _, err := table.DetectDriver(j.Table); err != nil {
			return nil, eris.Wrapf(err, "jobs: job %d", i)
		}

		key := j.Table.Key()
		if prev, ok := seen[key]; ok {
			return nil, eris.Errorf("jobs: jobs %d and %d target the same table", prev, i)
		}
		seen[key] = i
	}
	return file.Jobs, nil
}

// Run executes jobs with at most concurrency in flight. A failing job does
// not stop the others; its error is reported in its Outcome.
func Run(ctx context.Context, jobs []Job, concurrency int, open OpenFunc) ([]Outcome, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing jobs",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(
				zap.Int("job", i),
				zap.String("driver", job.Table.Driver),
				zap.String("path", job.Table.Path),
				zap.String("name", job.Table.Name),
			)

			res, err := runOne(gctx, job, open)
			outcomes[i] = Outcome{Job: job, Result: res, Err: err}
			if err != nil {
				failed.Add(1)
				log.Error("summary job failed", zap.Error(err))
				return nil // don't abort the batch on individual failure
			}

			succeeded.Add(1)
			log.Info("summary job complete", zap.Int("rows_written", res.RowsWritten))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, eris.Wrap(err, "jobs: run")
	}

	zap.L().Info("jobs complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes, nil
}

func runOne(ctx context.Context, job Job, open OpenFunc) (*summary.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "jobs: context cancelled")
	}

	h, err := open(ctx, job.Table)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: open table")
	}
	defer func() { _ = h.Close() }()

	return summary.CalculateSummaryField(ctx, h, job.GrossField, job.AverageField, job.TextField())
}

// Failed counts outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
