package bankloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Destination identifies a warehouse table.
type Destination struct {
	Project string
	Dataset string
	Table   string
}

func (d Destination) String() string {
	return fmt.Sprintf("%s.%s.%s", d.Project, d.Dataset, d.Table)
}

// Sink is a warehouse accepting typed overwrite load jobs.
type Sink interface {
	// SubmitOverwriteLoad starts a job replacing the contents of dest with table.
	SubmitOverwriteLoad(ctx context.Context, table *PreparedTable, dest Destination, schema *Schema) (Job, error)

	// TableMetadata reads the current metadata of dest.
	TableMetadata(ctx context.Context, dest Destination) (*TableMetadata, error)
}

// Job is a submitted load job.
type Job interface {
	ID() string

	// Wait blocks until the job reaches a terminal state and returns its error.
	Wait(ctx context.Context) error
}

// TableMetadata is what the warehouse reports about a table.
type TableMetadata struct {
	NumRows    uint64
	NumBytes   int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// JobFailedError is returned by Job.Wait when the job reached a terminal
// state with an error, as opposed to the wait itself failing.
type JobFailedError struct {
	Err     error
	Details []string
}

func (e *JobFailedError) Error() string {
	msg := "load job failed: " + e.Err.Error()
	for _, d := range e.Details {
		msg += "; " + d
	}
	return msg
}

func (e *JobFailedError) Unwrap() error { return e.Err }

// LoadReport confirms a finished load by reading the table back.
type LoadReport struct {
	Destination Destination
	JobID       string

	// Rows is the number of prepared rows submitted.
	Rows int

	TableMetadata
}

// MegaBytes returns the table size in MiB.
func (r *LoadReport) MegaBytes() float64 {
	return float64(r.NumBytes) / (1024 * 1024)
}

// Load submits table as a single overwrite job, waits for it and confirms the
// result by re-reading the destination metadata. It never retries.
func Load(ctx context.Context, sink Sink, table *PreparedTable, dest Destination, schema *Schema) (*LoadReport, error) {
	l := log.Ctx(ctx)

	l.Info().Str("destination", dest.String()).Int("rows", table.Len()).Msg("submitting overwrite load")

	job, err := sink.SubmitOverwriteLoad(ctx, table, dest, schema)
	if err != nil {
		return nil, &LoadJobError{Destination: dest, Phase: PhaseSubmit, Err: err}
	}

	l.Debug().Str("job_id", job.ID()).Msg("waiting for load job")

	if err := job.Wait(ctx); err != nil {
		phase := PhaseWait
		var jf *JobFailedError
		if xerrors.As(err, &jf) {
			phase = PhaseJob
		}
		return nil, &LoadJobError{Destination: dest, Phase: phase, JobID: job.ID(), Err: err}
	}

	md, err := sink.TableMetadata(ctx, dest)
	if err != nil {
		return nil, &LoadJobError{
			Destination: dest,
			Phase:       PhaseVerify,
			JobID:       job.ID(),
			Err:         xerrors.Errorf("failed to read table metadata: %w", err),
		}
	}

	if md.NumRows != uint64(table.Len()) {
		return nil, &LoadJobError{
			Destination: dest,
			Phase:       PhaseVerify,
			JobID:       job.ID(),
			Err:         xerrors.Errorf("table has %d rows after load, submitted %d", md.NumRows, table.Len()),
		}
	}

	return &LoadReport{
		Destination:   dest,
		JobID:         job.ID(),
		Rows:          table.Len(),
		TableMetadata: *md,
	}, nil
}
