package bankloader

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// BankLoader runs the fetch, validate, prepare and load pipeline.
type BankLoader interface {
	Run(context.Context) (*Report, error)
}

// Outcome summarizes what a run did to the destination.
type Outcome int

const (
	// OutcomeNothingWritten means the run failed before any write.
	OutcomeNothingWritten Outcome = iota

	// OutcomeWriteFailed means a load was attempted and failed or was not confirmed.
	OutcomeWriteFailed

	OutcomeLoaded
	OutcomePreviewed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingWritten:
		return "nothing_written"
	case OutcomeWriteFailed:
		return "write_failed"
	case OutcomeLoaded:
		return "loaded"
	case OutcomePreviewed:
		return "previewed"
	default:
		return "unknown"
	}
}

// Report describes a finished run.
type Report struct {
	RunID        string
	RunTimestamp time.Time
	Destination  Destination
	States       []State
	Outcome      Outcome

	// Rows is the number of prepared rows.
	Rows int

	// Preview is the rendered sample in preview mode.
	Preview string

	// Load is set after a confirmed load.
	Load *LoadReport

	Err error
}

// State returns the final state of the run.
func (r *Report) State() State {
	if len(r.States) == 0 {
		return StateStart
	}
	return r.States[len(r.States)-1]
}

// New builds a new BankLoader.
func New(opts ...Option) (BankLoader, error) {
	l := &bankloader{
		schema:    BankMarketingSchema(),
		logLevel:  zerolog.InfoLevel,
		logOutput: os.Stderr,
		now:       time.Now,
	}

	for _, o := range opts {
		if err := o.apply(l); err != nil {
			return nil, err
		}
	}

	if l.source == nil {
		return nil, xerrors.New("a source is required")
	}

	if !l.preview {
		if l.sinkFactory == nil {
			return nil, xerrors.New("a sink is required unless previewing")
		}
		if l.destination.Project == "" || l.destination.Dataset == "" {
			return nil, xerrors.New("destination project and dataset are required")
		}
	}

	if l.customLogger != nil {
		l.logger = *l.customLogger
	} else {
		var w io.Writer = l.logOutput
		if l.prettyLogging {
			w = zerolog.ConsoleWriter{Out: l.logOutput, TimeFormat: time.RFC3339}
		}
		l.logger = zerolog.New(w).Level(l.logLevel).With().Timestamp().Logger()
	}

	if l.observer == nil {
		l.observer = NewLogObserver(l.logger)
	}

	return l, nil
}

type bankloader struct {
	schema      *Schema
	source      Source
	sinkFactory SinkFactory
	destination Destination
	locker      Locker
	notifier    Notifier
	observer    Observer

	preview     bool
	previewRows int

	logger        zerolog.Logger
	logLevel      zerolog.Level
	logOutput     io.Writer
	prettyLogging bool
	customLogger  *zerolog.Logger

	now func() time.Time
}

// Run executes one pipeline pass. The returned Report is never nil.
func (l *bankloader) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	runTimestamp := l.now().UTC()

	logger := l.logger.With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)
	ctx = withRunID(ctx, runID)
	ctx = withStartedTime(ctx, runTimestamp)

	logger.Info().Str("source", l.source.Name()).Str("destination", l.destination.String()).
		Bool("preview", l.preview).Msg("loader started")

	m := newMachine(l.observer)
	r := &Report{RunID: runID, RunTimestamp: runTimestamp, Destination: l.destination}

	err := l.run(ctx, m, r)
	if err != nil {
		m.fail(ctx, err)
		r.Err = err
		if NothingWritten(err) {
			r.Outcome = OutcomeNothingWritten
		} else {
			r.Outcome = OutcomeWriteFailed
		}
	} else {
		m.advance(ctx, StateDone)
	}
	r.States = m.trail

	if l.notifier != nil {
		if nerr := l.notifier.Notify(ctx, r); nerr != nil {
			logger.Error().Err(nerr).Msg("failed to notify")
		}
	}

	logger.Info().Str("outcome", r.Outcome.String()).Dur("elapsed", l.now().Sub(runTimestamp)).
		Msg("loader finished")

	return r, err
}

func (l *bankloader) run(ctx context.Context, m *machine, r *Report) error {
	logger := zerolog.Ctx(ctx)

	if l.locker != nil && !l.preview {
		unlock, err := l.locker.Lock(ctx, l.destination)
		if err != nil {
			return xerrors.Errorf("failed to lock %s: %w", l.destination, err)
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				logger.Error().Err(err).Msg("failed to release lock")
			}
		}()
	}

	table, err := l.fetch(ctx)
	if err != nil {
		return err
	}
	m.advance(ctx, StateFetched)

	if err := Validate(l.schema, table); err != nil {
		return xerrors.Errorf("validation failed: %w", err)
	}
	m.advance(ctx, StateValidated)

	prepared := Prepare(l.schema, table, r.RunTimestamp)
	if len(prepared.Dropped) > 0 {
		for _, c := range prepared.Dropped {
			l.observer.Warn(ctx, "dropping source column "+c)
		}
	}
	l.observer.NullSummary(ctx, prepared.Len(), prepared.NullSummary())
	r.Rows = prepared.Len()
	m.advance(ctx, StatePrepared)

	if l.preview {
		r.Preview = RenderPreview(prepared.Head(l.previewRows))
		l.observer.Preview(ctx, r.Preview)
		r.Outcome = OutcomePreviewed
		m.advance(ctx, StatePreviewed)
		return nil
	}

	sink, err := l.sinkFactory(ctx)
	if err != nil {
		return &LoadJobError{Destination: l.destination, Phase: PhaseConnect, Err: err}
	}
	if c, ok := sink.(io.Closer); ok {
		defer c.Close()
	}

	lr, err := Load(ctx, sink, prepared, l.destination, l.schema)
	if err != nil {
		return err
	}
	r.Load = lr
	r.Outcome = OutcomeLoaded

	logger.Info().Uint64("rows", lr.NumRows).Str("size", formatMegaBytes(lr.MegaBytes())).
		Time("created", lr.CreatedAt).Time("modified", lr.ModifiedAt).Str("job_id", lr.JobID).
		Msg("load confirmed")

	m.advance(ctx, StateLoaded)
	return nil
}

func (l *bankloader) fetch(ctx context.Context) (*Table, error) {
	features, targets, err := l.source.Fetch(ctx)
	if err != nil {
		var fe *FetchError
		if xerrors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Source: l.source.Name(), Err: err}
	}

	table, err := Concat(features, targets)
	if err != nil {
		var fe *FetchError
		if xerrors.As(err, &fe) && fe.Source == "" {
			fe.Source = l.source.Name()
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int("rows", table.Len()).Int("columns", len(table.Columns)).Msg("fetched dataset")

	return table, nil
}
