package bankloader

import (
	"context"

	"github.com/rs/zerolog"
)

// Observer receives progress and warnings of a run.
type Observer interface {
	Transition(ctx context.Context, from, to State, err error)
	Warn(ctx context.Context, msg string)
	NullSummary(ctx context.Context, rows int, summary []NullCount)
	Preview(ctx context.Context, preview string)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Transition(context.Context, State, State, error) {}
func (NopObserver) Warn(context.Context, string)                    {}
func (NopObserver) NullSummary(context.Context, int, []NullCount)   {}
func (NopObserver) Preview(context.Context, string)                 {}

type logObserver struct {
	logger zerolog.Logger
}

// NewLogObserver returns an Observer writing to l. Entries carry the run id.
func NewLogObserver(l zerolog.Logger) Observer {
	return &logObserver{logger: l}
}

func (o *logObserver) log(ctx context.Context) *zerolog.Logger {
	l := o.logger
	if id, ok := runIDFrom(ctx); ok {
		l = l.With().Str("run_id", id).Logger()
	}
	return &l
}

func (o *logObserver) Transition(ctx context.Context, from, to State, err error) {
	l := o.log(ctx)
	if to == StateFailed {
		ev := l.Error().Err(err).Str("from", from.String())
		if NothingWritten(err) {
			ev = ev.Bool("nothing_written", true)
		} else {
			ev = ev.Bool("write_attempted", true)
		}
		ev.Msg("run failed")
		return
	}
	l.Info().Str("from", from.String()).Str("to", to.String()).Msg("state changed")
}

func (o *logObserver) Warn(ctx context.Context, msg string) {
	o.log(ctx).Warn().Msg(msg)
}

func (o *logObserver) NullSummary(ctx context.Context, rows int, summary []NullCount) {
	l := o.log(ctx)
	if len(summary) == 0 {
		l.Info().Int("rows", rows).Msg("no null values")
		return
	}
	l.Warn().Int("columns", len(summary)).Msg("columns with null values")
	for _, n := range summary {
		l.Warn().Str("column", n.Column).Int("nulls", n.Nulls).
			Str("percent", formatPercent(n.Percent())).Msg("null values")
	}
}

func (o *logObserver) Preview(ctx context.Context, preview string) {
	o.log(ctx).Info().Msg("preview of prepared data\n" + preview)
}
