package bankloader

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Option configures BankLoader.
type Option interface {
	apply(*bankloader) error
}

type optionFunc func(*bankloader) error

func (f optionFunc) apply(l *bankloader) error {
	return f(l)
}

// SinkFactory connects to the warehouse. It is called only when a run
// reaches the load stage.
type SinkFactory func(context.Context) (Sink, error)

// WithPrettyLogging configures BankLoader to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(l *bankloader) error {
		l.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the log level by name: debug, info, warn, error.
func WithLogLevel(level string) Option {
	return optionFunc(func(l *bankloader) error {
		lv, err := zerolog.ParseLevel(level)
		if err != nil {
			return xerrors.Errorf("invalid log level %q: %w", level, err)
		}
		l.logLevel = lv
		return nil
	})
}

// WithLogOutput sets where logs are written. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return optionFunc(func(l *bankloader) error {
		l.logOutput = w
		return nil
	})
}

// WithLogger uses l instead of building a logger from the logging options.
func WithLogger(lg zerolog.Logger) Option {
	return optionFunc(func(l *bankloader) error {
		l.customLogger = &lg
		return nil
	})
}

// WithObserver replaces the default log observer.
func WithObserver(o Observer) Option {
	return optionFunc(func(l *bankloader) error {
		l.observer = o
		return nil
	})
}

// WithNotifier notifies the result of every run.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(l *bankloader) error {
		l.notifier = n
		return nil
	})
}

// WithSource sets the dataset source. Required.
func WithSource(s Source) Option {
	return optionFunc(func(l *bankloader) error {
		l.source = s
		return nil
	})
}

// WithSink uses an already connected warehouse sink.
func WithSink(s Sink) Option {
	return optionFunc(func(l *bankloader) error {
		l.sinkFactory = func(context.Context) (Sink, error) { return s, nil }
		return nil
	})
}

// WithSinkFactory connects to the warehouse lazily.
func WithSinkFactory(f SinkFactory) Option {
	return optionFunc(func(l *bankloader) error {
		l.sinkFactory = f
		return nil
	})
}

// WithDestination sets the destination table. Required unless previewing.
func WithDestination(d Destination) Option {
	return optionFunc(func(l *bankloader) error {
		if d.Table == "" {
			d.Table = DefaultTable
		}
		l.destination = d
		return nil
	})
}

// WithSchema replaces the Bank Marketing contract.
func WithSchema(s *Schema) Option {
	return optionFunc(func(l *bankloader) error {
		l.schema = s
		return nil
	})
}

// WithPreview stops runs after preparation and renders the first rows
// instead of loading. A non-positive rows shows DefaultPreviewRows.
func WithPreview(rows int) Option {
	return optionFunc(func(l *bankloader) error {
		if rows <= 0 {
			rows = DefaultPreviewRows
		}
		l.preview = true
		l.previewRows = rows
		return nil
	})
}

// WithLocker guards the destination against concurrent runs.
func WithLocker(lk Locker) Option {
	return optionFunc(func(l *bankloader) error {
		l.locker = lk
		return nil
	})
}

// WithClock sets the source of run timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(l *bankloader) error {
		l.now = now
		return nil
	})
}
