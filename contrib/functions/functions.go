// Package functions provides a Cloud Functions entrypoint loading Bank
// Marketing files dropped into a Cloud Storage bucket.
//
// Deploy BankLoad with a google.storage.object.finalize trigger. The
// destination and options are read from BANKLOADER_* environment variables;
// the source is always the object of the triggering event.
package functions

import (
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/functions/metadata"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"go.nownabe.dev/bankloader"
	"go.nownabe.dev/bankloader/internal/config"
)

const finalizeEventType = "google.storage.object.finalize"

// newSource is replaced in tests.
var newSource = func(ctx context.Context, e bankloader.Event, cfg *config.Config) (bankloader.Source, error) {
	parser, err := bankloader.ParserFor(cfg.SourceFormat)
	if err != nil {
		return nil, err
	}
	enc, err := bankloader.LookupEncoding(cfg.SourceEncoding)
	if err != nil {
		return nil, err
	}

	s, err := bankloader.NewStorageSource(ctx, e, bankloader.CredentialOptions(cfg.Credentials)...)
	if err != nil {
		return nil, err
	}
	s.Parser = parser
	s.Encoding = enc
	return s, nil
}

// BankLoad is the entrypoint for Cloud Functions.
func BankLoad(ctx context.Context, e bankloader.Event) error {
	m, err := metadata.FromContext(ctx)
	if err != nil {
		return xerrors.Errorf("failed to read event metadata: %w", err)
	}

	cfg, err := config.LoadFromViper(config.NewViper())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg).With().Str("event_id", m.EventID).Str("object", e.FullPath()).Logger()

	if m.EventType != "" && m.EventType != finalizeEventType {
		logger.Info().Str("event_type", m.EventType).Msg("ignoring event")
		return nil
	}

	ctx = logger.WithContext(ctx)

	src, err := newSource(ctx, e, cfg)
	if err != nil {
		return xerrors.Errorf("failed to build source for %s: %w", e.FullPath(), err)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	opts := []bankloader.Option{
		bankloader.WithLogger(logger),
		bankloader.WithSource(src),
		bankloader.WithDestination(cfg.Destination()),
	}
	if cfg.Preview {
		opts = append(opts, bankloader.WithPreview(cfg.PreviewRows))
	} else {
		opts = append(opts, bankloader.WithSinkFactory(func(ctx context.Context) (bankloader.Sink, error) {
			return bankloader.NewBigQuerySink(ctx, cfg.Project, cfg.Credentials)
		}))
		if cfg.LockBucket != "" {
			lock, err := bankloader.NewStorageLock(ctx, cfg.LockBucket, bankloader.CredentialOptions(cfg.Credentials)...)
			if err != nil {
				return err
			}
			defer lock.Close()
			lock.StaleAfter = cfg.LockStaleAfter
			opts = append(opts, bankloader.WithLocker(lock))
		}
	}
	if cfg.SlackToken != "" {
		opts = append(opts, bankloader.WithNotifier(&bankloader.SlackNotifier{
			Token:   cfg.SlackToken,
			Channel: cfg.SlackChannel,
		}))
	}

	loader, err := bankloader.New(opts...)
	if err != nil {
		return err
	}

	_, err = loader.Run(ctx)
	return err
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lv, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lv = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lv).With().Timestamp().Logger()
}
