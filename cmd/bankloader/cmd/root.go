package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"go.nownabe.dev/bankloader"
	"go.nownabe.dev/bankloader/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		return 1
	}
	return 0
}

// NewRootCommand builds the bankloader command writing the preview to stdout
// and logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := config.NewViper()

	var (
		cfgFile string
		envFile string
	)

	c := &cobra.Command{
		Use:   "bankloader",
		Short: "Load the UCI Bank Marketing dataset into BigQuery",
		Long: `Fetch the UCI Bank Marketing dataset, validate it against the column
contract, add _row_id and _load_timestamp, and replace the destination
BigQuery table with a single WRITE_TRUNCATE load job.

Every flag can also be set with a BANKLOADER_* environment variable,
e.g. BANKLOADER_PROJECT_ID, in a .env file or in a YAML config file.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile, envFile)
			if err != nil {
				fmt.Fprintln(stderr, "Error:", err)
				return err
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(stderr, "Error:", err)
				return err
			}
			return run(c.Context(), cfg, stdout, stderr)
		},
	}
	c.SetOut(stdout)
	c.SetErr(stderr)

	f := c.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "Path to YAML configuration file")
	f.StringVar(&envFile, "env-file", ".env", "Path to .env file, ignored when missing")

	f.String("project-id", "", "Google Cloud project of the destination (required)")
	f.String("dataset", "", "BigQuery dataset of the destination (required)")
	f.String("table", bankloader.DefaultTable, "BigQuery table of the destination")
	f.String("credentials", "", "Service account key file, Application Default Credentials when empty")

	f.Bool("preview", false, "Prepare the data and print a sample without loading")
	f.Int("preview-rows", bankloader.DefaultPreviewRows, "Number of rows printed in preview mode")

	f.String("source", config.SourceUCI, "Dataset source: uci, a local file or gs://bucket/object")
	f.String("source-format", "csv", "Format of file sources (csv, xls)")
	f.String("source-encoding", "", "Encoding of file sources, e.g. shift_jis (default UTF-8)")
	f.Int("uci-dataset-id", bankloader.UCIDatasetID, "UCI repository dataset id")
	f.String("uci-base-url", bankloader.DefaultUCIBaseURL, "UCI repository API endpoint")

	f.String("lock-bucket", "", "Cloud Storage bucket holding per-destination lock objects")
	f.Duration("lock-stale-after", 0, "Take over lock objects older than this, e.g. 6h (default never)")
	f.String("slack-token", "", "Slack bot token for run notifications")
	f.String("slack-channel", "", "Slack channel for run notifications")

	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.Bool("pretty", false, "Print human friendly logs")

	f.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "dry-run" {
			name = "preview"
		}
		return pflag.NormalizedName(name)
	})

	bindFlags(v, f)

	return c
}

// bindFlags binds every flag except config and env-file to the config key
// of the same name with dashes replaced by underscores.
func bindFlags(v *viper.Viper, f *pflag.FlagSet) {
	f.VisitAll(func(fl *pflag.Flag) {
		if fl.Name == "config" || fl.Name == "env-file" {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(fl.Name, "-", "_"), fl)
	})
}

func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger := newLogger(cfg, stderr)
	ctx = logger.WithContext(ctx)

	src, err := newSource(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build source")
		return err
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
				logger.Error().Err(err).Msg("failed to build lock")
				return err
			}
			defer lock.Close()
			lock.StaleAfter = cfg.LockStaleAfter
			opts = append(opts, bankloader.WithLocker(lock))
		}
	}

	if cfg.SlackToken != "" {
		opts = append(opts, bankloader.WithNotifier(&bankloader.SlackNotifier{
			Token:    cfg.SlackToken,
			Channel:  cfg.SlackChannel,
			Username: "bankloader",
		}))
	}

	loader, err := bankloader.New(opts...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build loader")
		return err
	}

	r, err := loader.Run(ctx)
	if r.Preview != "" {
		fmt.Fprintln(stdout, r.Preview)
	}
	if err != nil {
		ev := logger.Error().Err(err).Str("destination", cfg.Destination().String())
		if bankloader.NothingWritten(err) {
			ev.Msg("run failed, nothing was written")
		} else {
			ev.Msg("run failed after a write was attempted, check the destination table")
		}
		return err
	}

	if r.Load != nil {
		fmt.Fprintf(stdout, "loaded %d rows into %s (%s)\n", r.Load.NumRows, r.Destination, r.Load.JobID)
	}

	return nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	lv, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lv = zerolog.InfoLevel
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lv).With().Timestamp().Logger()
}

func newSource(ctx context.Context, cfg *config.Config) (bankloader.Source, error) {
	if cfg.IsUCI() {
		return &bankloader.UCISource{DatasetID: cfg.UCIDatasetID, BaseURL: cfg.UCIBaseURL}, nil
	}

	parser, err := bankloader.ParserFor(cfg.SourceFormat)
	if err != nil {
		return nil, err
	}
	enc, err := bankloader.LookupEncoding(cfg.SourceEncoding)
	if err != nil {
		return nil, err
	}
	targets := []string{bankloader.TargetColumn}

	if cfg.IsStorage() {
		e, err := bankloader.ParseObjectURL(cfg.Source)
		if err != nil {
			return nil, err
		}
		s, err := bankloader.NewStorageSource(ctx, e, bankloader.CredentialOptions(cfg.Credentials)...)
		if err != nil {
			return nil, xerrors.Errorf("failed to build storage source: %w", err)
		}
		s.Parser = parser
		s.Encoding = enc
		s.TargetColumns = targets
		return s, nil
	}

	return &bankloader.FileSource{Path: cfg.Source, Parser: parser, Encoding: enc, TargetColumns: targets}, nil
}
