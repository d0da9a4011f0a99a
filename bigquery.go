package bankloader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// BigQuerySink loads prepared tables with BigQuery load jobs.
type BigQuerySink struct {
	client *bigquery.Client
}

// NewBigQuerySink connects to BigQuery in project. When credentialsFile is
// non-empty the service account key in that file is used, otherwise
// Application Default Credentials.
func NewBigQuerySink(ctx context.Context, project, credentialsFile string, opts ...option.ClientOption) (*BigQuerySink, error) {
	l := log.Ctx(ctx)

	if credentialsFile != "" {
		l.Debug().Str("credentials", credentialsFile).Msg("using service account key")
	} else {
		l.Debug().Msg("using application default credentials")
	}
	opts = append(opts, CredentialOptions(credentialsFile)...)

	c, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", project, err)
	}

	return &BigQuerySink{client: c}, nil
}

// CredentialOptions returns client options for a service account key file
// with the cloud-platform scope. An empty path means Application Default
// Credentials and yields no options.
func CredentialOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile), option.WithScopes(cloudPlatformScope)}
}

// Close closes the underlying client.
func (s *BigQuerySink) Close() error {
	return s.client.Close()
}

func (s *BigQuerySink) table(dest Destination) *bigquery.Table {
	return s.client.DatasetInProject(dest.Project, dest.Dataset).Table(dest.Table)
}

// SubmitOverwriteLoad starts a WRITE_TRUNCATE load of table into dest.
func (s *BigQuerySink) SubmitOverwriteLoad(
	ctx context.Context, table *PreparedTable, dest Destination, schema *Schema,
) (Job, error) {
	l := log.Ctx(ctx)

	buf := &bytes.Buffer{}
	if err := EncodeNDJSON(buf, table); err != nil {
		return nil, xerrors.Errorf("failed to encode rows: %w", err)
	}
	l.Debug().Int("bytes", buf.Len()).Msg("encoded rows as newline-delimited json")

	rs := bigquery.NewReaderSource(buf)
	rs.SourceFormat = bigquery.JSON
	rs.Schema = schema.BigQuery()

	loader := s.table(dest).LoaderFrom(rs)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.Labels = map[string]string{"app": "bankloader"}

	if id, ok := runIDFrom(ctx); ok {
		loader.JobID = "bankloader_" + id
		loader.Labels["run_id"] = id
	} else {
		loader.AddJobIDSuffix = true
	}

	job, err := loader.Run(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to run bigquery load job")
		return nil, xerrors.Errorf("failed to run load job: %w", err)
	}

	return &bigQueryJob{job: job}, nil
}

// TableMetadata reads row count, size and timestamps of dest.
func (s *BigQuerySink) TableMetadata(ctx context.Context, dest Destination) (*TableMetadata, error) {
	md, err := s.table(dest).Metadata(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to get metadata of %s: %w", dest, err)
	}

	return &TableMetadata{
		NumRows:    md.NumRows,
		NumBytes:   md.NumBytes,
		CreatedAt:  md.CreationTime,
		ModifiedAt: md.LastModifiedTime,
	}, nil
}

type bigQueryJob struct {
	job *bigquery.Job
}

func (j *bigQueryJob) ID() string {
	return j.job.ID()
}

func (j *bigQueryJob) Wait(ctx context.Context) error {
	status, err := j.job.Wait(ctx)
	if err != nil {
		return xerrors.Errorf("failed to wait job: %w", err)
	}

	if err := status.Err(); err != nil {
		details := make([]string, 0, len(status.Errors))
		for _, e := range status.Errors {
			details = append(details, e.Error())
		}
		return &JobFailedError{Err: err, Details: details}
	}

	return nil
}

// EncodeNDJSON writes table as newline-delimited JSON objects, one per row,
// with keys in column order. Null cells are encoded as JSON null.
func EncodeNDJSON(w io.Writer, table *PreparedTable) error {
	keys := make([][]byte, len(table.Columns))
	for i, c := range table.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	line := &bytes.Buffer{}
	for _, row := range table.Rows {
		line.Reset()
		line.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				line.WriteByte(',')
			}
			line.Write(keys[i])
			line.WriteByte(':')
			b, err := v.MarshalJSON()
			if err != nil {
				return err
			}
			line.Write(b)
		}
		line.WriteString("}\n")

		if _, err := w.Write(line.Bytes()); err != nil {
			return err
		}
	}

	return nil
}
