package bankloader

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// Source provides the raw dataset as a features table and a targets table.
type Source interface {
	// Name describes the source in logs and errors.
	Name() string

	Fetch(ctx context.Context) (features, targets *Table, err error)
}

// FileSource reads a dataset file from the local filesystem.
// TargetColumns are split off into the targets table.
type FileSource struct {
	Path          string
	Parser        Parser
	Encoding      encoding.Encoding
	TargetColumns []string
}

func (s *FileSource) Name() string { return s.Path }

// Fetch reads and parses the file.
func (s *FileSource) Fetch(ctx context.Context) (*Table, *Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, &FetchError{Source: s.Name(), Err: err}
	}
	defer f.Close()

	return parseSource(ctx, s.Name(), f, s.Parser, s.Encoding, s.TargetColumns)
}

// StorageSource reads a dataset file from Cloud Storage.
type StorageSource struct {
	Event         Event
	Parser        Parser
	Encoding      encoding.Encoding
	TargetColumns []string

	storage *storage.Client
}

// NewStorageSource builds a source reading the object e refers to.
func NewStorageSource(ctx context.Context, e Event, opts ...option.ClientOption) (*StorageSource, error) {
	s, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}

	return &StorageSource{
		Event:         e,
		Parser:        CSVParser(),
		TargetColumns: []string{TargetColumn},
		storage:       s,
	}, nil
}

func (s *StorageSource) Name() string { return s.Event.FullPath() }

// Fetch downloads and parses the object.
func (s *StorageSource) Fetch(ctx context.Context) (*Table, *Table, error) {
	r, closer, err := s.extract(ctx)
	if err != nil {
		return nil, nil, &FetchError{Source: s.Name(), Err: err}
	}
	defer closer()

	return parseSource(ctx, s.Name(), r, s.Parser, s.Encoding, s.TargetColumns)
}

// Close closes the storage client.
func (s *StorageSource) Close() error {
	return s.storage.Close()
}

func (s *StorageSource) extract(ctx context.Context) (io.Reader, func(), error) {
	l := log.Ctx(ctx)

	obj := s.storage.Bucket(s.Event.Bucket).Object(s.Event.Name)
	r, err := obj.NewReader(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to initialize object reader")
		return nil, nil, xerrors.Errorf("failed to get reader of %s: %w", s.Event.FullPath(), err)
	}
	l.Debug().Int64("size", r.Attrs.Size).Str("object", s.Event.FullPath()).Msg("opened object")

	return r, func() { r.Close() }, nil
}

func parseSource(
	ctx context.Context, name string, r io.Reader, p Parser, enc encoding.Encoding, targets []string,
) (*Table, *Table, error) {
	if p == nil {
		p = CSVParser()
	}

	t, err := p(ctx, decode(r, enc))
	if err != nil {
		return nil, nil, &FetchError{Source: name, Reason: "malformed payload", Err: err}
	}

	features, target := SplitColumns(t, targets)
	return features, target, nil
}

// SplitColumns moves the named columns of t into a second table. Names
// absent from t are ignored.
func SplitColumns(t *Table, names []string) (rest, split *Table) {
	move := make(map[string]bool, len(names))
	for _, n := range names {
		move[n] = true
	}

	var restIdx, splitIdx []int
	rest, split = &Table{}, &Table{}
	for i, c := range t.Columns {
		if move[c] {
			splitIdx = append(splitIdx, i)
			split.Columns = append(split.Columns, c)
		} else {
			restIdx = append(restIdx, i)
			rest.Columns = append(rest.Columns, c)
		}
	}

	rest.Rows = make([][]Value, len(t.Rows))
	split.Rows = make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		rest.Rows[r] = pick(row, restIdx)
		split.Rows[r] = pick(row, splitIdx)
	}

	return rest, split
}

func pick(row []Value, idx []int) []Value {
	out := make([]Value, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}
