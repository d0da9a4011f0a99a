package bankloader

import (
	"context"
	"sync"
	"testing"
)

var baseRecord = map[string]string{
	"age":         "30",
	"job":         "admin.",
	"marital":     "married",
	"education":   "secondary",
	"default":     "no",
	"balance":     "1787",
	"housing":     "no",
	"loan":        "no",
	"contact":     "cellular",
	"day_of_week": "19",
	"month":       "oct",
	"duration":    "79",
	"campaign":    "1",
	"pdays":       "-1",
	"previous":    "0",
	"poutcome":    "",
	"y":           "no",
}

// buildTable builds a table with the expected columns minus drop. Each
// override map replaces cells of one row; an empty string becomes Null.
func buildTable(t *testing.T, drop []string, overrides ...map[string]string) *Table {
	t.Helper()

	skip := map[string]bool{}
	for _, d := range drop {
		skip[d] = true
	}

	tbl := &Table{}
	for _, c := range BankMarketingSchema().ExpectedColumns() {
		if !skip[c] {
			tbl.Columns = append(tbl.Columns, c)
		}
	}

	for _, o := range overrides {
		row := make([]Value, len(tbl.Columns))
		for i, c := range tbl.Columns {
			s, ok := o[c]
			if !ok {
				s = baseRecord[c]
			}
			if s == "" {
				row[i] = Null()
			} else {
				row[i] = Text(s)
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl
}

func rows(n int) []map[string]string {
	rs := make([]map[string]string, n)
	for i := range rs {
		rs[i] = map[string]string{}
	}
	return rs
}

type testSource struct {
	features *Table
	targets  *Table
	err      error
	calls    int
}

func (s *testSource) Name() string { return "test" }

func (s *testSource) Fetch(context.Context) (*Table, *Table, error) {
	s.calls++
	return s.features, s.targets, s.err
}

type testJob struct {
	id  string
	err error
}

func (j *testJob) ID() string                 { return j.id }
func (j *testJob) Wait(context.Context) error { return j.err }

type testSink struct {
	submitErr error
	waitErr   error
	mdErr     error

	// rowsOverride makes TableMetadata report a different row count.
	rowsOverride *uint64

	submitted *PreparedTable
	dest      Destination
	calls     int
}

func (s *testSink) SubmitOverwriteLoad(_ context.Context, t *PreparedTable, d Destination, _ *Schema) (Job, error) {
	s.calls++
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = t
	s.dest = d
	return &testJob{id: "job-1", err: s.waitErr}, nil
}

func (s *testSink) TableMetadata(context.Context, Destination) (*TableMetadata, error) {
	if s.mdErr != nil {
		return nil, s.mdErr
	}
	n := uint64(s.submitted.Len())
	if s.rowsOverride != nil {
		n = *s.rowsOverride
	}
	return &TableMetadata{NumRows: n, NumBytes: int64(n) * 100}, nil
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]State
	warnings    []string
	nulls       []NullCount
	preview     string
}

func (o *recordingObserver) Transition(_ context.Context, from, to State, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, [2]State{from, to})
}

func (o *recordingObserver) Warn(_ context.Context, msg string) {
	o.warnings = append(o.warnings, msg)
}

func (o *recordingObserver) NullSummary(_ context.Context, _ int, s []NullCount) {
	o.nulls = s
}

func (o *recordingObserver) Preview(_ context.Context, p string) {
	o.preview = p
}
