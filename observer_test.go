package bankloader

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

func TestLogObserver(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	o := NewLogObserver(zerolog.New(buf))
	ctx := withRunID(context.Background(), "run-1")

	o.Transition(ctx, StateStart, StateFetched, nil)
	o.Transition(ctx, StateFetched, StateFailed, &ValidationError{Kind: EmptyDataset})
	o.Transition(ctx, StatePrepared, StateFailed,
		&LoadJobError{Phase: PhaseJob, Err: xerrors.New("quota")})
	o.NullSummary(ctx, 4, []NullCount{{Column: "poutcome", Nulls: 1, Rows: 4}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 log lines, but %d:\n%s", len(lines), buf)
	}

	for _, l := range lines {
		if !strings.Contains(l, `"run_id":"run-1"`) {
			t.Errorf("expected run id in %s", l)
		}
	}
	if !strings.Contains(lines[1], `"nothing_written":true`) {
		t.Errorf("expected nothing_written in %s", lines[1])
	}
	if !strings.Contains(lines[2], `"write_attempted":true`) {
		t.Errorf("expected write_attempted in %s", lines[2])
	}
	if !strings.Contains(lines[4], `"percent":"25.00%"`) {
		t.Errorf("expected null percentage in %s", lines[4])
	}
}
