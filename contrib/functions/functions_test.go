package functions

import (
	"context"
	"testing"

	"cloud.google.com/go/functions/metadata"

	"go.nownabe.dev/bankloader"
	"go.nownabe.dev/bankloader/internal/config"
)

func useFileSource(t *testing.T, path string) *int {
	t.Helper()

	calls := 0
	orig := newSource
	newSource = func(_ context.Context, e bankloader.Event, cfg *config.Config) (bankloader.Source, error) {
		calls++
		if e.Bucket != "landing" {
			t.Errorf("unexpected bucket %s", e.Bucket)
		}
		return &bankloader.FileSource{Path: path, TargetColumns: []string{bankloader.TargetColumn}}, nil
	}
	t.Cleanup(func() { newSource = orig })

	return &calls
}

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BANKLOADER_PROJECT_ID", "p")
	t.Setenv("BANKLOADER_DATASET", "d")
	t.Setenv("BANKLOADER_PREVIEW", "true")
	t.Setenv("BANKLOADER_LOG_LEVEL", "error")
}

func eventContext(eventType string) context.Context {
	return metadata.NewContext(context.Background(), &metadata.Metadata{
		EventID:   "1234",
		EventType: eventType,
	})
}

var event = bankloader.Event{Bucket: "landing", Name: "bank/bank-full.csv"}

func TestBankLoad(t *testing.T) {
	setEnv(t)
	calls := useFileSource(t, "testdata/bank.csv")

	if err := BankLoad(eventContext(finalizeEventType), event); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected one source, but %d", *calls)
	}
}

func TestBankLoad_ignoresOtherEvents(t *testing.T) {
	setEnv(t)
	calls := useFileSource(t, "testdata/bank.csv")

	if err := BankLoad(eventContext("google.storage.object.delete"), event); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *calls != 0 {
		t.Errorf("expected the event to be ignored, but %d sources", *calls)
	}
}

func TestBankLoad_errors(t *testing.T) {
	t.Run("no metadata", func(t *testing.T) {
		setEnv(t)
		if err := BankLoad(context.Background(), event); err == nil {
			t.Error("expected error but no error occurred")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		setEnv(t)
		t.Setenv("BANKLOADER_DATASET", "")
		useFileSource(t, "testdata/bank.csv")
		if err := BankLoad(eventContext(finalizeEventType), event); err == nil {
			t.Error("expected error but no error occurred")
		}
	})

	t.Run("missing object", func(t *testing.T) {
		setEnv(t)
		useFileSource(t, "testdata/absent.csv")
		err := BankLoad(eventContext(finalizeEventType), event)
		if !bankloader.NothingWritten(err) {
			t.Errorf("expected a failure with nothing written, but %v", err)
		}
	})
}
