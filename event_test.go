package bankloader

import "testing"

func TestParseObjectURL(t *testing.T) {
	t.Parallel()

	e, err := ParseObjectURL("gs://bucket/path/to/bank.csv")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if e.Bucket != "bucket" || e.Name != "path/to/bank.csv" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.FullPath() != "gs://bucket/path/to/bank.csv" {
		t.Errorf("unexpected full path %s", e.FullPath())
	}

	for _, u := range []string{"bucket/obj", "gs://bucket", "gs:///obj", "s3://bucket/obj"} {
		if _, err := ParseObjectURL(u); err == nil {
			t.Errorf("%s: expected error but no error occurred", u)
		}
	}
}
