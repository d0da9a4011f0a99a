package bankloader

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// Event is an event from Cloud Storage.
type Event struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// FullPath returns full path of storage object beginning with gs://.
func (e *Event) FullPath() string {
	return fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
}

// ParseObjectURL parses a gs://bucket/object URL into an Event.
func ParseObjectURL(url string) (Event, error) {
	const scheme = "gs://"
	if !strings.HasPrefix(url, scheme) {
		return Event{}, xerrors.Errorf("%s is not a gs:// url", url)
	}

	bucket, name, ok := strings.Cut(strings.TrimPrefix(url, scheme), "/")
	if !ok || bucket == "" || name == "" {
		return Event{}, xerrors.Errorf("%s must name a bucket and an object", url)
	}

	return Event{Bucket: bucket, Name: name}, nil
}
