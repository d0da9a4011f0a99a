package bankloader

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Locker guards a destination against concurrent overwrite runs.
type Locker interface {
	// Lock acquires the lock for dest or fails with ErrLocked.
	Lock(ctx context.Context, dest Destination) (unlock func(context.Context) error, err error)
}

// StorageLock is an advisory lock backed by a Cloud Storage object per
// destination. The object is created only if absent and deleted on unlock
// only if it is still the generation this run created.
//
// A run that crashes leaves its lock object behind. With StaleAfter set, a
// lock object older than StaleAfter is taken over by the next run; with
// StaleAfter zero it blocks every run until it is deleted by hand.
type StorageLock struct {
	Bucket string
	Prefix string

	// StaleAfter is the age after which a held lock counts as abandoned.
	StaleAfter time.Duration

	storage *storage.Client
	now     func() time.Time
}

type lockRecord struct {
	RunID        string    `json:"run_id"`
	RunStartedAt time.Time `json:"run_started_at"`
	AcquiredAt   time.Time `json:"acquired_at"`
}

// NewStorageLock builds a lock keeping its objects in bucket.
func NewStorageLock(ctx context.Context, bucket string, opts ...option.ClientOption) (*StorageLock, error) {
	s, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}
	return &StorageLock{Bucket: bucket, Prefix: "locks/", storage: s, now: time.Now}, nil
}

// ObjectName returns the lock object name for dest.
func (s *StorageLock) ObjectName(dest Destination) string {
	return s.Prefix + dest.String() + ".lock"
}

// Lock creates the lock object for dest.
func (s *StorageLock) Lock(ctx context.Context, dest Destination) (func(context.Context) error, error) {
	l := log.Ctx(ctx)

	rec := &lockRecord{AcquiredAt: s.clock().UTC()}
	rec.RunID, _ = runIDFrom(ctx)
	rec.RunStartedAt, _ = startedTimeFrom(ctx)

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal lock record: %w", err)
	}

	name := s.ObjectName(dest)
	obj := s.storage.Bucket(s.Bucket).Object(name)

	gen, err := s.create(ctx, obj, body)
	if xerrors.Is(err, ErrLocked) && s.StaleAfter > 0 {
		var taken bool
		if taken, err = s.takeOver(ctx, obj); err == nil && taken {
			l.Warn().Str("lock", name).Dur("stale_after", s.StaleAfter).Msg("took over stale lock")
			gen, err = s.create(ctx, obj, body)
		} else if err == nil {
			err = ErrLocked
		}
	}
	if err != nil {
		return nil, xerrors.Errorf("gs://%s/%s: %w", s.Bucket, name, err)
	}

	l.Debug().Str("lock", name).Int64("generation", gen).Msg("acquired lock")

	return func(ctx context.Context) error {
		err := obj.If(storage.Conditions{GenerationMatch: gen}).Delete(ctx)
		if err != nil && !xerrors.Is(err, storage.ErrObjectNotExist) {
			return xerrors.Errorf("failed to release lock: %w", err)
		}
		return nil
	}, nil
}

func (s *StorageLock) create(ctx context.Context, obj *storage.ObjectHandle, body []byte) (int64, error) {
	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"

	_, werr := w.Write(body)
	err := w.Close()
	if err == nil {
		err = werr
	}
	if err != nil {
		if isPreconditionFailed(err) {
			return 0, ErrLocked
		}
		return 0, xerrors.Errorf("failed to create lock object: %w", err)
	}

	return w.Attrs().Generation, nil
}

// takeOver deletes the lock object held by another run if it is stale. The
// delete is conditioned on the generation that was judged stale.
func (s *StorageLock) takeOver(ctx context.Context, obj *storage.ObjectHandle) (bool, error) {
	attrs, err := obj.Attrs(ctx)
	if xerrors.Is(err, storage.ErrObjectNotExist) {
		return true, nil
	}
	if err != nil {
		return false, xerrors.Errorf("failed to read lock object: %w", err)
	}

	if !isStale(attrs.Created, s.clock(), s.StaleAfter) {
		return false, nil
	}

	err = obj.If(storage.Conditions{GenerationMatch: attrs.Generation}).Delete(ctx)
	if err != nil && !xerrors.Is(err, storage.ErrObjectNotExist) {
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, xerrors.Errorf("failed to delete stale lock: %w", err)
	}
	return true, nil
}

func (s *StorageLock) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Close closes the storage client.
func (s *StorageLock) Close() error {
	return s.storage.Close()
}

func isStale(created, now time.Time, after time.Duration) bool {
	return after > 0 && !created.IsZero() && now.Sub(created) > after
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return xerrors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
