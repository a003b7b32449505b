package events

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/bilalinamdar/cloud-slang/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

type (
	// ArchiveSink collects each run's events and writes them as a single
	// record to a blob bucket once the run ends
	ArchiveSink struct {
		bucket  *blob.Bucket
		prefix  string
		mu      sync.Mutex
		pending map[api.RunID][]*api.Event
	}

	// RunRecord is the archived history of one run
	RunRecord struct {
		RunID  api.RunID     `json:"run_id"`
		Status api.RunStatus `json:"status"`
		Events []*api.Event  `json:"events"`
	}
)

var ErrRecordNotFound = errors.New("run record not found")

// OpenArchiveSink opens the bucket at bucketURL. Supported schemes include
// s3://, gs://, azblob://, file:// and mem://
func OpenArchiveSink(
	ctx context.Context, bucketURL, prefix string,
) (*ArchiveSink, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return NewArchiveSink(bucket, prefix), nil
}

// NewArchiveSink archives into an already opened bucket
func NewArchiveSink(bucket *blob.Bucket, prefix string) *ArchiveSink {
	return &ArchiveSink{
		bucket:  bucket,
		prefix:  prefix,
		pending: map[api.RunID][]*api.Event{},
	}
}

// Deliver buffers the batch and writes the record of every run the batch
// ends. A failed write leaves the run buffered so a retry can write it
func (s *ArchiveSink) Deliver(ctx context.Context, batch []*api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ended []api.RunID
	for _, ev := range batch {
		evs := s.pending[ev.RunID]
		if !slices.Contains(evs, ev) {
			s.pending[ev.RunID] = append(evs, ev)
		}
		if ev.IsTerminal() {
			ended = append(ended, ev.RunID)
		}
	}

	var errs []error
	for _, id := range ended {
		if err := s.write(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(s.pending, id)
	}
	return errors.Join(errs...)
}

// Get reads back the archived record of a run
func (s *ArchiveSink) Get(
	ctx context.Context, id api.RunID,
) (*RunRecord, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close closes the bucket
func (s *ArchiveSink) Close() error {
	return s.bucket.Close()
}

func (s *ArchiveSink) write(ctx context.Context, id api.RunID) error {
	evs := s.pending[id]
	rec := &RunRecord{
		RunID:  id,
		Status: terminalStatus(evs[len(evs)-1].Type),
		Events: evs,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.bucket.WriteAll(ctx, s.keyFor(id), data, nil)
}

func (s *ArchiveSink) keyFor(id api.RunID) string {
	return s.prefix + string(id) + ".json"
}

func terminalStatus(typ api.EventType) api.RunStatus {
	switch typ {
	case api.EventExecutionFinished:
		return api.RunFinished
	case api.EventExecutionCancelled:
		return api.RunCancelled
	case api.EventExecutionFailed:
		return api.RunFailed
	default:
		return api.RunRunning
	}
}
