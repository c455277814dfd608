package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// fakeStore is an in-memory outbox with transactional semantics: deletions
// inside a failed transaction are discarded.
type fakeStore struct {
	mu      sync.Mutex
	records []outbox.Record
}

func (s *fakeStore) add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.records = append(s.records, outbox.Record{
			ID:      fmt.Sprintf("%d", len(s.records)+1),
			Topic:   "topic",
			Payload: []byte(fmt.Sprintf("payload-%d", len(s.records)+1)),
		})
	}
}

func (s *fakeStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx outbox.TxOps) error) error {
	s.mu.Lock()
	snapshot := make([]outbox.Record, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	tx := &fakeTx{records: snapshot, deleted: map[string]bool{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var remaining []outbox.Record
	for _, r := range s.records {
		if !tx.deleted[r.ID] {
			remaining = append(remaining, r)
		}
	}
	s.records = remaining
	return nil
}

type fakeTx struct {
	records []outbox.Record
	deleted map[string]bool
}

func (t *fakeTx) FindNextPage(_ context.Context, pageSize int) (outbox.Page, error) {
	var page outbox.Page
	page.HasMore = len(t.records) > pageSize
	n := pageSize
	if len(t.records) < n {
		n = len(t.records)
	}
	page.Records = t.records[:n]
	return page, nil
}

func (t *fakeTx) Delete(_ context.Context, records []outbox.Record) (int64, error) {
	for _, r := range records {
		t.deleted[r.ID] = true
	}
	return int64(len(records)), nil
}

type fakePublisher struct {
	mu      sync.Mutex
	pages   [][]outbox.Record
	err     error
	blockCh chan struct{}
}

func (p *fakePublisher) PublishPage(_ context.Context, records []outbox.Record) error {
	if p.blockCh != nil {
		<-p.blockCh
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	page := make([]outbox.Record, len(records))
	copy(page, records)
	p.pages = append(p.pages, page)
	return nil
}

func (p *fakePublisher) pageSizes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	sizes := make([]int, len(p.pages))
	for i, page := range p.pages {
		sizes[i] = len(page)
	}
	return sizes
}

func newTestRelay(store *fakeStore, publisher *fakePublisher, pageSize int) *Relay {
	return New(store, publisher, pageSize, logger.Noop(), noop.NewTracerProvider().Tracer("test"), nil)
}

func TestTickDrainsAllPages(t *testing.T) {
	store := &fakeStore{}
	store.add(5)
	publisher := &fakePublisher{}

	r := newTestRelay(store, publisher, 2)
	require.NoError(t, r.Tick(context.Background()))

	// One tick keeps looping until the outbox is empty.
	assert.Equal(t, []int{2, 2, 1}, publisher.pageSizes())
	assert.Zero(t, store.size())
}

func TestTickPreservesInsertionOrder(t *testing.T) {
	store := &fakeStore{}
	store.add(3)
	publisher := &fakePublisher{}

	r := newTestRelay(store, publisher, 10)
	require.NoError(t, r.Tick(context.Background()))

	require.Len(t, publisher.pages, 1)
	page := publisher.pages[0]
	require.Len(t, page, 3)
	assert.Equal(t, []byte("payload-1"), page[0].Payload)
	assert.Equal(t, []byte("payload-2"), page[1].Payload)
	assert.Equal(t, []byte("payload-3"), page[2].Payload)
}

func TestTickEmptyOutbox(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}

	r := newTestRelay(store, publisher, 2)
	require.NoError(t, r.Tick(context.Background()))
	assert.Empty(t, publisher.pages)
}

func TestTickPublishFailureKeepsRecords(t *testing.T) {
	store := &fakeStore{}
	store.add(3)
	publisher := &fakePublisher{err: errors.New("broker unavailable")}

	r := newTestRelay(store, publisher, 2)
	err := r.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker unavailable")

	// The delete never committed; every record survives for the next tick.
	assert.Equal(t, 3, store.size())
}

func TestTickSkipsWhileBusy(t *testing.T) {
	store := &fakeStore{}
	store.add(1)
	publisher := &fakePublisher{blockCh: make(chan struct{})}

	r := newTestRelay(store, publisher, 2)

	done := make(chan error, 1)
	go func() { done <- r.Tick(context.Background()) }()

	// Wait for the first tick to reach the publisher.
	require.Eventually(t, func() bool { return r.busy.Load() }, time.Second, time.Millisecond)

	// A tick fired while the first still runs must not publish anything.
	require.NoError(t, r.Tick(context.Background()))
	assert.Empty(t, publisher.pageSizes())

	close(publisher.blockCh)
	require.NoError(t, <-done)
	assert.Equal(t, []int{1}, publisher.pageSizes())
}
