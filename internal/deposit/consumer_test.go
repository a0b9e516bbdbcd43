package deposit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/logging"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

// flakyStore fails the first n transactions.
type flakyStore struct {
	ledger.Store
	mu sync.Mutex
	n  int
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	if s.n > 0 {
		s.n--
		s.mu.Unlock()
		return errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.Store.WithinTx(ctx, fn)
}

func runConsumer(t *testing.T, c *Consumer, reader *fakeReader, wantCommits int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == wantCommits }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumerAppliesAndCommits(t *testing.T) {
	svc, store, _ := newTestService()
	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: []byte(`{"user_id":"u1","amount":10,"external_payment_id":"p1"}`)},
		{Offset: 2, Value: []byte(`{"user_id":"u1","amount":10,"external_payment_id":"p1"}`)},
		{Offset: 3, Value: []byte(`not json`)},
		{Offset: 4, Value: []byte(`{"user_id":"u1","amount":-5,"external_payment_id":"p2"}`)},
		{Offset: 5, Value: []byte(`{"user_id":"u1","amount":"2.50","external_payment_id":"p3"}`)},
	}}
	c := NewConsumer(reader, svc, nil, logging.Discard())

	runConsumer(t, c, reader, 5)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, reader.commits())
	bal, _ := store.Balance(context.Background(), "u1")
	assert.Equal(t, money.MustParse("12.50"), bal)
}

func TestConsumerRetriesStoreFailuresBeforeCommit(t *testing.T) {
	inner := ledger.NewInMemory()
	store := &flakyStore{Store: inner, n: 3}
	svc := NewService(store, ledger.NewInMemoryJournal(), nil, nil, logging.Discard())
	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 7, Value: []byte(`{"user_id":"u1","amount":10,"external_payment_id":"p1"}`)},
	}}
	c := NewConsumer(reader, svc, nil, logging.Discard())
	c.backoff = time.Millisecond

	runConsumer(t, c, reader, 1)

	bal, _ := inner.Balance(context.Background(), "u1")
	assert.Equal(t, money.MustParse("10"), bal)
}
