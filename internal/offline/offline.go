// Package offline is the local-first write path. Every business write is
// persisted together with an outbox entry in one transaction, announced on
// the event bus, and delivered to the remote API by a background flush loop
// whenever the client is online.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/litepos/internal/backoff"
	"github.com/dmitrijs2005/litepos/internal/client"
	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/google/uuid"
)

// Pusher delivers one outbox entry to the remote API.
type Pusher interface {
	Push(ctx context.Context, entry models.OutboxEntry) error
}

// WriteRequest describes one business write.
type WriteRequest struct {
	Collection string
	Value      models.Record
	// Op defaults to upsert.
	Op        models.Op
	RemoteURL string
	// Method defaults to PUT for upserts and DELETE for deletes.
	Method string
}

type DataStore struct {
	db     *store.Store
	bus    *eventbus.Bus
	pusher Pusher
	log    logging.Logger

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	policy backoff.Policy

	online atomic.Bool

	mu       sync.Mutex
	flushing bool
	again    bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*DataStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *DataStore) { s.now = now }
}

// WithSleeper replaces the context-aware sleep between failed deliveries.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *DataStore) { s.sleep = sleep }
}

func WithBackoff(p backoff.Policy) Option {
	return func(s *DataStore) { s.policy = p }
}

// WithOnline sets the initial connectivity flag. The default is offline
// until the first probe says otherwise.
func WithOnline(online bool) Option {
	return func(s *DataStore) { s.online.Store(online) }
}

func New(db *store.Store, bus *eventbus.Bus, pusher Pusher, log logging.Logger, opts ...Option) *DataStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DataStore{
		db:     db,
		bus:    bus,
		pusher: pusher,
		log:    log.With("component", "offline"),
		now:    time.Now,
		sleep:  Sleep,
		policy: backoff.Outbox,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Write stamps the record, applies op and appends the outbox entry in a
// single transaction. On success it emits a change event and, if online,
// starts a flush without waiting for it. A storage failure is returned
// and nothing is written.
func (s *DataStore) Write(ctx context.Context, req WriteRequest) (models.Record, error) {
	if req.Value == nil {
		return nil, fmt.Errorf("%w: write without value", common.ErrValidation)
	}
	op := req.Op
	if op == "" {
		op = models.OpUpsert
	}
	if op != models.OpUpsert && op != models.OpDelete {
		return nil, fmt.Errorf("%w: unsupported op %q", common.ErrValidation, op)
	}
	method := req.Method
	if method == "" {
		method = client.DefaultMethod(op)
	}

	now := s.now()
	req.Value.Touch(now.UTC())

	payload, err := json.Marshal(req.Value)
	if err != nil {
		return nil, common.NewStorageError("write", req.Collection, err)
	}

	entry := models.OutboxEntry{
		ID:        uuid.NewString(),
		Store:     req.Collection,
		Op:        op,
		Payload:   payload,
		RemoteURL: req.RemoteURL,
		Method:    method,
		CreatedAt: now.UnixMilli(),
	}

	err = s.db.Transaction(ctx, []string{req.Collection, models.CollectionOutbox}, func(ctx context.Context, tx *store.Tx) error {
		if op == models.OpDelete {
			if err := tx.Delete(ctx, req.Collection, req.Value.RecordID()); err != nil {
				return err
			}
		} else if err := tx.Put(ctx, req.Collection, json.RawMessage(payload)); err != nil {
			return err
		}
		return tx.Put(ctx, models.CollectionOutbox, entry)
	})
	if err != nil {
		s.log.Error(ctx, "write failed", "store", req.Collection, "op", op, "error", err)
		return nil, err
	}

	s.bus.Publish(eventbus.KindChange, eventbus.ChangePayload{Store: req.Collection, Op: op, Value: req.Value})

	if s.Online() {
		s.TriggerFlush()
	}
	return req.Value, nil
}

// ReadThrough returns the local copy of a record, or nil when absent.
func (s *DataStore) ReadThrough(ctx context.Context, collection, key string) (json.RawMessage, error) {
	return s.db.Get(ctx, collection, key)
}

// Pending lists the undelivered outbox entries in delivery order.
func (s *DataStore) Pending(ctx context.Context) ([]models.OutboxEntry, error) {
	return store.AllAs[models.OutboxEntry](ctx, s.db, models.CollectionOutbox, "by_createdAt", nil)
}

func (s *DataStore) Online() bool {
	return s.online.Load()
}

// SetOnline records a connectivity change. Going online emits "online" and
// starts a flush; going offline emits "offline". Repeated values are ignored.
func (s *DataStore) SetOnline(online bool) {
	if s.online.Swap(online) == online {
		return
	}

	if online {
		s.log.Info(s.ctx, "connectivity restored")
		s.bus.Publish(eventbus.KindOnline, nil)
		s.TriggerFlush()
		return
	}
	s.log.Info(s.ctx, "connectivity lost")
	s.bus.Publish(eventbus.KindOffline, nil)
}

// TriggerFlush starts FlushOutbox in the background. It does nothing once
// Close has been called.
func (s *DataStore) TriggerFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.FlushOutbox(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error(s.ctx, "outbox flush failed", "error", err)
		}
	}()
}

// Settle waits for the background flushes started so far to return.
func (s *DataStore) Settle() {
	s.wg.Wait()
}

// Close stops background flushes and waits for them to return.
func (s *DataStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
