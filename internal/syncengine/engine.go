// Package syncengine reconciles the local store with the remote API: it
// hands dirty orders to the outbox and pulls remote changes page by page
// since a persisted per-collection cursor.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/litepos/internal/client"
	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/offline"
	"github.com/dmitrijs2005/litepos/internal/repositories/metadata"
	"github.com/dmitrijs2005/litepos/internal/repositories/orders"
	"github.com/dmitrijs2005/litepos/internal/store"
)

// PageSize is the number of records requested per pull page.
const PageSize = 200

// Pulled collections, in order.
var pullOrder = []string{models.CollectionProducts, models.CollectionOrders}

// Outbox is the write path used by the push phase.
type Outbox interface {
	Write(ctx context.Context, req offline.WriteRequest) (models.Record, error)
	TriggerFlush()
	Online() bool
}

// Puller fetches pages of remote changes.
type Puller interface {
	Pull(ctx context.Context, collection string, since int64, limit, offset int) ([]json.RawMessage, error)
}

type Engine struct {
	db      *store.Store
	outbox  Outbox
	puller  Puller
	orders  orders.Repository
	cursors metadata.Repository
	bus     *eventbus.Bus
	log     logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   eventbus.SyncState
	lastErr string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db *store.Store, outbox Outbox, puller Puller, bus *eventbus.Bus, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		outbox:  outbox,
		puller:  puller,
		orders:  orders.NewStoreRepository(db, orders.WithLogger(log)),
		cursors: metadata.NewStoreRepository(db),
		bus:     bus,
		log:     log.With("component", "sync"),
		now:     time.Now,
		state:   eventbus.StateIdle,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the current state and the message of the last failure.
func (e *Engine) State() (eventbus.SyncState, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastErr
}

// Cursors returns the pull cursor of every pulled collection in unix
// milliseconds, 0 for a collection that was never pulled.
func (e *Engine) Cursors(ctx context.Context) (map[string]int64, error) {
	all, err := e.cursors.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(pullOrder))
	for _, c := range pullOrder {
		out[c] = all[models.SinceKey(c)]
	}
	return out, nil
}

// ResetCursor forgets the pull cursor of collection so that the next cycle
// pulls it from the beginning.
func (e *Engine) ResetCursor(ctx context.Context, collection string) error {
	if !slices.Contains(pullOrder, collection) {
		return fmt.Errorf("%w: %q is not a pulled collection", common.ErrValidation, collection)
	}
	if err := e.cursors.Delete(ctx, models.SinceKey(collection)); err != nil {
		return err
	}
	e.log.Info(ctx, "pull cursor reset", "collection", collection)
	return nil
}

// SyncAll runs one push-then-pull cycle. It is a no-op while a cycle is
// already running. Losing connectivity pauses the cycle without error;
// any other failure moves the engine to the error state and is returned.
func (e *Engine) SyncAll(ctx context.Context) error {
	e.mu.Lock()
	if e.state == eventbus.StateRunning {
		e.mu.Unlock()
		e.log.Debug(ctx, "sync already running")
		return nil
	}
	e.state = eventbus.StateRunning
	e.lastErr = ""
	e.mu.Unlock()

	e.bus.Publish(eventbus.KindStatus, eventbus.StatusPayload{State: eventbus.StateRunning})
	e.log.Info(ctx, "sync started")

	err := e.run(ctx)
	switch {
	case err == nil:
		e.setState(eventbus.StateIdle, "")
		e.log.Info(ctx, "sync finished")
		return nil
	case errors.Is(err, common.ErrOffline):
		e.setState(eventbus.StateIdle, "")
		e.log.Info(ctx, "sync paused, offline", "reason", err)
		return nil
	default:
		e.setState(eventbus.StateError, err.Error())
		e.log.Error(ctx, "sync failed", "error", err)
		return err
	}
}

func (e *Engine) setState(state eventbus.SyncState, msg string) {
	e.mu.Lock()
	e.state = state
	e.lastErr = msg
	e.mu.Unlock()
	e.bus.Publish(eventbus.KindStatus, eventbus.StatusPayload{State: state, Error: msg})
}

func (e *Engine) run(ctx context.Context) error {
	if err := e.pushDirty(ctx); err != nil {
		return fmt.Errorf("push orders: %w", err)
	}
	for _, c := range pullOrder {
		if err := e.pull(ctx, c); err != nil {
			return fmt.Errorf("pull %s: %w", c, err)
		}
	}
	e.outbox.TriggerFlush()
	return nil
}

// pushDirty routes every dirty order through the outbox and then clears
// the flag locally. A cleared flag means delivery was queued, not confirmed.
func (e *Engine) pushDirty(ctx context.Context) error {
	dirty, err := e.orders.ListDirty(ctx)
	if err != nil {
		return err
	}
	for i := range dirty {
		o := &dirty[i]
		if _, err := e.outbox.Write(ctx, offline.WriteRequest{
			Collection: models.CollectionOrders,
			Value:      o,
			RemoteURL:  OrderURL(o.ID),
		}); err != nil {
			return err
		}
		o.Dirty = false
		if err := e.orders.Save(ctx, o); err != nil {
			return err
		}
	}
	if len(dirty) > 0 {
		e.log.Debug(ctx, "dirty orders queued", "count", len(dirty))
	}
	return nil
}

func (e *Engine) pull(ctx context.Context, collection string) error {
	if !e.outbox.Online() {
		return common.ErrOffline
	}

	key := models.SinceKey(collection)
	since, err := e.cursors.Get(ctx, key)
	if err != nil {
		return err
	}

	changed := 0
	for page := 0; ; page++ {
		items, err := e.puller.Pull(ctx, collection, since, PageSize, page*PageSize)
		if errors.Is(err, client.ErrPullRejected) {
			e.log.Warn(ctx, "pull page rejected", "collection", collection, "page", page, "error", err)
			break
		}
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}
		if err := e.apply(ctx, collection, items); err != nil {
			return err
		}
		changed += len(items)
	}

	if _, err := e.cursors.Advance(ctx, key, e.now().UnixMilli()); err != nil {
		return err
	}

	if changed > 0 {
		e.log.Info(ctx, "pulled changes", "collection", collection, "count", changed)
		e.bus.Publish(eventbus.KindChange, eventbus.ChangePayload{Store: collection, Op: models.OpSync, Count: changed})
	}
	return nil
}

// apply upserts one page atomically, defaulting a missing updatedAt to now.
func (e *Engine) apply(ctx context.Context, collection string, items []json.RawMessage) error {
	stamp, err := json.Marshal(models.At(e.now()))
	if err != nil {
		return err
	}

	return e.db.Transaction(ctx, []string{collection}, func(ctx context.Context, tx *store.Tx) error {
		for _, raw := range items {
			var rec map[string]json.RawMessage
			if err := json.Unmarshal(raw, &rec); err != nil {
				return common.NewStorageError("pull", collection, err)
			}
			if rec == nil {
				return common.NewStorageError("pull", collection, fmt.Errorf("null record"))
			}
			if !hasValue(rec["updatedAt"]) {
				rec["updatedAt"] = stamp
			}
			if err := tx.Put(ctx, collection, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func hasValue(raw json.RawMessage) bool {
	s := string(raw)
	return s != "" && s != "null" && s != `""`
}

// OrderURL is the remote resource of an order, relative to the API base.
func OrderURL(id string) string {
	return "/orders/" + id
}
