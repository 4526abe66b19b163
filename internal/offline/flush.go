package offline

import (
	"context"

	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
)

// FlushOutbox delivers pending entries oldest first. Only one pass runs at a
// time; a call made during a pass returns at once and schedules exactly one
// more pass. A failed entry is retried on a later pass with no ceiling.
func (s *DataStore) FlushOutbox(ctx context.Context) error {
	s.mu.Lock()
	if s.flushing {
		s.again = true
		s.mu.Unlock()
		return nil
	}
	s.flushing = true
	s.mu.Unlock()

	for {
		err := s.flushPass(ctx)

		s.mu.Lock()
		if err != nil || !s.again {
			s.flushing = false
			s.again = false
			s.mu.Unlock()
			return err
		}
		s.again = false
		s.mu.Unlock()
	}
}

func (s *DataStore) flushPass(ctx context.Context) error {
	entries, err := store.AllAs[models.OutboxEntry](ctx, s.db, models.CollectionOutbox, "by_createdAt", nil)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Online() {
			s.log.Debug(ctx, "flush paused, offline", "pending", len(entries))
			return nil
		}

		err := s.pusher.Push(ctx, e)
		if err == nil {
			if err = s.db.Delete(ctx, models.CollectionOutbox, e.ID); err == nil {
				s.log.Debug(ctx, "outbox entry delivered", "entry", e.ID, "store", e.Store)
				continue
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.Tries++
		if perr := s.db.Put(ctx, models.CollectionOutbox, e); perr != nil {
			s.log.Error(ctx, "persist outbox tries failed", "entry", e.ID, "error", perr)
		}
		s.log.Warn(ctx, "outbox delivery failed", "entry", e.ID, "tries", e.Tries, "error", err)
		s.bus.Publish(eventbus.KindSyncError, eventbus.SyncErrorPayload{Job: e, Error: err.Error()})

		if err := s.sleep(ctx, s.policy.Delay(e.Tries)); err != nil {
			return err
		}
	}
	return nil
}
