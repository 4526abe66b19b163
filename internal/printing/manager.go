// Package printing drives ticket printers through a persistent priority
// queue. Jobs are retried with capped exponential backoff and end up done
// or failed; they are never removed.
package printing

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/litepos/internal/backoff"
	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/google/uuid"
)

const (
	DefaultPriority = 5
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries = 3
)

// EnqueueRequest describes a new job. Zero Dest means receipt and a nil
// Priority means DefaultPriority. Lower values print first.
type EnqueueRequest struct {
	Dest     models.PrintDest
	Priority *int
	Payload  any
}

type Manager struct {
	db     *store.Store
	device Device
	bus    *eventbus.Bus
	log    logging.Logger
	now    func() time.Time
	policy backoff.Policy

	mu      sync.Mutex
	running bool
	rescan  bool
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithBackoff(p backoff.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

func New(db *store.Store, device Device, bus *eventbus.Bus, log logging.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		db:     db,
		device: device,
		bus:    bus,
		log:    log.With("component", "printing"),
		now:    time.Now,
		policy: backoff.Print,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Enqueue persists a queued job and makes sure a runner is processing.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (*models.PrintJob, error) {
	dest := req.Dest
	if dest == "" {
		dest = models.DestReceipt
	}
	priority := DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: print payload: %v", common.ErrValidation, err)
	}

	now := m.now().UnixMilli()
	job := &models.PrintJob{
		ID:        uuid.NewString(),
		Dest:      dest,
		Status:    models.PrintQueued,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: now,
		NextAt:    now,
	}
	if err := m.db.Put(ctx, models.CollectionPrintJobs, job); err != nil {
		return nil, err
	}
	m.log.Debug(ctx, "print job queued", "job", job.ID, "dest", dest, "priority", priority)

	m.kick()
	return job, nil
}

// Resume starts a runner for jobs left queued by a previous process.
func (m *Manager) Resume() {
	m.kick()
}

// Jobs lists jobs with status, or all jobs for "", oldest first.
func (m *Manager) Jobs(ctx context.Context, status models.PrintStatus) ([]models.PrintJob, error) {
	var (
		jobs []models.PrintJob
		err  error
	)
	if status == "" {
		jobs, err = store.AllAs[models.PrintJob](ctx, m.db, models.CollectionPrintJobs, "", nil)
	} else {
		jobs, err = store.AllAs[models.PrintJob](ctx, m.db, models.CollectionPrintJobs, "by_status", string(status))
	}
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(jobs, func(a, b models.PrintJob) int {
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
	return jobs, nil
}

// Close stops the runner and any pending wake-up and waits for the runner
// to return.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// kick starts the runner, or asks the active one to rescan before exiting.
func (m *Manager) kick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return
	}
	if m.running {
		m.rescan = true
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.running = true
	m.rescan = false
	m.wg.Add(1)
	go m.run(m.ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		job, wait, err := m.next(ctx)
		if err == nil && job != nil {
			if err = m.process(ctx, job); err == nil {
				continue
			}
		}
		if err != nil {
			m.log.Error(ctx, "print runner stopped", "error", err)
		}

		m.mu.Lock()
		if m.rescan && err == nil && ctx.Err() == nil {
			m.rescan = false
			m.mu.Unlock()
			continue
		}
		m.running = false
		m.rescan = false
		if wait > 0 && ctx.Err() == nil {
			m.timer = time.AfterFunc(wait, m.kick)
		}
		m.mu.Unlock()
		return
	}
}

// next picks the most urgent ready job: lowest priority value, then oldest.
// With no ready job it reports how long until the earliest backed-off one.
func (m *Manager) next(ctx context.Context) (*models.PrintJob, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, nil
	}
	queued, err := store.AllAs[models.PrintJob](ctx, m.db, models.CollectionPrintJobs, "by_status", string(models.PrintQueued))
	if err != nil {
		return nil, 0, err
	}

	now := m.now().UnixMilli()
	var (
		best     *models.PrintJob
		earliest int64
	)
	for i := range queued {
		j := &queued[i]
		if j.NextAt > now {
			if earliest == 0 || j.NextAt < earliest {
				earliest = j.NextAt
			}
			continue
		}
		if best == nil || j.Priority < best.Priority ||
			(j.Priority == best.Priority && j.CreatedAt < best.CreatedAt) {
			best = j
		}
	}
	if best != nil {
		return best, 0, nil
	}
	if earliest == 0 {
		return nil, 0, nil
	}
	return nil, time.Duration(earliest-now) * time.Millisecond, nil
}

// process makes one attempt at job. Only a failure to persist the outcome
// is returned.
func (m *Manager) process(ctx context.Context, job *models.PrintJob) error {
	text, err := Render(job.Dest, job.Payload)
	if err == nil {
		err = m.device.Dispatch(ctx, job.Dest, text)
	}
	if ctx.Err() != nil {
		return nil
	}

	if err == nil {
		job.Status = models.PrintDone
		if err := m.db.Put(ctx, models.CollectionPrintJobs, job); err != nil {
			return err
		}
		m.log.Info(ctx, "print job done", "job", job.ID, "dest", job.Dest)
		m.bus.Publish(eventbus.KindPrintDone, eventbus.PrintPayload{Job: *job})
		return nil
	}

	job.Tries++
	if job.Tries > MaxRetries {
		job.Status = models.PrintFailed
		if perr := m.db.Put(ctx, models.CollectionPrintJobs, job); perr != nil {
			return perr
		}
		m.log.Error(ctx, "print job failed", "job", job.ID, "tries", job.Tries, "error", err)
		m.bus.Publish(eventbus.KindPrintFailed, eventbus.PrintPayload{Job: *job, Error: err.Error()})
		return nil
	}

	job.NextAt = m.now().Add(m.policy.Delay(job.Tries)).UnixMilli()
	m.log.Warn(ctx, "print attempt failed", "job", job.ID, "tries", job.Tries, "error", err)
	return m.db.Put(ctx, models.CollectionPrintJobs, job)
}
