package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/offline"
	"github.com/dmitrijs2005/litepos/internal/printing"
	"github.com/dmitrijs2005/litepos/internal/repositories/orders"
	"github.com/dmitrijs2005/litepos/internal/repositories/products"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrinter struct {
	reqs []printing.EnqueueRequest
	err  error
}

func (p *fakePrinter) Enqueue(_ context.Context, req printing.EnqueueRequest) (*models.PrintJob, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &models.PrintJob{ID: "j1", Dest: req.Dest, Status: models.PrintQueued}, nil
}

func setup(t *testing.T) (OrderService, *store.Store, *offline.DataStore, *fakePrinter) {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)

	ds := offline.New(db, eventbus.New(), nil, logging.Nop())
	p := &fakePrinter{}
	svc := NewOrderService(ds, orders.NewStoreRepository(db), products.NewStoreRepository(db), p, logging.Nop())

	t.Cleanup(func() {
		ds.Close()
		_ = db.Close()
	})
	return svc, db, ds, p
}

func items() []models.OrderItem {
	return []models.OrderItem{
		{ProductID: "p1", Name: "Burger", Size: "R", Price: decimal.RequireFromString("120.50"), Qty: 2},
		{ProductID: "p2", Name: "Cola", Price: decimal.NewFromInt(40), Qty: 1},
	}
}

func TestPlace_CreatesPendingDirtyOrderWithOutboxEntry(t *testing.T) {
	svc, db, ds, _ := setup(t)
	ctx := context.Background()

	o, err := svc.Place(ctx, items())
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.True(t, o.Dirty)
	assert.NotEmpty(t, o.Rev)
	assert.Equal(t, "281", o.Total.String())

	stored, err := store.GetAs[models.Order](ctx, db, models.CollectionOrders, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Total.Equal(o.Total))

	pending, err := ds.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/orders/"+o.ID, pending[0].RemoteURL)
}

func TestPlace_Validation(t *testing.T) {
	svc, _, ds, _ := setup(t)
	ctx := context.Background()

	cases := map[string][]models.OrderItem{
		"empty":          nil,
		"zero qty":       {{ProductID: "p1", Name: "Tea", Price: decimal.NewFromInt(1), Qty: 0}},
		"negative price": {{ProductID: "p1", Name: "Tea", Price: decimal.NewFromInt(-1), Qty: 1}},
		"missing name":   {{ProductID: "p1", Price: decimal.NewFromInt(1), Qty: 1}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Place(ctx, in)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	pending, err := ds.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMove_NewRevDirtyAndOutboxEntry(t *testing.T) {
	svc, _, ds, p := setup(t)
	ctx := context.Background()

	o, err := svc.Place(ctx, items())
	require.NoError(t, err)

	moved, err := svc.Move(ctx, o.ID, models.OrderPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, moved.Status)
	assert.NotEqual(t, o.Rev, moved.Rev)
	assert.True(t, moved.Dirty)
	assert.True(t, moved.Total.Equal(o.Total), "total is never recomputed")

	pending, err := ds.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Empty(t, p.reqs)
}

func TestMove_CompletedQueuesReceipt(t *testing.T) {
	svc, _, _, p := setup(t)
	ctx := context.Background()

	o, err := svc.Place(ctx, items())
	require.NoError(t, err)

	_, err = svc.Move(ctx, o.ID, models.OrderCompleted)
	require.NoError(t, err)

	require.Len(t, p.reqs, 1)
	assert.Equal(t, models.DestReceipt, p.reqs[0].Dest)
	ticket := p.reqs[0].Payload.(models.TicketPayload)
	assert.Equal(t, o.ID, ticket.OrderID)
	assert.Len(t, ticket.Items, 2)
	assert.True(t, ticket.Total.Equal(o.Total))
}

func TestMove_PrintFailureDoesNotFailMove(t *testing.T) {
	svc, _, _, p := setup(t)
	p.err = errors.New("disk full")
	ctx := context.Background()

	o, err := svc.Place(ctx, items())
	require.NoError(t, err)

	moved, err := svc.Move(ctx, o.ID, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, moved.Status)
}

func TestMove_Errors(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Move(ctx, "missing", models.OrderReady)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	o, err := svc.Place(ctx, items())
	require.NoError(t, err)
	_, err = svc.Move(ctx, o.ID, "shipped")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestList(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Place(ctx, items())
	require.NoError(t, err)
	_, err = svc.Place(ctx, items())
	require.NoError(t, err)
	_, err = svc.Move(ctx, a.ID, models.OrderReady)
	require.NoError(t, err)

	ready, err := svc.List(ctx, models.OrderReady)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, a.ID, ready[0].ID)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, "lost")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestProducts(t *testing.T) {
	svc, db, _, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, db.Put(ctx, models.CollectionProducts, models.Product{ID: "p1", Name: "Fries", Category: "Sides"}))
	require.NoError(t, db.Put(ctx, models.CollectionProducts, models.Product{ID: "p2", Name: "Shake", Category: "Desserts"}))

	sides, err := svc.Products(ctx, "Sides")
	require.NoError(t, err)
	require.Len(t, sides, 1)
	assert.Equal(t, "Fries", sides[0].Name)
}

func TestTestPrint(t *testing.T) {
	svc, _, _, p := setup(t)

	job, err := svc.TestPrint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DestReceipt, job.Dest)

	require.Len(t, p.reqs, 1)
	ticket := p.reqs[0].Payload.(models.TicketPayload)
	assert.Equal(t, "demo", ticket.OrderID)
	assert.Equal(t, "50", ticket.Total.String())
}
