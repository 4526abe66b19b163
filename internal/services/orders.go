// Package services holds the business actions behind the local API and the
// admin CLI.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/offline"
	"github.com/dmitrijs2005/litepos/internal/printing"
	"github.com/dmitrijs2005/litepos/internal/repositories/orders"
	"github.com/dmitrijs2005/litepos/internal/repositories/products"
	"github.com/dmitrijs2005/litepos/internal/syncengine"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Writer is the offline write path.
type Writer interface {
	Write(ctx context.Context, req offline.WriteRequest) (models.Record, error)
}

// Printer queues print jobs.
type Printer interface {
	Enqueue(ctx context.Context, req printing.EnqueueRequest) (*models.PrintJob, error)
}

type OrderService interface {
	Place(ctx context.Context, items []models.OrderItem) (*models.Order, error)
	Move(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	Products(ctx context.Context, category string) ([]models.Product, error)
	TestPrint(ctx context.Context) (*models.PrintJob, error)
}

type orderService struct {
	writer   Writer
	orders   orders.Repository
	products products.Repository
	printer  Printer
	validate *validator.Validate
	log      logging.Logger
	now      func() time.Time
}

func NewOrderService(writer Writer, ordersRepo orders.Repository, productsRepo products.Repository, printer Printer, log logging.Logger) OrderService {
	return &orderService{
		writer:   writer,
		orders:   ordersRepo,
		products: productsRepo,
		printer:  printer,
		validate: newValidator(),
		log:      log.With("component", "orders"),
		now:      time.Now,
	}
}

type placeRequest struct {
	Items []models.OrderItem `validate:"required,min=1,dive"`
}

func (s *orderService) Place(ctx context.Context, items []models.OrderItem) (*models.Order, error) {
	if err := s.validate.Struct(placeRequest{Items: items}); err != nil {
		return nil, validationError(err)
	}

	o := models.NewOrder(items, s.now().UTC())
	if _, err := s.writer.Write(ctx, offline.WriteRequest{
		Collection: models.CollectionOrders,
		Value:      o,
		RemoteURL:  syncengine.OrderURL(o.ID),
	}); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	s.log.Info(ctx, "order placed", "order", o.ID, "total", o.Total.StringFixed(2))
	return o, nil
}

// Move changes the status of an order. Completing an order queues its
// receipt; a failure to queue it is logged and does not fail the move.
func (s *orderService) Move(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.MoveTo(status, s.now().UTC()); err != nil {
		return nil, err
	}

	if _, err := s.writer.Write(ctx, offline.WriteRequest{
		Collection: models.CollectionOrders,
		Value:      o,
		RemoteURL:  syncengine.OrderURL(o.ID),
	}); err != nil {
		return nil, fmt.Errorf("move order: %w", err)
	}
	s.log.Info(ctx, "order moved", "order", o.ID, "status", status)

	if status == models.OrderCompleted {
		_, err := s.printer.Enqueue(ctx, printing.EnqueueRequest{
			Dest: models.DestReceipt,
			Payload: models.TicketPayload{
				OrderID: o.ID,
				Items:   o.Items,
				Total:   o.Total,
			},
		})
		if err != nil {
			s.log.Error(ctx, "receipt not queued", "order", o.ID, "error", err)
		}
	}
	return o, nil
}

func (s *orderService) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *orderService) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, status)
	}
	return s.orders.ListByStatus(ctx, status)
}

func (s *orderService) Products(ctx context.Context, category string) ([]models.Product, error) {
	return s.products.ListByCategory(ctx, category)
}

// TestPrint queues a demo receipt.
func (s *orderService) TestPrint(ctx context.Context) (*models.PrintJob, error) {
	return s.printer.Enqueue(ctx, printing.EnqueueRequest{
		Dest: models.DestReceipt,
		Payload: models.TicketPayload{
			OrderID: "demo",
			Items: []models.OrderItem{
				{ProductID: "demo", Name: "Demo", Size: "R", Price: decimal.NewFromInt(50), Qty: 1},
			},
			Total: decimal.NewFromInt(50),
		},
	})
}
