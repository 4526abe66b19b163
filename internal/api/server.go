// Package api serves the local HTTP and websocket API used by the POS UI.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Syncer runs and reports full synchronizations.
type Syncer interface {
	SyncAll(ctx context.Context) error
	State() (eventbus.SyncState, string)
	Cursors(ctx context.Context) (map[string]int64, error)
}

// Outbox exposes pending deliveries and connectivity.
type Outbox interface {
	Pending(ctx context.Context) ([]models.OutboxEntry, error)
	Online() bool
}

// JobLister lists print jobs.
type JobLister interface {
	Jobs(ctx context.Context, status models.PrintStatus) ([]models.PrintJob, error)
}

type Deps struct {
	Orders services.OrderService
	Sync   Syncer
	Outbox Outbox
	Jobs   JobLister
	Bus    *eventbus.Bus
	Log    logging.Logger
}

type Server struct {
	addr   string
	router *gin.Engine
	hub    *Hub
	log    logging.Logger

	// bg outlives requests; background syncs started over HTTP run on it.
	bg     context.Context
	cancel context.CancelFunc
}

func NewServer(addr string, d Deps) *Server {
	bg, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		router: gin.New(),
		hub:    NewHub(d.Bus, d.Log),
		log:    d.Log.With("component", "api"),
		bg:     bg,
		cancel: cancel,
	}

	s.router.Use(gin.Recovery(), s.requestLog())

	s.router.GET("/products", listProductsHandler(d.Orders))
	s.router.GET("/orders", listOrdersHandler(d.Orders))
	s.router.GET("/orders/:id", getOrderHandler(d.Orders))
	s.router.POST("/orders", placeOrderHandler(d.Orders))
	s.router.POST("/orders/:id/status", moveOrderHandler(d.Orders))
	s.router.POST("/sync", syncHandler(s.bg, d.Sync, s.log))
	s.router.GET("/outbox", outboxHandler(d.Outbox))
	s.router.GET("/print/jobs", printJobsHandler(d.Jobs))
	s.router.POST("/print/test", testPrintHandler(d.Orders))
	s.router.GET("/status", statusHandler(d.Outbox, d.Sync))
	s.router.GET("/events", func(c *gin.Context) {
		s.hub.serve(c.Writer, c.Request)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is cancelled, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "local api listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close stops background syncs and disconnects websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.hub.Close()
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
