package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/services"
	"github.com/gin-gonic/gin"
)

type placeOrderRequest struct {
	Items []models.OrderItem `json:"items"`
}

type moveOrderRequest struct {
	Status models.OrderStatus `json:"status"`
}

type syncStatus struct {
	State   string           `json:"state"`
	Error   string           `json:"error,omitempty"`
	Cursors map[string]int64 `json:"cursors"`
}

type statusResponse struct {
	Online bool       `json:"online"`
	Sync   syncStatus `json:"sync"`
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidTransition):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func listProductsHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Products(c.Request.Context(), c.Query("category"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func listOrdersHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context(), models.OrderStatus(c.Query("status")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func getOrderHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func placeOrderHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		o, err := svc.Place(c.Request.Context(), req.Items)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func moveOrderHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moveOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		o, err := svc.Move(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// syncHandler starts a full sync on bg and answers immediately. Progress is
// reported through status events.
func syncHandler(bg context.Context, syncer Syncer, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		go func() {
			if err := syncer.SyncAll(bg); err != nil {
				log.Warn(bg, "requested sync failed", "error", err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"state": "started"})
	}
}

func outboxHandler(outbox Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := outbox.Pending(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func printJobsHandler(jobs JobLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.PrintStatus(c.Query("status"))
		switch status {
		case "", models.PrintQueued, models.PrintDone, models.PrintFailed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown print status"})
			return
		}
		items, err := jobs.Jobs(c.Request.Context(), status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func testPrintHandler(svc services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := svc.TestPrint(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, job)
	}
}

func statusHandler(outbox Outbox, syncer Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		cursors, err := syncer.Cursors(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		state, msg := syncer.State()
		c.JSON(http.StatusOK, statusResponse{
			Online: outbox.Online(),
			Sync:   syncStatus{State: string(state), Error: msg, Cursors: cursors},
		})
	}
}
