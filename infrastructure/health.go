package infrastructure

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitovidale/video-manager-service/domain"
)

// healthChecker is implemented by task queues that hold a broker connection.
type healthChecker interface {
	Healthy() error
}

type HealthHandler struct {
	DB    *sql.DB
	Queue domain.TaskQueue
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	if err := h.DB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}

	queueStatus := "connected"
	if hc, ok := h.Queue.(healthChecker); ok {
		if err := hc.Healthy(); err != nil {
			queueStatus = "error: " + err.Error()
		}
	}

	if dbStatus != "connected" || queueStatus != "connected" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":   "DOWN",
			"database": dbStatus,
			"queue":    queueStatus,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "UP",
		"database": dbStatus,
		"queue":    queueStatus,
	})
}
