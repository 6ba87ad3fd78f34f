package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/database"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/observability"
)

type SystemHandler struct {
	scrape http.Handler
}

func NewSystemHandler(metrics *observability.Metrics) *SystemHandler {
	return &SystemHandler{scrape: metrics.Handler()}
}

// Health reports whether the API can reach its database
func (h *SystemHandler) Health(c *gin.Context) {
	sqlDB, err := database.GetDB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		_ = c.Error(err)
		apierrors.ServiceUnavailable(c, "Database is unreachable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Wizone IT Support API is running",
	})
}

// Metrics serves the Prometheus scrape endpoint
func (h *SystemHandler) Metrics(c *gin.Context) {
	h.scrape.ServeHTTP(c.Writer, c.Request)
}
