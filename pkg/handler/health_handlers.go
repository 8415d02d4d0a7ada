// Liveness, readiness and version handlers
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pochemuchka/pochemuchka/pkg/store"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	store *store.Degradable
}

func NewHealthHandler(st *store.Degradable) *HealthHandler {
	return &HealthHandler{store: st}
}

// RegisterRoutes registers probe routes on the engine root
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/version", h.GetVersion)
}

// Healthz reports process liveness
// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the persistent store is reachable. The service
// still answers turns while degraded, so readiness stays informational.
// GET /readyz
func (h *HealthHandler) Readyz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"storage": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"storage_available": h.store.Available(),
	})
}

// GetVersion returns the build version
// GET /version
func (h *HealthHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
