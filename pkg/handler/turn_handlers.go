// Turn and session HTTP handlers
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/prompts"
	"github.com/pochemuchka/pochemuchka/pkg/service"
	"github.com/pochemuchka/pochemuchka/pkg/store"
)

// TurnHandler handles turn processing and session management requests
type TurnHandler struct {
	dispatcher *service.Dispatcher
	media      *service.MediaRouter
	store      *store.Degradable
	logger     *slog.Logger
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(dispatcher *service.Dispatcher, media *service.MediaRouter, st *store.Degradable, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		dispatcher: dispatcher,
		media:      media,
		store:      st,
		logger:     logger,
	}
}

// RegisterRoutes registers turn and session routes
func (h *TurnHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/turns", h.ProcessTurn)

	sessions := r.Group("/sessions")
	{
		sessions.GET("/:chat_id", h.GetSession)
		sessions.DELETE("/:chat_id", h.DeleteSession)
	}
}

// ProcessTurn handles one inbound turn
// POST /v1/turns
func (h *TurnHandler) ProcessTurn(c *gin.Context) {
	var req models.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, err := h.media.ExtractContent(c.Request.Context(), &req)
	if err != nil {
		// A user-safe reply rides along so the transport can send it verbatim.
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"reply": prompts.GenericErrorReply(),
		})
		return
	}

	response, err := h.dispatcher.Submit(c.Request.Context(), req.ChatID, content)
	if err != nil {
		// Only context cancellation reaches here; everything else degrades
		// into a fallback reply inside the pipeline.
		h.logger.Warn("turn aborted", "chat_id", req.ChatID, "error", err)
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSession returns the current session state of a chat
// GET /v1/sessions/:chat_id
func (h *TurnHandler) GetSession(c *gin.Context) {
	chatID := c.Param("chat_id")

	session, messages, err := h.store.Load(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.NewSessionView(session, len(messages)))
}

// DeleteSession removes a chat's session and history
// DELETE /v1/sessions/:chat_id
func (h *TurnHandler) DeleteSession(c *gin.Context) {
	chatID := c.Param("chat_id")

	if err := h.store.Delete(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
