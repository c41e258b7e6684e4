package controller

import (
	"net/http"

	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/autosave"
	"github.com/inkwell-app/inkwell/internal/editing"
	"github.com/inkwell-app/inkwell/internal/logger"
)

// SessionController exposes editing sessions over HTTP. The UI opens a
// session when an editor mounts, pushes field edits as the user types,
// polls status for the autosave indicator, and closes the session on
// navigation away.
type SessionController struct {
	manager *editing.Manager
}

func NewSessionController(manager *editing.Manager) *SessionController {
	return &SessionController{manager: manager}
}

type openSessionRequest struct {
	Kind    string `json:"kind" binding:"required,oneof=journal lifestory"`
	EntryID string `json:"entryId"`
}

type fieldsRequest struct {
	Fields autosave.Fields `json:"fields"`
}

// Open handles POST /sessions.
func (sc *SessionController) Open(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	info, err := sc.manager.Open(c.Request.Context(), userID, req.Kind, req.EntryID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		if errdefs.IsInvalidArgument(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.WithComponent("session-controller").Errorf("open session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}
	c.JSON(http.StatusCreated, info)
}

// Update handles PATCH /sessions/:id - pushes partial field edits.
func (sc *SessionController) Update(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req fieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Fields == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	info, err := sc.manager.Update(c.Param("id"), userID, req.Fields)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.WithComponent("session-controller").Errorf("update session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Status handles GET /sessions/:id - the autosave indicator poll.
func (sc *SessionController) Status(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	info, err := sc.manager.Status(c.Param("id"), userID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Draft handles POST /sessions/:id/draft - an explicit draft flush
// (cancel, tab blur). A clean session saves nothing and still succeeds.
func (sc *SessionController) Draft(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	info, err := sc.manager.SaveDraft(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.WithComponent("session-controller").Errorf("draft save: %v", err)
		// The session stays dirty; the client may retry or rely on the
		// next autosave cycle.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft save failed"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Submit handles POST /sessions/:id/submit - the deliberate, final save.
// The session's busy flag is acknowledged only after the response has been
// serialized, so clients never observe a success response with the busy
// flag already cleared mid-render.
func (sc *SessionController) Submit(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req fieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sessionID := c.Param("id")
	info, err := sc.manager.Submit(c.Request.Context(), sessionID, userID, req.Fields)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.WithComponent("session-controller").Errorf("submit: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit failed"})
		return
	}

	c.JSON(http.StatusOK, info)
	sc.manager.Finish(sessionID, userID)
}

// Close handles DELETE /sessions/:id - navigate-away teardown with a final
// draft flush.
func (sc *SessionController) Close(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := sc.manager.Close(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.WithComponent("session-controller").Errorf("close session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "final draft save failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
