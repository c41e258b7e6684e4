package controller

import (
	"net/http"

	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/logger"
	"github.com/inkwell-app/inkwell/internal/repository"
)

// EntryController handles the entry read/delete endpoints. Writes go
// through editing sessions, never directly through this controller.
type EntryController struct {
	store repository.EntryStore
}

func NewEntryController(store repository.EntryStore) *EntryController {
	return &EntryController{store: store}
}

// List handles GET /entries - returns the caller's entries, optionally
// filtered by ?kind=journal|lifestory.
func (ec *EntryController) List(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	kind := c.Query("kind")
	if kind != "" && !repository.ValidKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entry kind"})
		return
	}

	entries, err := ec.store.ListByOwner(c.Request.Context(), userID, kind)
	if err != nil {
		logger.WithComponent("entry-controller").Errorf("list entries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Get handles GET /entry/:id.
func (ec *EntryController) Get(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	entry, err := ec.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		logger.WithComponent("entry-controller").Errorf("get entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read entry"})
		return
	}
	if entry.OwnerID != userID {
		// Do not reveal the entry's existence to other users.
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete handles DELETE /entry/:id.
func (ec *EntryController) Delete(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id := c.Param("id")
	if err := ec.store.Delete(c.Request.Context(), id, userID); err != nil {
		if errdefs.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		logger.WithComponent("entry-controller").Errorf("delete entry %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
		return
	}
	c.Status(http.StatusNoContent)
}
