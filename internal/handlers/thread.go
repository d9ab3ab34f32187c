package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/services"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type ThreadHandler struct {
	threadService services.ThreadService
}

func NewThreadHandler(threadService services.ThreadService) *ThreadHandler {
	return &ThreadHandler{threadService: threadService}
}

func (th *ThreadHandler) Create(c *gin.Context) {
	var req struct {
		Title  string `json:"title"`
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}
	thread, err := th.threadService.Create(c.Request.Context(), req.Title, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// FindAll optionally filters by userId. An unknown userId yields an empty
// array, never a 404.
func (th *ThreadHandler) FindAll(c *gin.Context) {
	var (
		threads []*types.Thread
		err     error
	)
	if raw := c.Query("userId"); raw != "" {
		userID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			c.JSON(http.StatusOK, []*types.Thread{})
			return
		}
		threads, err = th.threadService.FindAllByUserID(c.Request.Context(), userID)
	} else {
		threads, err = th.threadService.FindAll(c.Request.Context())
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if threads == nil {
		threads = []*types.Thread{}
	}
	c.JSON(http.StatusOK, threads)
}

func (th *ThreadHandler) FindOne(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	thread, err := th.threadService.FindOne(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (th *ThreadHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	var req struct {
		Title  *string `json:"title"`
		UserID *string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var userID *uuid.UUID
	if req.UserID != nil {
		parsed, parseErr := uuid.Parse(*req.UserID)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
		userID = &parsed
	}
	thread, err := th.threadService.Update(c.Request.Context(), id, req.Title, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (th *ThreadHandler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	if err := th.threadService.Remove(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
