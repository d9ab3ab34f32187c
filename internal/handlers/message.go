package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/services"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type MessageHandler struct {
	messageService services.MessageService
}

func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (mh *MessageHandler) Create(c *gin.Context) {
	var req struct {
		Content  string `json:"content"`
		ThreadID string `json:"threadId"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threadId"})
		return
	}
	msg, err := mh.messageService.Create(c.Request.Context(), req.Content, threadID, types.MessageRole(req.Role))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// FindAll optionally filters by threadId; results are ordered by createdAt
// ascending. An unknown threadId yields an empty array.
func (mh *MessageHandler) FindAll(c *gin.Context) {
	var (
		msgs []*types.Message
		err  error
	)
	if raw := c.Query("threadId"); raw != "" {
		threadID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			c.JSON(http.StatusOK, []*types.Message{})
			return
		}
		msgs, err = mh.messageService.FindAllByThreadID(c.Request.Context(), threadID)
	} else {
		msgs, err = mh.messageService.FindAll(c.Request.Context())
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if msgs == nil {
		msgs = []*types.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (mh *MessageHandler) FindOne(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	msg, err := mh.messageService.FindOne(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (mh *MessageHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	var req struct {
		Content *string `json:"content"`
		Role    *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var role *types.MessageRole
	if req.Role != nil {
		r := types.MessageRole(*req.Role)
		role = &r
	}
	msg, err := mh.messageService.Update(c.Request.Context(), id, req.Content, role)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (mh *MessageHandler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err := mh.messageService.Remove(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
