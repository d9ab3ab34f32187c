package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/requestdata"
	"github.com/smart-assistant/smart-assistant-backend/internal/services"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type AiHandler struct {
	ai           services.AiService
	conversation services.ConversationService
}

func NewAiHandler(ai services.AiService, conversation services.ConversationService) *AiHandler {
	return &AiHandler{ai: ai, conversation: conversation}
}

type generateMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// Generate runs one-off generation over a caller-supplied history. Nothing is
// persisted; generation failures surface as 500.
func (ah *AiHandler) Generate(c *gin.Context) {
	if ah.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service is not configured"})
		return
	}
	var req struct {
		Messages     []generateMessage `json:"messages"`
		ThreadID     string            `json:"threadId"`
		UserID       string            `json:"userId"`
		SystemPrompt string            `json:"systemPrompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages cannot be empty"})
		return
	}
	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threadId"})
		return
	}
	userID := uuid.Nil
	if req.UserID != "" {
		userID, err = uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
	}
	messages := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := types.MessageRole(m.Role)
		if !role.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role, must be USER, ASSISTANT, or SYSTEM"})
			return
		}
		messages = append(messages, types.Message{Content: m.Content, Role: role})
	}
	response, err := ah.ai.GenerateResponse(c.Request.Context(), messages, threadID, userID, req.SystemPrompt)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}

type chatRequest struct {
	ThreadID string `json:"threadId"`
	Content  string `json:"content"`
	UserID   string `json:"userId"`
}

// requestingUser prefers the authenticated identity over the body's userId so
// a bearer token cannot be overridden by the payload.
func (ah *AiHandler) requestingUser(c *gin.Context, bodyUserID string) (uuid.UUID, bool) {
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		return rd.UserID, true
	}
	if bodyUserID == "" {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(bodyUserID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (ah *AiHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threadId"})
		return
	}
	userID, ok := ah.requestingUser(c, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	result, err := ah.conversation.SendMessage(c.Request.Context(), userID, threadID, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ChatStream runs the same conversational turn but forwards generation deltas
// as SSE events before the final result event.
func (ah *AiHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threadId"})
		return
	}
	userID, ok := ah.requestingUser(c, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	result, err := ah.conversation.StreamMessage(c.Request.Context(), userID, threadID, req.Content, func(delta string) error {
		c.SSEvent("delta", gin.H{"content": delta})
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		// Headers may already be out; deliver the failure in-stream.
		c.SSEvent("error", gin.H{"error": apperr.Message(err)})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", result)
	c.Writer.Flush()
}
