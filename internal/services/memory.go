package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

// MemoryService talks to the external long-term-memory / knowledge-graph
// store. Its state is reconciled idempotently: callers ensure the user and
// thread records exist before mirroring messages, and "already exists"
// answers count as success.
type MemoryService interface {
	EnsureUser(ctx context.Context, userID string) error
	EnsureThread(ctx context.Context, threadID, userID string) error
	AddMessages(ctx context.Context, threadID, userID string, msgs []types.Message) error
	GetContext(ctx context.Context, threadID string) (string, error)
}

type memoryService struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewMemoryService(log *logger.Logger, baseURL, apiKey string) (MemoryService, error) {
	serviceLog := log.With("service", "MemoryService")
	if baseURL == "" {
		return nil, fmt.Errorf("missing MEMORY_API_URL environment variable")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing MEMORY_API_KEY environment variable")
	}
	httpClient := &http.Client{
		Timeout: 15 * time.Second,
	}
	return &memoryService{
		log:     serviceLog,
		client:  httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (m *memoryService) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		m.log.Warn("failed to build memory request", "error", err, "path", path)
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+m.apiKey)
	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Warn("failed to call memory service", "error", err, "path", path)
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (m *memoryService) EnsureUser(ctx context.Context, userID string) error {
	status, _, err := m.do(ctx, http.MethodGet, "/api/v2/users/"+userID, nil)
	if err != nil {
		return err
	}
	if status >= 200 && status <= 299 {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("memory service HTTP %d checking user %s", status, userID)
	}
	status, body, err := m.do(ctx, http.MethodPost, "/api/v2/users", map[string]string{"user_id": userID})
	if err != nil {
		return err
	}
	// A concurrent create may have won the race; that is still success.
	if (status >= 200 && status <= 299) || status == http.StatusConflict || status == http.StatusBadRequest {
		return nil
	}
	return fmt.Errorf("memory service HTTP %d creating user %s: %s", status, userID, string(body))
}

func (m *memoryService) EnsureThread(ctx context.Context, threadID, userID string) error {
	if err := m.EnsureUser(ctx, userID); err != nil {
		return err
	}
	status, _, err := m.do(ctx, http.MethodGet, "/api/v2/threads/"+threadID, nil)
	if err != nil {
		return err
	}
	if status >= 200 && status <= 299 {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("memory service HTTP %d checking thread %s", status, threadID)
	}
	return m.createThread(ctx, threadID, userID)
}

func (m *memoryService) createThread(ctx context.Context, threadID, userID string) error {
	status, body, err := m.do(ctx, http.MethodPost, "/api/v2/threads", map[string]string{
		"thread_id": threadID,
		"user_id":   userID,
	})
	if err != nil {
		return err
	}
	if (status >= 200 && status <= 299) || status == http.StatusConflict || status == http.StatusBadRequest {
		return nil
	}
	return fmt.Errorf("memory service HTTP %d creating thread %s: %s", status, threadID, string(body))
}

func (m *memoryService) AddMessages(ctx context.Context, threadID, userID string, msgs []types.Message) error {
	if err := m.EnsureThread(ctx, threadID, userID); err != nil {
		return err
	}
	payload := map[string]interface{}{"messages": toGraphMessages(msgs)}
	status, body, err := m.do(ctx, http.MethodPost, "/api/v2/threads/"+threadID+"/messages", payload)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		// The external thread vanished between the existence check and the
		// write; recreate it and retry once.
		m.log.Warn("thread missing during message mirror, recreating", "threadID", threadID)
		if err := m.createThread(ctx, threadID, userID); err != nil {
			return err
		}
		status, body, err = m.do(ctx, http.MethodPost, "/api/v2/threads/"+threadID+"/messages", payload)
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("memory service HTTP %d adding messages to thread %s: %s", status, threadID, string(body))
	}
	return nil
}

func (m *memoryService) GetContext(ctx context.Context, threadID string) (string, error) {
	status, body, err := m.do(ctx, http.MethodGet, "/api/v2/threads/"+threadID+"/context", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("memory service HTTP %d getting context for thread %s", status, threadID)
	}
	var out struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode context response: %w", err)
	}
	return out.Context, nil
}

type graphMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toGraphMessages(msgs []types.Message) []graphMessage {
	out := make([]graphMessage, 0, len(msgs))
	for _, msg := range msgs {
		role := "assistant"
		if msg.Role == types.RoleUser {
			role = "user"
		}
		out = append(out, graphMessage{Role: role, Content: msg.Content})
	}
	return out
}
