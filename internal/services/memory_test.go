package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

// fakeMemoryStore is a minimal in-memory stand-in for the external
// knowledge-graph API.
type fakeMemoryStore struct {
	mu       sync.Mutex
	users    map[string]bool
	threads  map[string]bool
	messages map[string][]map[string]string
	context  string

	// dropThreadOnce makes the next message write 404 to exercise the
	// recreate-and-retry path.
	dropThreadOnce bool
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{
		users:    map[string]bool{},
		threads:  map[string]bool{},
		messages: map[string][]map[string]string{},
	}
}

func (f *fakeMemoryStore) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Api-Key secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && len(path) > len("/api/v2/users/") && path[:len("/api/v2/users/")] == "/api/v2/users/":
			if f.users[path[len("/api/v2/users/"):]] {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPost && path == "/api/v2/users":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.users[body["user_id"]] = true
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && path == "/api/v2/threads":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.threads[body["thread_id"]] = true
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && len(path) > len("/api/v2/threads/") && path[len(path)-len("/messages"):] == "/messages":
			threadID := path[len("/api/v2/threads/") : len(path)-len("/messages")]
			if f.dropThreadOnce {
				f.dropThreadOnce = false
				delete(f.threads, threadID)
			}
			if !f.threads[threadID] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var body struct {
				Messages []map[string]string `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.messages[threadID] = append(f.messages[threadID], body.Messages...)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet && len(path) > len("/api/v2/threads/") && path[len(path)-len("/context"):] == "/context":
			_ = json.NewEncoder(w).Encode(map[string]string{"context": f.context})
		case r.Method == http.MethodGet && len(path) > len("/api/v2/threads/") && path[:len("/api/v2/threads/")] == "/api/v2/threads/":
			if f.threads[path[len("/api/v2/threads/"):]] {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestMemory(t *testing.T) (*fakeMemoryStore, MemoryService) {
	t.Helper()
	store := newFakeMemoryStore()
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)
	svc, err := NewMemoryService(logger.NewNop(), srv.URL, "secret")
	require.NoError(t, err)
	return store, svc
}

func TestMemoryServiceRequiresConfig(t *testing.T) {
	_, err := NewMemoryService(logger.NewNop(), "", "key")
	require.Error(t, err)
	_, err = NewMemoryService(logger.NewNop(), "http://localhost", "")
	require.Error(t, err)
}

func TestMemoryServiceAddMessagesProvisions(t *testing.T) {
	store, svc := newTestMemory(t)
	ctx := context.Background()

	err := svc.AddMessages(ctx, "thread-1", "user-1", []types.Message{
		{Content: "hi", Role: types.RoleUser},
		{Content: "hello", Role: types.RoleAssistant},
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.users["user-1"])
	assert.True(t, store.threads["thread-1"])
	require.Len(t, store.messages["thread-1"], 2)
	assert.Equal(t, "user", store.messages["thread-1"][0]["role"])
	assert.Equal(t, "assistant", store.messages["thread-1"][1]["role"])
}

func TestMemoryServiceRecreatesVanishedThread(t *testing.T) {
	store, svc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureThread(ctx, "thread-1", "user-1"))
	store.mu.Lock()
	store.dropThreadOnce = true
	store.mu.Unlock()

	err := svc.AddMessages(ctx, "thread-1", "user-1", []types.Message{
		{Content: "still here?", Role: types.RoleUser},
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.threads["thread-1"])
	assert.Len(t, store.messages["thread-1"], 1)
}

func TestMemoryServiceGetContext(t *testing.T) {
	store, svc := newTestMemory(t)
	store.mu.Lock()
	store.context = "User likes Go."
	store.mu.Unlock()

	got, err := svc.GetContext(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "User likes Go.", got)
}

func TestMemoryServiceEnsureUserIdempotent(t *testing.T) {
	store, svc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureUser(ctx, "user-1"))
	require.NoError(t, svc.EnsureUser(ctx, "user-1"))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.users["user-1"])
}
