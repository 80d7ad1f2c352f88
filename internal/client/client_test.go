package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer imitates the chat API closely enough for the client.
type stubServer struct {
	mu       sync.Mutex
	messages []Message
	total    int64
	uploads  map[string][]byte
}

func newStubServer(t *testing.T) (*stubServer, *httptest.Server) {
	t.Helper()
	s := &stubServer{uploads: map[string][]byte{}}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return s, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *stubServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer tok-alice" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return false
	}
	return true
}

func (s *stubServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["username"] == "taken" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already exists"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "token": "tok-" + req["username"]})
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "pw1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "token": "tok-" + req["username"]})
	})
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no file"})
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		s.mu.Lock()
		s.uploads[hdr.Filename] = data
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"filename": "1700000000000000000.jpg",
			"metadata": map[string]any{"original_name": hdr.Filename, "original_width": 10, "original_height": 5, "compressed_size": len(data), "format": "JPEG"},
		})
	})
	mux.HandleFunc("GET /api/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, append([]Message{}, s.messages...))
	})
	mux.HandleFunc("POST /api/messages", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.messages = append(s.messages, Message{Username: "alice", Message: req["message"], Type: req["type"]})
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})
	mux.HandleFunc("POST /api/clear", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		s.messages = nil
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})
	mux.HandleFunc("POST /api/add-time", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		var req map[string]int64
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.total += req["seconds"]
		total := s.total
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "total_time": total})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
	})

	return mux
}

func TestClient_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	_, srv := newStubServer(t)

	c := New(srv.URL + "/")
	require.NoError(t, c.Register(ctx, "alice", "pw1"))
	assert.Equal(t, "tok-alice", c.Token())

	err := c.Register(ctx, "taken", "pw1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "username already exists", apiErr.Message)

	c = New(srv.URL)
	err = c.Login(ctx, "alice", "wrong")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Empty(t, c.Token())

	require.NoError(t, c.Login(ctx, "alice", "pw1"))
	assert.Equal(t, "tok-alice", c.Token())
}

func TestClient_AuthenticatedCalls(t *testing.T) {
	ctx := context.Background()
	stub, srv := newStubServer(t)

	c := New(srv.URL)
	c.SetToken("tok-alice")

	// upload
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("pretend png"), 0644))
	res, err := c.Upload(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000000000.jpg", res.Filename)
	assert.Equal(t, "cat.png", res.Metadata.OriginalName)
	assert.Equal(t, []byte("pretend png"), stub.uploads["cat.png"])

	// messages
	require.NoError(t, c.SendMessage(ctx, "hello"))
	msgs, err := c.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Message)
	assert.Equal(t, "text", msgs[0].Type)

	// working time
	total, err := c.AddTime(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
	total, err = c.AddTime(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(45), total)

	// clear
	require.NoError(t, c.Clear(ctx))
	msgs, err = c.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestClient_Unauthorized(t *testing.T) {
	_, srv := newStubServer(t)
	c := New(srv.URL)

	err := c.SendMessage(context.Background(), "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Error(), "401"))
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
