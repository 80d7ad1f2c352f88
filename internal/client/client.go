package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Message is one entry of the chat log.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	UploadID  *string   `json:"upload_id"`
}

// UploadMetadata describes an image after server-side processing.
type UploadMetadata struct {
	OriginalName   string `json:"original_name"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	CompressedSize int64  `json:"compressed_size"`
	Format         string `json:"format"`
}

// UploadResponse is returned by Upload.
type UploadResponse struct {
	Filename string         `json:"filename"`
	Metadata UploadMetadata `json:"metadata"`
}

// Health is the server's /health report.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Client talks to the chat HTTP API. After Register or Login it carries the
// session token on every authenticated call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/register", username, password)
}

// Login keeps the returned token on success.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return errors.New("server returned no token")
	}
	c.token = resp.Token
	return nil
}

// Upload sends one image file.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage posts a text message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/messages", map[string]string{"message": text, "type": "text"}, nil)
}

// Messages fetches the whole chat history, oldest first.
func (c *Client) Messages(ctx context.Context) ([]Message, error) {
	var msgs []Message
	if err := c.doJSON(ctx, http.MethodGet, "/api/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Clear wipes all uploads and messages on the server.
func (c *Client) Clear(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/clear", nil, nil)
}

// AddTime reports worked seconds and returns the new total.
func (c *Client) AddTime(ctx context.Context, seconds int64) (int64, error) {
	var resp struct {
		TotalTime int64 `json:"total_time"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/add-time", map[string]int64{"seconds": seconds}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalTime, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
