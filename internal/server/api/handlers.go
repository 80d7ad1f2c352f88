package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"chatter/internal/server/service"

	"github.com/labstack/echo/v4"
)

var errNoBody = errors.New("no JSON data received")

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services bundles the service-layer dependencies of the handlers.
type Services struct {
	Auth     *service.AuthService
	Uploads  *service.UploadService
	Messages *service.MessageService
	WorkTime *service.WorkTimeService
	Stats    *service.StatsService
}

// Handler contains the HTTP handlers for the chat API.
type Handler struct {
	svc Services
	db  HealthChecker
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(svc Services, db HealthChecker) *Handler {
	return &Handler{svc: svc, db: db}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageRequest struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type addTimeRequest struct {
	Seconds json.Number `json:"seconds"`
}

// HandleRegister handles POST /api/register.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := decodeJSON(c, &req); err != nil {
		return badJSON(c, err)
	}

	token, err := h.svc.Auth.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "success",
		"message":  "user registered successfully",
		"username": req.Username,
		"token":    token,
	})
}

// HandleLogin handles POST /api/login.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := decodeJSON(c, &req); err != nil {
		return badJSON(c, err)
	}

	token, err := h.svc.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "success",
		"username": req.Username,
		"token":    token,
	})
}

// HandleUpload handles POST /api/upload.
// Accepts a multipart form with a "file" field.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}
	if fileHeader.Size == 0 {
		return mapServiceError(c, service.ErrNoFile)
	}

	src, err := fileHeader.Open()
	if err != nil {
		slog.Error("failed to open multipart file", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	result, err := h.svc.Uploads.ProcessUpload(
		c.Request().Context(),
		currentUser(c),
		fileHeader.Filename,
		src,
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "success",
		"filename": result.Filename,
		"metadata": result.Metadata,
	})
}

// HandleGetImage handles GET /api/images/:filename.
// Serves the blob inline under its original name.
func (h *Handler) HandleGetImage(c echo.Context) error {
	upload, rc, err := h.svc.Uploads.GetImage(c.Request().Context(), c.Param("filename"))
	if err != nil {
		return mapServiceError(c, err)
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": upload.OriginalName})
	if disposition == "" {
		disposition = "inline"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)

	return c.Stream(http.StatusOK, upload.MimeType, rc)
}

// HandleListMessages handles GET /api/messages.
func (h *Handler) HandleListMessages(c echo.Context) error {
	msgs, err := h.svc.Messages.ListMessages(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// HandlePostMessage handles POST /api/messages.
func (h *Handler) HandlePostMessage(c echo.Context) error {
	var req messageRequest
	if err := decodeJSON(c, &req); err != nil {
		return badJSON(c, err)
	}

	if _, err := h.svc.Messages.PostMessage(c.Request().Context(), currentUser(c), req.Message, req.Type); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "message sent successfully",
	})
}

// HandleClear handles POST /api/clear.
func (h *Handler) HandleClear(c echo.Context) error {
	if err := h.svc.Uploads.ClearAll(c.Request().Context(), currentUser(c)); err != nil {
		slog.Error("failed to clear data", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear data"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "all data cleared successfully",
	})
}

// HandleAddTime handles POST /api/add-time.
func (h *Handler) HandleAddTime(c echo.Context) error {
	var req addTimeRequest
	if err := decodeJSON(c, &req); err != nil {
		return badJSON(c, err)
	}

	seconds, err := req.Seconds.Int64()
	if err != nil {
		return mapServiceError(c, service.ErrInvalidSeconds)
	}

	total, err := h.svc.WorkTime.AddTime(c.Request().Context(), currentUser(c), seconds)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":     "success",
		"message":    fmt.Sprintf("added %d seconds to your account", seconds),
		"total_time": total,
	})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		slog.Error("database health check failed", "error", err)
		status = "degraded"
		dbStatus = "unreachable"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.svc.Stats.GetStats(c.Request().Context())
	if err != nil {
		slog.Error("failed to retrieve stats", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_uploads":      stats.TotalUploads,
		"total_messages":     stats.TotalMessages,
		"storage_used_bytes": stats.StorageUsedBytes,
		"storage_used_human": humanizeBytes(stats.StorageUsedBytes),
		"capacity_bytes":     stats.CapacityBytes,
	})
}

// decodeJSON reads the request body into v. An empty body yields errNoBody.
func decodeJSON(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errNoBody
		}
		return err
	}
	return nil
}

func badJSON(c echo.Context, err error) error {
	if errors.Is(err, errNoBody) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errNoBody.Error()})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
// Only the sentinel text reaches the client; anything else is logged.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrMissingCredentials.Error()})
	case errors.Is(err, service.ErrNoFile):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrNoFile.Error()})
	case errors.Is(err, service.ErrExtensionNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrExtensionNotAllowed.Error()})
	case errors.Is(err, service.ErrInvalidMessage):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message type"})
	case errors.Is(err, service.ErrInvalidSeconds):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrInvalidSeconds.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrNotFound.Error()})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrUsernameTaken.Error()})
	case errors.Is(err, service.ErrProcessingFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": service.ErrProcessingFailed.Error()})
	default:
		slog.Error("unhandled service error", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
