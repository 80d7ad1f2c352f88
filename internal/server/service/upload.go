package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"chatter/internal/server/database"
	"chatter/internal/server/imaging"
	"chatter/internal/server/storage"

	"github.com/google/uuid"
)

// maxFilenameAttempts bounds the search for a free stored filename.
const maxFilenameAttempts = 5

// UploadRepository persists upload metadata.
type UploadRepository interface {
	CreateImageUpload(ctx context.Context, upload *database.Upload, msg *database.Message) error
	GetUploadByFilename(ctx context.Context, filename string) (*database.Upload, error)
}

// UploadMetadata describes a processed image.
type UploadMetadata struct {
	OriginalName   string `json:"original_name"`
	Extension      string `json:"extension"`
	MimeType       string `json:"mime_type"`
	Size           int64  `json:"size"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	CompressedSize int64  `json:"compressed_size"`
	Format         string `json:"format"`
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	Filename string         `json:"filename"`
	Metadata UploadMetadata `json:"metadata"`
}

// UploadService contains the business logic for image uploads.
//
// mu serializes the capacity check, blob write and row insert of every
// upload with each other and with ClearAll, so a purge never lands in the
// middle of an upload.
type UploadService struct {
	repo  UploadRepository
	store storage.Store
	guard *CapacityGuard
	now   func() time.Time

	mu sync.Mutex
}

// NewUploadService creates a new upload service.
func NewUploadService(repo UploadRepository, store storage.Store, guard *CapacityGuard) *UploadService {
	return &UploadService{
		repo:  repo,
		store: store,
		guard: guard,
		now:   time.Now,
	}
}

// ProcessUpload validates, transcodes and stores an image, then records
// the upload and its chat message.
func (s *UploadService) ProcessUpload(ctx context.Context, username, filename string, data io.Reader) (*UploadResult, error) {
	// 1. Cheap checks on the name only; content is validated by decoding.
	if filename == "" || data == nil {
		return nil, ErrNoFile
	}
	if !imaging.AllowedExtension(filename) {
		return nil, ErrExtensionNotAllowed
	}

	// 2. Transcode outside the lock, it is CPU-bound and per request.
	img, err := imaging.Transcode(data)
	if err != nil {
		slog.Error("failed to process image", "filename", filename, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 3. Capacity check strictly before the new blob is written.
	if _, err := s.guard.Check(ctx); err != nil {
		slog.Error("capacity check failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	// 4. Store blob
	storedName, err := s.freeFilename(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Save(ctx, storedName, bytes.NewReader(img.Data)); err != nil {
		slog.Error("failed to save image", "filename", storedName, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	// 5. Upload row and image message in one transaction
	now := s.now().UTC()
	meta := UploadMetadata{
		OriginalName:   filename,
		Extension:      imaging.OutputExtension,
		MimeType:       imaging.OutputMimeType,
		Size:           img.CompressedSize,
		OriginalWidth:  img.OriginalWidth,
		OriginalHeight: img.OriginalHeight,
		CompressedSize: img.CompressedSize,
		Format:         img.Format,
	}
	upload := &database.Upload{
		ID:             uuid.New(),
		Filename:       storedName,
		OriginalName:   meta.OriginalName,
		Extension:      meta.Extension,
		MimeType:       meta.MimeType,
		Size:           meta.Size,
		OriginalWidth:  meta.OriginalWidth,
		OriginalHeight: meta.OriginalHeight,
		CompressedSize: meta.CompressedSize,
		Format:         meta.Format,
		UploadedBy:     username,
		UploadedAt:     now,
	}
	msg := &database.Message{
		ID:        uuid.New(),
		Timestamp: now,
		Username:  username,
		Message:   storedName,
		Type:      database.MessageTypeImage,
		UploadID:  &upload.ID,
	}

	if err := s.repo.CreateImageUpload(ctx, upload, msg); err != nil {
		// Clean up stored blob on DB failure
		if delErr := s.store.Delete(ctx, storedName); delErr != nil {
			slog.Error("failed to remove blob after insert failure", "filename", storedName, "error", delErr)
		}
		slog.Error("failed to record upload", "filename", storedName, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	slog.Info("upload processed",
		"filename", storedName,
		"uploaded_by", username,
		"original_width", img.OriginalWidth,
		"original_height", img.OriginalHeight,
		"compressed_size", img.CompressedSize,
	)

	return &UploadResult{Filename: storedName, Metadata: meta}, nil
}

// freeFilename derives a stored name from the current time and probes the
// store until it finds one that is not taken. Callers hold s.mu.
func (s *UploadService) freeFilename(ctx context.Context) (string, error) {
	base := s.now().UnixNano()
	for i := range maxFilenameAttempts {
		name := fmt.Sprintf("%d.%s", base+int64(i), imaging.OutputExtension)
		exists, err := s.store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no free filename after %d attempts", ErrProcessingFailed, maxFilenameAttempts)
}

// GetImage looks up an upload and opens its blob. The caller closes the reader.
func (s *UploadService) GetImage(ctx context.Context, filename string) (*database.Upload, io.ReadCloser, error) {
	upload, err := s.repo.GetUploadByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, database.ErrUploadNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	rc, err := s.store.Open(ctx, upload.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	return upload, rc, nil
}

// ClearAll removes every blob, upload and message.
func (s *UploadService) ClearAll(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard.Purge(ctx); err != nil {
		return err
	}
	slog.Info("all data cleared", "requested_by", username)
	return nil
}
