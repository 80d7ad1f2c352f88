package database

import (
	"time"

	"github.com/google/uuid"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// User is a registered account. Users survive purges.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Upload represents a stored image blob in the database.
type Upload struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	OriginalName   string    `json:"original_name"`
	Extension      string    `json:"extension"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	OriginalWidth  int       `json:"original_width"`
	OriginalHeight int       `json:"original_height"`
	CompressedSize int64     `json:"compressed_size"`
	Format         string    `json:"format"`
	UploadedBy     string    `json:"uploaded_by"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Message is one chat entry. For image messages, Message holds the stored
// filename and UploadID points at its Upload row.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Username  string     `json:"username"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	UploadID  *uuid.UUID `json:"upload_id"`
}

// Stats holds aggregate row counts.
type Stats struct {
	TotalUploads  int64
	TotalMessages int64
}
