package service

import (
	"context"
	"fmt"
	"time"

	"chatter/internal/server/database"

	"github.com/google/uuid"
)

// MessageRepository persists the message log.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *database.Message) error
	ListMessages(ctx context.Context) ([]*database.Message, error)
}

// MessageService appends to and reads the message log.
type MessageService struct {
	repo MessageRepository
	now  func() time.Time
}

// NewMessageService creates a new message service.
func NewMessageService(repo MessageRepository) *MessageService {
	return &MessageService{repo: repo, now: time.Now}
}

// PostMessage appends a text message. An empty type means text; image
// messages are only written by the upload pipeline so that each one has
// its Upload. Content is not validated.
func (s *MessageService) PostMessage(ctx context.Context, username, text, msgType string) (*database.Message, error) {
	switch msgType {
	case "", database.MessageTypeText:
		msgType = database.MessageTypeText
	case database.MessageTypeImage:
		return nil, fmt.Errorf("%w: image messages are created by uploads", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msgType)
	}

	msg := &database.Message{
		ID:        uuid.New(),
		Timestamp: s.now().UTC(),
		Username:  username,
		Message:   text,
		Type:      msgType,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the whole history, oldest first. There is no paging.
func (s *MessageService) ListMessages(ctx context.Context) ([]*database.Message, error) {
	return s.repo.ListMessages(ctx)
}
