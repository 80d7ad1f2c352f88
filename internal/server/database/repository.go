package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
)

const uniqueViolation = "23505"

// Repository provides the queries for users, uploads, messages and
// working time.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user. A taken username yields ErrUserExists.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING created_at
	`, user.Username, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by name.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT username, password_hash, created_at
		FROM users WHERE username = $1
	`, username).Scan(&user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateImageUpload inserts an upload row and the image message that
// announces it in a single transaction.
func (r *Repository) CreateImageUpload(ctx context.Context, upload *Upload, msg *Message) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO uploads (
				id, filename, original_name, extension, mime_type, size,
				original_width, original_height, compressed_size, format,
				uploaded_by, uploaded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			upload.ID,
			upload.Filename,
			upload.OriginalName,
			upload.Extension,
			upload.MimeType,
			upload.Size,
			upload.OriginalWidth,
			upload.OriginalHeight,
			upload.CompressedSize,
			upload.Format,
			upload.UploadedBy,
			upload.UploadedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create upload: %w", err)
		}

		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		return nil
	})
}

// GetUploadByFilename retrieves an upload by its stored filename.
func (r *Repository) GetUploadByFilename(ctx context.Context, filename string) (*Upload, error) {
	upload := &Upload{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, filename, original_name, extension, mime_type, size,
			   original_width, original_height, compressed_size, format,
			   uploaded_by, uploaded_at
		FROM uploads WHERE filename = $1
	`, filename).Scan(
		&upload.ID,
		&upload.Filename,
		&upload.OriginalName,
		&upload.Extension,
		&upload.MimeType,
		&upload.Size,
		&upload.OriginalWidth,
		&upload.OriginalHeight,
		&upload.CompressedSize,
		&upload.Format,
		&upload.UploadedBy,
		&upload.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return upload, nil
}

// UploadFilenames returns the stored filename of every upload row.
func (r *Repository) UploadFilenames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT filename FROM uploads")
	if err != nil {
		return nil, fmt.Errorf("failed to query upload filenames: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload filenames: %w", err)
	}
	return names, nil
}

// CreateMessage appends a message to the log.
func (r *Repository) CreateMessage(ctx context.Context, msg *Message) error {
	return insertMessage(ctx, r.db.Pool, msg)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMessage(ctx context.Context, db execer, msg *Message) error {
	_, err := db.Exec(ctx, `
		INSERT INTO messages (id, timestamp, username, message, type, upload_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		msg.ID,
		msg.Timestamp,
		msg.Username,
		msg.Message,
		msg.Type,
		msg.UploadID,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns the full message history, oldest first.
func (r *Repository) ListMessages(ctx context.Context) ([]*Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, timestamp, username, message, type, upload_id
		FROM messages ORDER BY timestamp ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(
			&msg.ID,
			&msg.Timestamp,
			&msg.Username,
			&msg.Message,
			&msg.Type,
			&msg.UploadID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// PurgeAll deletes every message and upload row. Users are kept.
func (r *Repository) PurgeAll(ctx context.Context) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM messages"); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM uploads"); err != nil {
			return fmt.Errorf("failed to delete uploads: %w", err)
		}
		return nil
	})
}

// AddWorkingTime adds seconds to the user's running total and returns the
// new total.
func (r *Repository) AddWorkingTime(ctx context.Context, username string, seconds int64) (int64, error) {
	var total int64
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO working_time (username, total_seconds, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username) DO UPDATE
		SET total_seconds = working_time.total_seconds + EXCLUDED.total_seconds,
			updated_at = NOW()
		RETURNING total_seconds
	`, username, seconds).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to add working time: %w", err)
	}
	return total, nil
}

// GetStats returns aggregate row counts.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM uploads),
			(SELECT COUNT(*) FROM messages)
	`).Scan(
		&stats.TotalUploads,
		&stats.TotalMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
