package api

import (
	"context"
	"errors"
	"sort"
	"sync"

	"chatter/internal/server/database"
)

// memRepo is an in-memory stand-in for database.Repository.
type memRepo struct {
	mu       sync.Mutex
	users    map[string]*database.User
	uploads  map[string]*database.Upload
	messages []*database.Message
	worktime map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    map[string]*database.User{},
		uploads:  map[string]*database.Upload{},
		worktime: map[string]int64{},
	}
}

func (r *memRepo) CreateUser(ctx context.Context, user *database.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return database.ErrUserExists
	}
	r.users[user.Username] = user
	return nil
}

func (r *memRepo) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, database.ErrUserNotFound
}

func (r *memRepo) CreateImageUpload(ctx context.Context, upload *database.Upload, msg *database.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[upload.Filename] = upload
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memRepo) GetUploadByFilename(ctx context.Context, filename string) (*database.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.uploads[filename]; ok {
		return u, nil
	}
	return nil, database.ErrUploadNotFound
}

func (r *memRepo) CreateMessage(ctx context.Context, msg *database.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context) ([]*database.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*database.Message{}, r.messages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *memRepo) PurgeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = map[string]*database.Upload{}
	r.messages = nil
	return nil
}

func (r *memRepo) AddWorkingTime(ctx context.Context, username string, seconds int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worktime[username] += seconds
	return r.worktime[username], nil
}

func (r *memRepo) GetStats(ctx context.Context) (*database.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &database.Stats{
		TotalUploads:  int64(len(r.uploads)),
		TotalMessages: int64(len(r.messages)),
	}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

var errDBDown = errors.New("connection refused")
