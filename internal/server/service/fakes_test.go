package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"chatter/internal/server/database"

	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory stand-in for database.Repository.
type fakeRepo struct {
	mu        sync.Mutex
	users     map[string]*database.User
	uploads   map[string]*database.Upload
	messages  []*database.Message
	worktime  map[string]int64
	purges    int
	uploadErr error
	purgeErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[string]*database.User{},
		uploads:  map[string]*database.Upload{},
		worktime: map[string]int64{},
	}
}

func (r *fakeRepo) CreateUser(ctx context.Context, user *database.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return database.ErrUserExists
	}
	cp := *user
	r.users[user.Username] = &cp
	return nil
}

func (r *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeRepo) CreateImageUpload(ctx context.Context, upload *database.Upload, msg *database.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uploadErr != nil {
		return r.uploadErr
	}
	r.uploads[upload.Filename] = upload
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeRepo) GetUploadByFilename(ctx context.Context, filename string) (*database.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[filename]
	if !ok {
		return nil, database.ErrUploadNotFound
	}
	return u, nil
}

func (r *fakeRepo) CreateMessage(ctx context.Context, msg *database.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeRepo) ListMessages(ctx context.Context) ([]*database.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*database.Message{}, r.messages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *fakeRepo) PurgeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.purgeErr != nil {
		return r.purgeErr
	}
	r.purges++
	r.uploads = map[string]*database.Upload{}
	r.messages = nil
	return nil
}

func (r *fakeRepo) AddWorkingTime(ctx context.Context, username string, seconds int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worktime[username] += seconds
	return r.worktime[username], nil
}

func (r *fakeRepo) GetStats(ctx context.Context) (*database.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &database.Stats{
		TotalUploads:  int64(len(r.uploads)),
		TotalMessages: int64(len(r.messages)),
	}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
