package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidName  = errors.New("invalid blob name")
)

// Blob describes a stored object.
type Blob struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store defines the interface for the blob area that holds processed images.
// Names are flat: no directory components.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, name string, data io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) (int, error)
	TotalSize(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]Blob, error)
}

// FileSystemStore stores blobs on the local filesystem.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// Init creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save writes data to a file called name and returns the number of bytes written.
func (fs *FileSystemStore) Save(ctx context.Context, name string, data io.Reader) (int64, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return 0, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// Open returns a reader for a stored blob, or ErrBlobNotFound.
func (fs *FileSystemStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (fs *FileSystemStore) Exists(ctx context.Context, name string) (bool, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (fs *FileSystemStore) Delete(ctx context.Context, name string) error {
	filePath, err := fs.filePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// DeleteAll removes every file below the storage directory, keeping the
// directory itself. It returns the number of files removed.
func (fs *FileSystemStore) DeleteAll(ctx context.Context) (int, error) {
	var removed int
	err := fs.walkFiles(func(path string, _ os.FileInfo) error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}

// TotalSize sums the size of every file below the storage directory.
func (fs *FileSystemStore) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := fs.walkFiles(func(_ string, info os.FileInfo) error {
		total += info.Size()
		return nil
	})
	return total, err
}

// List returns the files directly inside the storage directory.
func (fs *FileSystemStore) List(ctx context.Context) ([]Blob, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	blobs := make([]Blob, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		blobs = append(blobs, Blob{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return blobs, nil
}

func (fs *FileSystemStore) walkFiles(fn func(path string, info os.FileInfo) error) error {
	err := filepath.WalkDir(fs.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		return fn(path, info)
	})
	if err != nil {
		return fmt.Errorf("failed to walk storage directory: %w", err)
	}
	return nil
}

func (fs *FileSystemStore) filePath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(fs.basePath, name), nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
