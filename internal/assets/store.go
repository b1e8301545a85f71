// Package assets stores uploaded board files (images mostly) in an object
// store. S3Client talks to MinIO or S3, LocalStore keeps objects on disk for
// development and tests.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectStore is the minimal object API the asset upload flow needs.
type ObjectStore interface {
	Ping(ctx context.Context) error
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// ObjectKey builds the storage key for an uploaded file of a board.
func ObjectKey(boardID, assetID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("boards", boardID, assetID+ext)
}

// KindFor classifies an upload by content type.
func KindFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case contentType == "application/pdf":
		return "document"
	default:
		return "file"
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || key == "." {
		return "", ErrInvalidKey
	}
	return key, nil
}

// LocalStore persists objects below a root directory.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	if root == "" {
		root = filepath.Join(os.TempDir(), "whiteboard-assets")
	}
	if baseURL == "" {
		baseURL = "/assets"
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat asset root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s is not a directory", s.root)
	}
	return nil
}

func (s *LocalStore) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.root, 0o755)
}

func (s *LocalStore) PutObject(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func (s *LocalStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
