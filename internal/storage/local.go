package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type LocalStore struct {
	dir string
}

func NewLocalStore(root, bucket string) *LocalStore {
	return &LocalStore{dir: filepath.Join(root, bucket)}
}

func (l *LocalStore) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

func (l *LocalStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	p := l.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return l.URI(key), nil
}

func (l *LocalStore) Path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

func (l *LocalStore) URI(key string) string {
	abs, err := filepath.Abs(l.Path(key))
	if err != nil {
		abs = l.Path(key)
	}
	return "file://" + filepath.ToSlash(abs)
}
