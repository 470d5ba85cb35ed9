package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore writes under BaseDir and serves files from PublicPrefix.
type LocalStore struct {
	BaseDir      string
	PublicPrefix string
}

func NewLocalStore(baseDir, publicPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload base %s: %w", baseDir, err)
	}
	return &LocalStore{BaseDir: baseDir, PublicPrefix: publicPrefix}, nil
}

func (s *LocalStore) Put(ctx context.Context, folder, originalName, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(folder, originalName)
	full := filepath.Join(s.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.PublicPrefix + "/" + key, nil
}
