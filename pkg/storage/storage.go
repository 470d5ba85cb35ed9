// Package storage saves uploaded files and returns a path clients can use to
// fetch them again.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrTooLarge = errors.New("file too large")

// Store saves bytes under a generated key inside folder and returns the
// retrievable path (a URL path for local storage, a full URL for S3).
type Store interface {
	Put(ctx context.Context, folder, originalName, contentType string, r io.Reader) (string, error)
}

// objectKey builds "<folder>/<uuid><ext>" so client file names never reach
// the backend.
func objectKey(folder, originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	name := uuid.New().String() + ext
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", folder, name)
}
