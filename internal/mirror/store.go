package mirror

import (
	"context"
	"errors"
)

// ErrNotConfigured means no remote image store is set up; callers keep the
// locally served copy.
var ErrNotConfigured = errors.New("image store not configured")

// ImageStore publishes an uploaded file and returns its public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, localPath, displayName string) (string, error)
}

// NoImageStore always reports ErrNotConfigured.
type NoImageStore struct{}

func (NoImageStore) UploadImage(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}
