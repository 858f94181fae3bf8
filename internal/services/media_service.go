package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockkeeper/internal/imaging"
	applog "stockkeeper/internal/log"
	"stockkeeper/internal/mirror"
)

// LocalPrefix is the URL path under which UploadDir is served.
const LocalPrefix = "/uploads/"

// MediaService stores product photos locally and publishes them to the
// configured image store.
type MediaService struct {
	Dir   string
	Store mirror.ImageStore
	Now   func() time.Time
}

func NewMediaService(dir string, store mirror.ImageStore) *MediaService {
	if store == nil {
		store = mirror.NoImageStore{}
	}
	return &MediaService{Dir: dir, Store: store, Now: time.Now}
}

// Save writes the upload as "<unix-ms>-<name>" under Dir and returns its
// public URL, or the local /uploads/ path when the store is unavailable.
func (m *MediaService) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	file := strconv.FormatInt(m.Now().UnixMilli(), 10) + "-" + cleanName(name)
	path := filepath.Join(m.Dir, file)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := imaging.NormalizeFile(path); err != nil {
		applog.Warn(nil, "media.normalize", map[string]any{"file": file, "err": err.Error()})
	}

	url, err := m.Store.UploadImage(ctx, path, file)
	switch {
	case err == nil && url != "":
		return url, nil
	case err != nil && !errors.Is(err, mirror.ErrNotConfigured):
		applog.Error(nil, "media.upload", err, map[string]any{"file": file})
	}
	return LocalPrefix + file, nil
}

// cleanName keeps only the base name and replaces characters that are
// awkward in URLs.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '?', '#', '%', '&':
			return '_'
		}
		return r
	}, name)
}
