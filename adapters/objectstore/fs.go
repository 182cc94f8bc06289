package objectstore

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lborres/technopark/core"
)

// FSStore stores objects as files under a root directory and serves them
// from a public base URL.
type FSStore struct {
	rootDir string
	baseURL string
}

var _ core.ObjectStore = (*FSStore)(nil)

func NewFSStore(rootDir, baseURL string) *FSStore {
	return &FSStore{rootDir: rootDir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *FSStore) Upload(ctx context.Context, key string, photo *core.Photo) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := filepath.Join(s.rootDir, filepath.FromSlash(key))

	// Ensure folder exists.
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", storeError("no se pudo subir la foto", err)
	}
	if err := os.WriteFile(p, photo.Data, 0o644); err != nil {
		return "", storeError("no se pudo subir la foto", err)
	}

	return s.url(key), nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.rootDir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storeError("no se pudo eliminar la foto", err)
	}
	return nil
}

func (s *FSStore) url(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}
