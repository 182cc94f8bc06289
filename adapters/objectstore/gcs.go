package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/lborres/technopark/core"
	"google.golang.org/api/option"
)

const firebaseDownloadBase = "https://firebasestorage.googleapis.com/v0/b"

// GCSStore stores objects in a Cloud Storage bucket and returns Firebase
// Storage download URLs for them.
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ core.ObjectStore = (*GCSStore)(nil)

// NewGCSStore opens a storage client for bucket.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key string, photo *core.Photo) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = photo.ContentType
	if _, err := w.Write(photo.Data); err != nil {
		_ = w.Close()
		return "", storeError("no se pudo subir la foto", err)
	}
	if err := w.Close(); err != nil {
		return "", storeError("no se pudo subir la foto", err)
	}

	return downloadURL(s.bucket, key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return storeError("no se pudo eliminar la foto", err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// downloadURL escapes the whole key, slashes included, as Firebase Storage expects.
func downloadURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/o/%s?alt=media", firebaseDownloadBase, bucket, url.PathEscape(key))
}
