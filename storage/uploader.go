package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("stored object not found")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader хранит квитанции об оплате. Реализации: локальный диск (afero)
// и Cloudflare R2.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// Open возвращает содержимое объекта; ErrObjectNotFound, если его нет.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// GetPublicURL возвращает "" для хранилищ без публичного доступа.
	GetPublicURL(key string) string
}
