package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type localDiskUploader struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalDiskUploader сохраняет файлы в baseDir. В тестах передаётся
// afero.NewMemMapFs(), в проде afero.NewOsFs().
func NewLocalDiskUploader(fsys afero.Fs, baseDir string) (FileUploader, error) {
	if err := fsys.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", baseDir, err)
	}
	return &localDiskUploader{fs: fsys, baseDir: baseDir}, nil
}

func (u *localDiskUploader) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.TrimSpace(key) == "" || clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(u.baseDir, clean), nil
}

// Upload пишет во временный файл рядом с целевым и переименовывает его,
// поэтому конкурентная загрузка с тем же ключом никогда не оставляет
// наполовину записанный файл: побеждает последний Rename.
func (u *localDiskUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	dst, err := u.path(key)
	if err != nil {
		return nil, err
	}
	if err := u.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp := dst + ".tmp-" + uuid.NewString()
	f, err := u.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}

	_, copyErr := io.Copy(f, contextReader{ctx: ctx, r: reader})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = u.fs.Remove(tmp)
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write %s: %w", key, copyErr)
		}
		return nil, fmt.Errorf("failed to close %s: %w", key, closeErr)
	}

	if err := u.fs.Rename(tmp, dst); err != nil {
		_ = u.fs.Remove(tmp)
		return nil, fmt.Errorf("failed to move %s into place: %w", key, err)
	}

	return &UploadResult{Key: key, Location: dst}, nil
}

func (u *localDiskUploader) Delete(ctx context.Context, key string) error {
	p, err := u.path(key)
	if err != nil {
		return err
	}
	if err := u.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (u *localDiskUploader) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := u.path(key)
	if err != nil {
		return nil, err
	}
	f, err := u.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Локальные файлы наружу не раздаются, только через API админки.
func (u *localDiskUploader) GetPublicURL(key string) string {
	return ""
}

// contextReader прерывает копирование, если клиент отключился.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
