package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newMemUploader(t *testing.T) (FileUploader, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	u, err := NewLocalDiskUploader(fsys, "uploads")
	if err != nil {
		t.Fatalf("NewLocalDiskUploader: %v", err)
	}
	return u, fsys
}

func TestLocalDisk_UploadOpenDelete(t *testing.T) {
	u, fsys := newMemUploader(t)
	ctx := context.Background()

	res, err := u.Upload(ctx, "receipt_1_scan.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Location != filepath.Join("uploads", "receipt_1_scan.pdf") {
		t.Errorf("Location = %q", res.Location)
	}

	rc, err := u.Open(ctx, "receipt_1_scan.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "%PDF-1.4" {
		t.Errorf("content = %q", got)
	}

	// временных файлов не остаётся
	entries, err := afero.ReadDir(fsys, "uploads")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}

	if err := u.Delete(ctx, "receipt_1_scan.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := u.Open(ctx, "receipt_1_scan.pdf"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Open after delete err = %v, want ErrObjectNotFound", err)
	}
	if err := u.Delete(ctx, "receipt_1_scan.pdf"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestLocalDisk_OverwriteKeepsLastWrite(t *testing.T) {
	u, _ := newMemUploader(t)
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if _, err := u.Upload(ctx, "receipt_2_a.png", "image/png", strings.NewReader(body)); err != nil {
			t.Fatalf("Upload(%q) error = %v", body, err)
		}
	}

	rc, err := u.Open(ctx, "receipt_2_a.png")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalDisk_FailedWriteLeavesNothing(t *testing.T) {
	u, fsys := newMemUploader(t)

	if _, err := u.Upload(context.Background(), "receipt_3_x.jpg", "image/jpeg", io.MultiReader(bytes.NewReader([]byte("partial")), failingReader{})); err == nil {
		t.Fatal("expected upload error")
	}

	entries, err := afero.ReadDir(fsys, "uploads")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestLocalDisk_KeyCannotEscapeBaseDir(t *testing.T) {
	u, fsys := newMemUploader(t)

	res, err := u.Upload(context.Background(), "../../etc/passwd", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(res.Location, "uploads") {
		t.Errorf("Location = %q escapes base dir", res.Location)
	}
	if ok, _ := afero.Exists(fsys, "/etc/passwd"); ok {
		t.Error("file written outside base dir")
	}

	if _, err := u.Upload(context.Background(), "", "text/plain", strings.NewReader("x")); err == nil {
		t.Error("expected error for empty key")
	}
}
