package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ValidateReceipt проверяет расширение файла по списку разрешённых и размер.
// size < 0 означает "неизвестен": тогда лимит проверяется при чтении.
func ValidateReceipt(fileName string, size int64, allowed []string, maxSize int64) error {
	if strings.TrimSpace(fileName) == "" {
		return ErrReceiptRequired
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" || !containsExt(allowed, ext) {
		return fmt.Errorf("%w. Allowed: %s", ErrReceiptExtension, strings.Join(allowed, ", "))
	}

	if size == 0 {
		return fmt.Errorf("%w: file is empty", ErrReceiptRequired)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: maximum is %d bytes", ErrReceiptTooLarge, maxSize)
	}
	return nil
}

func containsExt(allowed []string, ext string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

var errSizeLimitExceeded = errors.New("receipt exceeds size limit")

// sizeLimitedReader обрывает чтение, как только прочитано больше remaining байт.
type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// проверяем, есть ли ещё хоть один байт
		var one [1]byte
		n, err := l.r.Read(one[:])
		if n > 0 {
			l.exceeded = true
			return 0, errSizeLimitExceeded
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
