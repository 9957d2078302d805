package services

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateReceipt(t *testing.T) {
	allowed := []string{"jpg", "jpeg", "png", "pdf"}
	const max = 5 * 1024 * 1024

	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
	}{
		{name: "pdf ok", file: "receipt.pdf", size: 1024},
		{name: "upper-case extension", file: "RECEIPT.JPG", size: 1024},
		{name: "exactly at limit", file: "a.png", size: max},
		{name: "unknown size", file: "a.png", size: -1},
		{name: "one byte over", file: "a.png", size: max + 1, wantErr: ErrReceiptTooLarge},
		{name: "bad extension", file: "a.gif", size: 10, wantErr: ErrReceiptExtension},
		{name: "no extension", file: "receipt", size: 10, wantErr: ErrReceiptExtension},
		{name: "double extension", file: "a.pdf.exe", size: 10, wantErr: ErrReceiptExtension},
		{name: "empty file", file: "a.pdf", size: 0, wantErr: ErrReceiptRequired},
		{name: "no name", file: " ", size: 10, wantErr: ErrReceiptRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReceipt(tt.file, tt.size, allowed, max)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSizeLimitedReader(t *testing.T) {
	r := &sizeLimitedReader{r: strings.NewReader("12345"), remaining: 5}
	data, err := io.ReadAll(r)
	if err != nil || string(data) != "12345" || r.exceeded {
		t.Fatalf("exact size: data=%q err=%v exceeded=%v", data, err, r.exceeded)
	}

	r = &sizeLimitedReader{r: strings.NewReader("123456"), remaining: 5}
	if _, err := io.ReadAll(r); !errors.Is(err, errSizeLimitExceeded) || !r.exceeded {
		t.Fatalf("over limit: err=%v exceeded=%v", err, r.exceeded)
	}
}
